package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "config",
		Short: "Inspect or change the persisted engine configuration",
	}
	root.AddCommand(newConfigShowCmd(), newConfigGetCmd(), newConfigSetCmd(), newConfigResetCmd())
	return root
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the full configuration document",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := cli.openConfigManager()
			if err != nil {
				return fail(err)
			}
			cfg, err := mgr.Load()
			if err != nil {
				return fail(err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "max_retries:  %d\n", cfg.MaxRetries)
			fmt.Fprintf(out, "backoff_base: %d\n", cfg.BackoffBase)
			fmt.Fprintf(out, "worker_count: %d\n", cfg.WorkerCount)
			fmt.Fprintf(out, "job_timeout:  %d\n", cfg.JobTimeout)
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a single configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := cli.openConfigManager()
			if err != nil {
				return fail(err)
			}
			v, err := mgr.Get(args[0])
			if err != nil {
				return fail(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a single configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := cli.openConfigManager()
			if err != nil {
				return fail(err)
			}
			// spec.md §6: "values with numeric or boolean syntax are
			// coerced on write" — every config key here is an int, so a
			// failed coercion is a usage error, not a silent string write.
			value, err := strconv.Atoi(args[1])
			if err != nil {
				return fail(fmt.Errorf("value %q is not a valid integer", args[1]))
			}
			if err := mgr.Set(args[0], value); err != nil {
				return fail(err)
			}
			succeed("%s set to %d", args[0], value)
			return nil
		},
	}
}

func newConfigResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the configuration document to its defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := cli.openConfigManager()
			if err != nil {
				return fail(err)
			}
			if err := mgr.Reset(); err != nil {
				return fail(err)
			}
			succeed("configuration reset to defaults")
			return nil
		},
	}
}
