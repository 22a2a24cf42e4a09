package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rezkam/queuectl/internal/domain"
)

func newDLQListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dlq-list",
		Short: "List jobs in the dead letter queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, domain.StatusDead)
		},
	}
}

func newDLQRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dlq-retry <id>",
		Short: "Reset a dead job's attempts and return it to pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDLQRetry(cmd, args[0])
		},
	}
}

func runDLQRetry(cmd *cobra.Command, id string) error {
	ctx, cancel := withTimeout(cmd.Context())
	defer cancel()

	st, err := cli.openStore(ctx)
	if err != nil {
		return fail(err)
	}
	defer st.Close()

	clk := newClock()
	if err := st.ResetAttempts(ctx, clk, id); err != nil {
		return fail(err)
	}
	succeed("job %s requeued for retry", id)
	return nil
}

func newDLQPurgeCmd() *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "dlq-purge",
		Short: "Permanently delete every dead job",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return fail(fmt.Errorf("refusing to purge the dead letter queue without --confirm"))
			}
			return runDLQPurge(cmd)
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "required to acknowledge this is destructive and irreversible")
	return cmd
}

func runDLQPurge(cmd *cobra.Command) error {
	ctx, cancel := withTimeout(cmd.Context())
	defer cancel()

	st, err := cli.openStore(ctx)
	if err != nil {
		return fail(err)
	}
	defer st.Close()

	n, err := st.PurgeDead(ctx)
	if err != nil {
		return fail(err)
	}
	succeed("purged %d dead job(s)", n)
	return nil
}
