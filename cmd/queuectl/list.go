package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rezkam/queuectl/internal/domain"
)

func newListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, optionally filtered by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, domain.Status(status))
		},
	}
	cmd.Flags().StringVar(&status, "status", string(domain.StatusAll), "pending|processing|completed|dead|all")
	return cmd
}

func runList(cmd *cobra.Command, status domain.Status) error {
	ctx, cancel := withTimeout(cmd.Context())
	defer cancel()

	st, err := cli.openStore(ctx)
	if err != nil {
		return fail(err)
	}
	defer st.Close()

	jobs, err := st.ListByStatus(ctx, status)
	if err != nil {
		return fail(err)
	}

	out := cmd.OutOrStdout()
	if len(jobs) == 0 {
		fmt.Fprintln(out, "no jobs found")
		return nil
	}

	fmt.Fprintf(out, "%-36s  %-10s  %-6s  %-8s  %-19s  %s\n", "ID", "STATUS", "PRIO", "ATTEMPTS", "RUN_AT", "COMMAND")
	for _, j := range jobs {
		fmt.Fprintf(out, "%-36s  %-10s  %-6d  %d/%-6d  %-19s  %s\n",
			j.ID, j.Status, j.Priority, j.Attempts, j.MaxRetries, domain.FormatTime(j.RunAt), j.Command)
	}
	return nil
}
