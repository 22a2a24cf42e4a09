package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rezkam/queuectl/internal/domain"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show job counts and worker liveness",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd)
		},
	}
}

// runStatus reproduces original_source/cli/status_cli.py's two sections:
// a job-count summary from the Store, followed by whatever the
// WorkerManager last published to worker_threads.json / stop_signal.json —
// read directly off disk since a separate CLI invocation has no in-process
// handle on a running Manager.
func runStatus(cmd *cobra.Command) error {
	ctx, cancel := withTimeout(cmd.Context())
	defer cancel()

	st, err := cli.openStore(ctx)
	if err != nil {
		return fail(err)
	}
	defer st.Close()

	summary, err := st.Summary(ctx)
	if err != nil {
		return fail(err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Queue Status Overview")
	fmt.Fprintln(out, strings.Repeat("-", 50))
	statuses := []domain.Status{domain.StatusPending, domain.StatusProcessing, domain.StatusCompleted, domain.StatusDead}
	for _, s := range statuses {
		fmt.Fprintf(out, "%-12s %d\n", s, summary[s])
	}

	fmt.Fprintln(out, "\nWorker Thread Status")
	fmt.Fprintln(out, strings.Repeat("-", 50))
	printLiveness(out, filepath.Join(cli.statusDir, "worker_threads.json"))
	printStopSignal(out, filepath.Join(cli.statusDir, "stop_signal.json"))
	fmt.Fprintln(out, strings.Repeat("-", 50))
	return nil
}

func printLiveness(out io.Writer, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(out, "Active Workers : 0 (no active threads)")
		return
	}
	var snap struct {
		ActiveWorkers int      `json:"active_workers"`
		Threads       []string `json:"threads"`
		Timestamp     string   `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		fmt.Fprintf(out, "warning: could not parse worker status (%v)\n", err)
		return
	}
	threads := "(none)"
	if len(snap.Threads) > 0 {
		threads = strings.Join(snap.Threads, ", ")
	}
	fmt.Fprintf(out, "Active Workers : %d\n", snap.ActiveWorkers)
	fmt.Fprintf(out, "Worker Names   : %s\n", threads)
	fmt.Fprintf(out, "Last Updated   : %s\n", snap.Timestamp)
}

func printStopSignal(out io.Writer, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var sentinel struct {
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &sentinel); err != nil {
		fmt.Fprintf(out, "warning: could not parse stop signal (%v)\n", err)
		return
	}
	fmt.Fprintf(out, "\nStop Signal Detected : %s\n", sentinel.Timestamp)
}
