package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezkam/queuectl/internal/manager"
	"github.com/rezkam/queuectl/internal/retrypolicy"
	"github.com/rezkam/queuectl/pkg/observability"
)

func newWorkerStartCmd() *cobra.Command {
	var count int
	var telemetry bool
	cmd := &cobra.Command{
		Use:   "worker-start",
		Short: "Start the worker pool and block until shutdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkerStart(cmd, count, telemetry)
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "number of workers to run (defaults to the configured worker_count)")
	cmd.Flags().BoolVar(&telemetry, "telemetry", envCfg.TelemetryEnabled, "export traces/metrics/logs via OTLP instead of stdout only (default from QUEUECTL_OTEL_ENABLED)")
	return cmd
}

func runWorkerStart(cmd *cobra.Command, count int, telemetry bool) error {
	ctx := cmd.Context()

	providers, err := observability.Bootstrap(ctx, "queuectl", telemetry)
	if err != nil {
		return fail(err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	cfgMgr, err := cli.openConfigManager()
	if err != nil {
		return fail(err)
	}
	engineCfg, err := cfgMgr.Load()
	if err != nil {
		return fail(err)
	}

	workerCount := count
	if workerCount <= 0 {
		workerCount = engineCfg.WorkerCount
	}

	st, err := cli.openStore(ctx)
	if err != nil {
		return fail(err)
	}
	defer st.Close()

	clk := newClock()
	mgr := manager.New(st, clk, providers.Logger, manager.Config{
		WorkerCount: workerCount,
		JobTimeout:  time.Duration(engineCfg.JobTimeout) * time.Second,
		RetryPolicy: retrypolicy.Config{MaxRetries: engineCfg.MaxRetries, BackoffBase: engineCfg.BackoffBase},
		StatusDir:   cli.statusDir,
		LogDir:      cli.logDir,
	})

	if err := mgr.Start(ctx); err != nil {
		return fail(err)
	}
	succeed("started %d worker(s)", workerCount)

	mgr.Join(24 * 365 * time.Hour) // blocks until an OS signal or worker-stop sentinel triggers Stop()
	succeed("worker pool stopped")
	return nil
}

func newWorkerStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker-stop",
		Short: "Signal a running worker pool (in this or another process) to shut down",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkerStop(cmd)
		},
	}
}

// runWorkerStop writes the stop-sentinel directly rather than going through
// a live Manager — this is the out-of-process path spec.md §4.6 describes
// ("a separate stop CLI invocation"); the running engine polls for this
// file's existence and shuts itself down cooperatively.
func runWorkerStop(cmd *cobra.Command) error {
	if err := os.MkdirAll(cli.statusDir, 0o755); err != nil {
		return fail(err)
	}
	sentinel := struct {
		Stop      bool   `json:"stop"`
		Timestamp string `json:"timestamp"`
	}{Stop: true, Timestamp: newClock().NowUTC().Format(time.RFC3339)}

	data := fmt.Sprintf(`{"stop": %t, "timestamp": %q}`, sentinel.Stop, sentinel.Timestamp)
	path := filepath.Join(cli.statusDir, "stop_signal.json")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return fail(err)
	}
	succeed("stop signal written to %s", path)
	return nil
}
