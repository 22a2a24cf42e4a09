// Command queuectl is the operator-facing CLI for the job queue engine
// (spec.md §6): enqueue, list, worker-start/stop, the dead letter queue
// management operations, status, and config.
//
// Grounded on the Cobra convention the broader example pack uses for CLI
// tools (other_examples/manifests/*-cli, */*-operator go.mod entries for
// github.com/spf13/cobra); the teacher repo carries no CLI of its own, so
// command structure follows Cobra's own idiomatic root/subcommand layout
// rather than a teacher file.
package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/rezkam/queuectl/internal/clock"
	"github.com/rezkam/queuectl/internal/config"
	"github.com/rezkam/queuectl/internal/env"
	"github.com/rezkam/queuectl/internal/store"
)

// envOverrides holds the process-environment knobs queuectl reads at
// startup, loaded through internal/env's reflection-based loader (the
// same mechanism the teacher uses for its service configuration, here
// reduced to the two knobs this CLI exposes outside of --flags).
type envOverrides struct {
	DataDir          string `env:"QUEUECTL_DATA_DIR"`
	TelemetryEnabled bool   `env:"QUEUECTL_OTEL_ENABLED"`
}

// cliConfig holds the process-wide paths every subcommand resolves
// against, set from persistent flags on the root command.
type cliConfig struct {
	dataDir    string
	dbPath     string
	configPath string
	statusDir  string
	logDir     string
}

func (c cliConfig) openStore(ctx context.Context) (*store.Store, error) {
	return store.Open(ctx, store.Config{Path: c.dbPath})
}

func (c cliConfig) openConfigManager() (*config.Manager, error) {
	return config.NewManager(c.configPath)
}

var cli cliConfig
var envCfg envOverrides

func newRootCmd() *cobra.Command {
	if err := env.Load(&envCfg); err != nil {
		color.Red.Fprintln(os.Stderr, err.Error())
	}

	root := &cobra.Command{
		Use:           "queuectl",
		Short:         "Operate the persistent background job queue engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cli.dataDir, "data-dir", defaultDataDir(), "directory holding the job store, config, and status files")

	cobra.OnInitialize(func() {
		cli.dbPath = filepath.Join(cli.dataDir, "jobs.db")
		cli.configPath = filepath.Join(cli.dataDir, "config.json")
		cli.statusDir = cli.dataDir
		cli.logDir = filepath.Join(cli.dataDir, "logs")
	})

	root.AddCommand(
		newEnqueueCmd(),
		newListCmd(),
		newWorkerStartCmd(),
		newWorkerStopCmd(),
		newDLQListCmd(),
		newDLQRetryCmd(),
		newDLQPurgeCmd(),
		newStatusCmd(),
		newConfigCmd(),
	)
	return root
}

func defaultDataDir() string {
	if envCfg.DataDir != "" {
		return envCfg.DataDir
	}
	return ".queuectl"
}

func fail(err error) error {
	color.Red.Fprintln(os.Stderr, err.Error())
	return err
}

func succeed(format string, args ...any) {
	color.Green.Printf(format+"\n", args...)
}

func newClock() clock.Clock {
	return clock.System{}
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// withTimeout is a small helper for the one-shot CLI operations that talk
// to the store, mirroring the operationTimeout pattern the teacher applies
// around every Repository call.
func withTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, 10*time.Second)
}
