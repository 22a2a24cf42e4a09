// Package manager implements the WorkerManager of spec.md §4.6: it spawns
// and supervises a fixed pool of workers, publishes liveness/stop state to
// small JSON sentinel files so a separate CLI invocation can observe or
// request shutdown, and performs crash recovery at startup.
//
// Grounded on internal/application/worker/worker.go's Start/Stop (done
// channel + sync.WaitGroup) generalized from "one worker" to "N named
// workers", and on cmd/worker/main.go's os/signal wiring. The filesystem
// sentinel files have no teacher analog (the teacher coordinates shutdown
// in a single process via context cancellation only); their shape is
// grounded on original_source/core/worker_engine.py's
// _write_worker_status/_check_stop_signal, translated into the
// write-temp-then-rename idiom spec.md §5 recommends.
package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/rezkam/queuectl/internal/clock"
	"github.com/rezkam/queuectl/internal/domain"
	"github.com/rezkam/queuectl/internal/executor"
	"github.com/rezkam/queuectl/internal/joblog"
	"github.com/rezkam/queuectl/internal/retrypolicy"
	"github.com/rezkam/queuectl/internal/worker"
)

const (
	livenessFileName = "worker_threads.json"
	sentinelFileName = "stop_signal.json"
	pollInterval     = 500 * time.Millisecond
)

// Store is the subset of internal/store.Store the Manager depends on
// directly (workers hold the rest via worker.Store).
type Store interface {
	worker.Store
	RecoverOrphans(ctx context.Context, clk clock.Clock) (int64, error)
}

// livenessSnapshot is the document written to worker_threads.json
// (spec.md §5).
type livenessSnapshot struct {
	ActiveWorkers int      `json:"active_workers"`
	Threads       []string `json:"threads"`
	Timestamp     string   `json:"timestamp"`
}

// stopSentinel is the document written to stop_signal.json (spec.md §5).
type stopSentinel struct {
	Stop      bool   `json:"stop"`
	Timestamp string `json:"timestamp"`
}

// Config configures the worker pool a Manager supervises.
type Config struct {
	WorkerCount int
	JobTimeout  time.Duration
	RetryPolicy retrypolicy.Config
	StatusDir   string // directory for worker_threads.json / stop_signal.json
	LogDir      string // directory for per-job log files
}

// Manager is the WorkerManager of spec.md §4.6.
type Manager struct {
	store  Store
	exec   worker.Executor
	clk    clock.Clock
	logger *slog.Logger
	cfg    Config

	mu        sync.Mutex
	cancelCh  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	pollDone  chan struct{}
	running   bool
}

// New constructs a Manager whose workers run commands through
// executor.New().
func New(store Store, clk clock.Clock, logger *slog.Logger, cfg Config) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.JobTimeout == 0 {
		cfg.JobTimeout = 30 * time.Second
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	ex := executor.New()
	return &Manager{store: store, exec: ex, clk: clk, logger: logger, cfg: cfg}
}

// Start implements spec.md §4.6's start(worker_count, backoff_base):
// clears stale shutdown state, recovers orphaned jobs, spawns the worker
// pool, publishes the liveness snapshot, and installs OS signal handlers.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("manager already running")
	}
	m.cancelCh = make(chan struct{})
	m.stopOnce = sync.Once{}
	m.pollDone = make(chan struct{})
	m.running = true
	m.mu.Unlock()

	if err := m.removeStopSentinel(); err != nil {
		m.logger.Warn("failed to remove stale stop sentinel", "error", err)
	}

	if n, err := m.store.RecoverOrphans(ctx, m.clk); err != nil {
		m.logger.Error("recover orphans failed", "error", err)
	} else if n > 0 {
		m.logger.Info("recovered orphaned jobs", "count", n)
	}

	names := make([]string, 0, m.cfg.WorkerCount)
	jobLog := joblog.New(m.cfg.LogDir)
	for i := 1; i <= m.cfg.WorkerCount; i++ {
		name := fmt.Sprintf("Worker-%d", i)
		names = append(names, name)
		w := worker.New(worker.Config{
			Name:        name,
			JobTimeout:  m.cfg.JobTimeout,
			RetryPolicy: m.cfg.RetryPolicy,
		}, m.store, m.exec, m.clk, jobLog, m.logger, m.cancelCh)

		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			w.Run(ctx)
		}()
	}

	if err := m.publishLiveness(names); err != nil {
		m.logger.Warn("failed to publish liveness snapshot", "error", err)
	}

	go m.pollStopSentinel()
	m.installSignalHandlers()

	m.logger.Info("worker manager started", "worker_count", m.cfg.WorkerCount)
	return nil
}

// Stop implements spec.md §4.6's stop(): idempotent, sets the cancellation
// flag, and writes the stop-sentinel so an out-of-process `queuectl
// worker-stop` invocation against the same StatusDir is observed by this
// engine's poller. It never forcibly terminates in-flight jobs.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancelCh := m.cancelCh
	m.mu.Unlock()
	if cancelCh == nil {
		return
	}

	m.stopOnce.Do(func() {
		close(cancelCh)
		if err := m.writeStopSentinel(); err != nil {
			m.logger.Warn("failed to write stop sentinel", "error", err)
		}
		m.logger.Info("stop requested")
	})
}

// Join waits up to deadline for all workers to exit, then cleans up the
// liveness snapshot regardless of whether they did (spec.md §4.6: "after
// deadline, proceeds with cleanup ... does not hard-kill workers").
func (m *Manager) Join(deadline time.Duration) bool {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	var exited bool
	select {
	case <-done:
		exited = true
	case <-time.After(deadline):
		exited = false
	}

	m.mu.Lock()
	if m.pollDone != nil {
		close(m.pollDone)
		m.pollDone = nil
	}
	m.running = false
	m.mu.Unlock()

	if err := m.removeLiveness(); err != nil {
		m.logger.Warn("failed to remove liveness snapshot", "error", err)
	}
	return exited
}

func (m *Manager) pollStopSentinel() {
	m.mu.Lock()
	done := m.pollDone
	m.mu.Unlock()
	if done == nil {
		return
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if m.sentinelExists() {
				m.Stop()
				return
			}
		}
	}
}

func (m *Manager) installSignalHandlers() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		m.logger.Info("received shutdown signal")
		m.Stop()
	}()
}

func (m *Manager) livenessPath() string {
	return filepath.Join(m.cfg.StatusDir, livenessFileName)
}

func (m *Manager) sentinelPath() string {
	return filepath.Join(m.cfg.StatusDir, sentinelFileName)
}

func (m *Manager) publishLiveness(names []string) error {
	snap := livenessSnapshot{
		ActiveWorkers: len(names),
		Threads:       names,
		Timestamp:     domain.FormatTime(m.clk.NowUTC()),
	}
	return writeJSONAtomic(m.livenessPath(), snap)
}

func (m *Manager) removeLiveness() error {
	err := os.Remove(m.livenessPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (m *Manager) writeStopSentinel() error {
	sentinel := stopSentinel{Stop: true, Timestamp: domain.FormatTime(m.clk.NowUTC())}
	return writeJSONAtomic(m.sentinelPath(), sentinel)
}

func (m *Manager) removeStopSentinel() error {
	err := os.Remove(m.sentinelPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (m *Manager) sentinelExists() bool {
	_, err := os.Stat(m.sentinelPath())
	return err == nil
}

// writeJSONAtomic writes v as indented JSON to path via write-temp-then-
// rename, per spec.md §5's recommendation for the sentinel files.
func writeJSONAtomic(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
