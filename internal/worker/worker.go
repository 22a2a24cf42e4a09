// Package worker implements the single-job claim/execute/complete-or-retry
// loop of spec.md §4.5.
//
// Grounded on internal/application/worker/worker.go's Worker: a plain
// constructor and a cancellation channel checked at loop boundaries.
// Storage calls use the caller's context as is; the per-job timeout is
// applied to the command by the executor. The
// teacher's RunScheduleOnce/RunProcessOnce split does not apply here (the
// engine has no recurring-template scheduling phase) so this package keeps
// only the processing loop, renamed to match spec.md's vocabulary
// (claim/execute/complete-or-retry).
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/rezkam/queuectl/internal/clock"
	"github.com/rezkam/queuectl/internal/domain"
	"github.com/rezkam/queuectl/internal/executor"
	"github.com/rezkam/queuectl/internal/joblog"
	"github.com/rezkam/queuectl/internal/retrypolicy"
)

// Store is the subset of internal/store.Store a Worker depends on. Declared
// here (consumer-owned interface) rather than in the store package,
// following the Dependency Inversion / Interface Segregation split the
// teacher documents in internal/application/worker/repository.go.
type Store interface {
	ClaimNext(ctx context.Context, clk clock.Clock) (*domain.Job, error)
	MarkCompleted(ctx context.Context, clk clock.Clock, id string) error
	MarkDead(ctx context.Context, clk clock.Clock, id string) error
	Reschedule(ctx context.Context, clk clock.Clock, id string, nextRunAt time.Time) error
	IncrementAttempts(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*domain.Job, error)
}

// Executor is the subset of internal/executor.Executor a Worker depends on.
type Executor interface {
	Run(ctx context.Context, command string, timeout time.Duration) (executor.Outcome, error)
}

// Config holds the per-Worker tunables of spec.md §4.5/§6.
type Config struct {
	Name          string
	JobTimeout    time.Duration
	IdleInterval  time.Duration // sleep after an empty claim, default 1s
	InterJobDelay time.Duration // sleep after finishing a job, default 200ms
	RetryPolicy   retrypolicy.Config
}

// DefaultIdleInterval and DefaultInterJobDelay mirror
// original_source/core/worker_engine.py's worker_loop sleeps.
const (
	DefaultIdleInterval  = 1 * time.Second
	DefaultInterJobDelay = 200 * time.Millisecond
)

// Worker is a single long-lived claim/execute loop (spec.md §4.5).
type Worker struct {
	cfg     Config
	store   Store
	exec    Executor
	clk     clock.Clock
	log     *joblog.Writer
	logger  *slog.Logger
	cancel  <-chan struct{}
	metrics jobMetrics
}

// New constructs a Worker. cancel is a channel that is closed to request
// cooperative shutdown (spec.md §4.5 step 1, step 9).
func New(cfg Config, store Store, exec Executor, clk clock.Clock, jobLog *joblog.Writer, logger *slog.Logger, cancel <-chan struct{}) *Worker {
	if cfg.IdleInterval == 0 {
		cfg.IdleInterval = DefaultIdleInterval
	}
	if cfg.InterJobDelay == 0 {
		cfg.InterJobDelay = DefaultInterJobDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{cfg: cfg, store: store, exec: exec, clk: clk, log: jobLog, logger: logger, cancel: cancel, metrics: newJobMetrics()}
}

// Run executes the loop described in spec.md §4.5 until ctx is cancelled or
// the cancel channel closes. It never returns an error for a failing job —
// failures are handled per-job (step 8) and logged, so "a single bad job
// must never kill a Worker" (spec.md §7).
func (w *Worker) Run(ctx context.Context) {
	for {
		if w.shouldStop() {
			w.logger.Info("worker stopping", "worker", w.cfg.Name)
			return
		}

		job, err := w.store.ClaimNext(ctx, w.clk)
		if err != nil {
			w.logger.Error("claim failed", "worker", w.cfg.Name, "error", err)
			if w.sleep(ctx, w.cfg.IdleInterval) {
				return
			}
			continue
		}
		if job == nil {
			if w.sleep(ctx, w.cfg.IdleInterval) {
				return
			}
			continue
		}

		w.runOne(ctx, job)

		if w.shouldStop() {
			return
		}
		if w.sleep(ctx, w.cfg.InterJobDelay) {
			return
		}
	}
}

// RunOnce claims and processes at most one job, returning whether a job was
// claimed. It is the unit the test suite drives directly, mirroring
// internal/application/worker/worker.go's RunProcessOnce.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNext(ctx, w.clk)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	w.runOne(ctx, job)
	return true, nil
}

func (w *Worker) runOne(ctx context.Context, job *domain.Job) {
	w.metrics.incClaimed(ctx)
	ctx, span := startJobSpan(ctx, w.cfg.Name, job.ID, job.Command, job.Attempts, job.MaxRetries)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			// A panicking job must not take the Worker down with it
			// (spec.md §7: "a single bad job must never kill a Worker").
			w.logger.Error("job panicked", "worker", w.cfg.Name, "job_id", job.ID, "panic", r)
			w.metrics.incFailed(ctx)
			w.handleFailure(ctx, job)
		}
	}()

	w.log.Header(job.ID, job.Command, w.cfg.JobTimeout)
	w.logger.Info("job claimed", "worker", w.cfg.Name, "job_id", job.ID, "command", job.Command)

	outcome, err := w.exec.Run(ctx, job.Command, w.cfg.JobTimeout)
	if err != nil {
		w.log.Error(job.ID, err)
		w.logger.Error("executor failed to start command", "worker", w.cfg.Name, "job_id", job.ID, "error", err)
		recordSpanError(span, err)
		w.metrics.incFailed(ctx)
		w.handleFailure(ctx, job)
		return
	}

	w.log.Outcome(job.ID, outcome)
	if outcome.TimedOut {
		w.log.Timeout(job.ID, w.cfg.JobTimeout)
		w.logger.Warn("job timed out", "worker", w.cfg.Name, "job_id", job.ID, "timeout", w.cfg.JobTimeout)
		w.metrics.incFailed(ctx)
		w.handleFailure(ctx, job)
		return
	}

	if outcome.ExitCode == 0 {
		if err := w.store.MarkCompleted(ctx, w.clk, job.ID); err != nil {
			w.logger.Error("mark completed failed", "worker", w.cfg.Name, "job_id", job.ID, "error", err)
			recordSpanError(span, err)
		} else {
			w.logger.Info("job completed", "worker", w.cfg.Name, "job_id", job.ID)
			w.metrics.incCompleted(ctx)
		}
		return
	}

	w.logger.Warn("job exited non-zero", "worker", w.cfg.Name, "job_id", job.ID, "exit_code", outcome.ExitCode)
	w.metrics.incFailed(ctx)
	w.handleFailure(ctx, job)
}

// handleFailure implements spec.md §4.5 step 8: increment attempts, decide
// dead-vs-reschedule, and fall back to mark_dead if anything in this path
// itself errors (the "safety fallback" of spec.md §7's StoreError handling).
func (w *Worker) handleFailure(ctx context.Context, job *domain.Job) {
	if err := w.store.IncrementAttempts(ctx, job.ID); err != nil {
		w.logger.Error("increment attempts failed, forcing dead", "worker", w.cfg.Name, "job_id", job.ID, "error", err)
		w.forceDead(ctx, job.ID)
		return
	}

	current, err := w.store.Get(ctx, job.ID)
	if err != nil {
		w.logger.Error("reload job failed, forcing dead", "worker", w.cfg.Name, "job_id", job.ID, "error", err)
		w.forceDead(ctx, job.ID)
		return
	}

	decision := retrypolicy.Decide(w.cfg.RetryPolicy, current.Attempts, w.clk)
	if decision.Dead {
		if err := w.store.MarkDead(ctx, w.clk, job.ID); err != nil {
			w.logger.Error("mark dead failed", "worker", w.cfg.Name, "job_id", job.ID, "error", err)
			return
		}
		w.metrics.incDead(ctx)
		w.logger.Error("job moved to dead letter queue", "worker", w.cfg.Name, "job_id", job.ID, "attempts", current.Attempts)
		return
	}

	if err := w.store.Reschedule(ctx, w.clk, job.ID, decision.NextRunAt); err != nil {
		w.logger.Error("reschedule failed, forcing dead", "worker", w.cfg.Name, "job_id", job.ID, "error", err)
		w.forceDead(ctx, job.ID)
		return
	}
	w.logger.Info("job rescheduled", "worker", w.cfg.Name, "job_id", job.ID,
		"attempts", current.Attempts, "next_run_at", decision.NextRunAt)
}

func (w *Worker) forceDead(ctx context.Context, id string) {
	if err := w.store.MarkDead(ctx, w.clk, id); err != nil {
		w.logger.Error("safety-fallback mark dead failed", "worker", w.cfg.Name, "job_id", id, "error", err)
		return
	}
	w.metrics.incDead(ctx)
}

func (w *Worker) shouldStop() bool {
	select {
	case <-w.cancel:
		return true
	default:
		return false
	}
}

// sleep waits for d or an early cancellation signal. Returns true if the
// caller should stop.
func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return true
	case <-w.cancel:
		return true
	case <-timer.C:
		return false
	}
}
