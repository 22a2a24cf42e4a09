// Package retrypolicy implements the pure decision function that maps a
// failed job's post-increment attempt count to either a dead-letter
// transition or a rescheduled run_at (spec.md §4.4).
//
// Grounded on the teacher's backoff/retry configuration style in
// internal/application/worker/coordinator.go (RetryConfig, DefaultRetryConfig),
// adapted from a fixed-window jittered backoff to the spec's unjittered,
// uncapped exponential-in-attempts backoff (original_source/core/worker_engine.py
// _handle_failure: delay = backoff_base ** current_attempts).
package retrypolicy

import (
	"math"
	"time"

	"github.com/rezkam/queuectl/internal/clock"
)

// Config holds the parameters of the decision function.
type Config struct {
	// MaxRetries is the attempts threshold at or above which a job is
	// moved to the dead letter queue instead of being rescheduled.
	MaxRetries int
	// BackoffBase is the base of the exponential backoff; delay for the
	// k-th post-increment attempt is BackoffBase^k seconds.
	BackoffBase int
}

// DefaultConfig mirrors original_source/core/config.py's DEFAULT_CONFIG.
func DefaultConfig() Config {
	return Config{MaxRetries: 3, BackoffBase: 2}
}

// Decision is the outcome of Decide: either the job goes to the dead letter
// queue, or it is rescheduled for NextRunAt.
type Decision struct {
	Dead      bool
	NextRunAt time.Time
}

// Decide implements the retry policy of spec.md §4.4. attemptsAfterIncrement
// is the job's attempts counter *after* Store.IncrementAttempts has already
// run; the caller is responsible for that ordering (see internal/worker).
func Decide(cfg Config, attemptsAfterIncrement int, clk clock.Clock) Decision {
	if attemptsAfterIncrement >= cfg.MaxRetries {
		return Decision{Dead: true}
	}
	delay := backoffDelay(cfg.BackoffBase, attemptsAfterIncrement)
	return Decision{NextRunAt: clk.NowUTC().Add(delay)}
}

// backoffDelay returns BackoffBase^attempts seconds. No jitter, no cap —
// the engine preserves the original's observable behavior (spec.md §4.4, §9).
func backoffDelay(base, attempts int) time.Duration {
	seconds := math.Pow(float64(base), float64(attempts))
	return time.Duration(seconds) * time.Second
}
