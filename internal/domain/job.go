// Package domain holds the types and errors shared by every layer of the
// job queue engine: the store, the executor, the retry policy, the worker
// and the worker manager.
package domain

import "time"

// Status is the lifecycle state of a Job. See the state machine in spec.md §3.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	// StatusFailed is reserved for compatibility with the original schema.
	// The core engine never produces it; see DESIGN.md open question.
	StatusFailed Status = "failed"
	StatusDead   Status = "dead"
)

// StatusAll is the sentinel status value accepted by list_by_status meaning
// "no filter".
const StatusAll Status = "all"

// TimeLayout is the on-disk/wire format for all persisted timestamps:
// UTC, second resolution, "YYYY-MM-DD HH:MM:SS".
const TimeLayout = "2006-01-02 15:04:05"

// DefaultPriority is used when a producer does not specify one.
const DefaultPriority = 0

// Job is the single persisted entity of the engine (spec.md §3).
type Job struct {
	ID         string
	Command    string
	Status     Status
	Attempts   int
	MaxRetries int
	Priority   int
	RunAt      time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FormatTime renders t using TimeLayout at second resolution in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(TimeLayout)
}

// ParseTime parses a timestamp previously produced by FormatTime.
func ParseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
