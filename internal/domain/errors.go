package domain

import "errors"

// Error taxonomy per spec.md §7. StoreError is a type rather than a sentinel
// value because it carries context (the operation and the underlying cause);
// callers classify it with errors.As. Timeouts and non-zero exits are not
// errors in this package: they are reported through executor.Outcome's
// TimedOut and ExitCode fields.
var (
	// ErrNotFound is returned by Store.Get and related lookups when no job
	// with the given id exists.
	ErrNotFound = errors.New("job not found")

	// ErrDuplicateID is returned by Store.Add when the caller-supplied id
	// already exists.
	ErrDuplicateID = errors.New("job id already exists")

	// ErrInvalidJobDescriptor is returned at enqueue time for a missing
	// command or malformed job descriptor. The job is never persisted.
	ErrInvalidJobDescriptor = errors.New("invalid job descriptor")

	// ErrShutdownRequested is not an error condition but a control signal
	// propagated through plain Go control flow (a cancelled context); it is
	// kept here only so callers have a named value to compare against when
	// an API wants to report it as an error (e.g. CLI exit codes).
	ErrShutdownRequested = errors.New("shutdown requested")
)

// StoreError wraps a persistence failure, per spec.md §7.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return "store: " + e.Op + ": " + e.Err.Error() }
func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError wraps err as a StoreError unless it already is one.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
