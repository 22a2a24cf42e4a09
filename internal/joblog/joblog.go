// Package joblog writes the per-job append-only log files described in
// spec.md §5 and §6 (logs/{job_id}.log). It is the external "log-writer
// collaborator" that Worker step 4 invokes; failures here are swallowed
// per spec.md §4.5 step 4 ("failures swallowed") and never affect job
// outcome.
//
// Grounded directly on original_source/core/worker_engine.py's
// _write_log_header / _write_job_output / _append_to_log trio, translated
// into a small value type rather than free functions.
package joblog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rezkam/queuectl/internal/executor"
)

// Writer appends to a job's log file under dir.
type Writer struct {
	dir string
}

// New returns a Writer rooted at dir. dir is created on the first write if
// it does not exist yet.
func New(dir string) *Writer {
	return &Writer{dir: dir}
}

func (w *Writer) path(jobID string) string {
	return filepath.Join(w.dir, jobID+".log")
}

func (w *Writer) append(jobID, text string) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return
	}
	f, err := os.OpenFile(w.path(jobID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintln(f, text)
}

// Header writes the start-of-job header: timestamp, command, timeout.
func (w *Writer) Header(jobID, command string, timeout time.Duration) {
	w.append(jobID, fmt.Sprintf("[%s] START JOB %s\nCOMMAND: %s\nTIMEOUT: %ds\n",
		time.Now().UTC().Format(time.RFC3339), jobID, command, int(timeout.Seconds())))
}

// Outcome writes the stdout/stderr/exit-code/duration footer for a
// completed (or failed) execution.
func (w *Writer) Outcome(jobID string, out executor.Outcome) {
	stdout := out.Stdout
	if stdout == "" {
		stdout = "(no output)"
	}
	stderr := out.Stderr
	if stderr == "" {
		stderr = "(no errors)"
	}
	w.append(jobID, fmt.Sprintf(
		"=== STDOUT ===\n%s\n=== STDERR ===\n%s\nEXIT CODE: %d\nDURATION: %.3fs\n[%s] END JOB",
		stdout, stderr, out.ExitCode, out.Duration.Seconds(), time.Now().UTC().Format(time.RFC3339),
	))
}

// Timeout appends a timeout marker to the log.
func (w *Writer) Timeout(jobID string, timeout time.Duration) {
	w.append(jobID, fmt.Sprintf("TIMEOUT: exceeded %ds limit.", int(timeout.Seconds())))
}

// Error appends an arbitrary error marker to the log.
func (w *Writer) Error(jobID string, err error) {
	w.append(jobID, fmt.Sprintf("ERROR: %v", err))
}
