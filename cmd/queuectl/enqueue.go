package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/rezkam/queuectl/internal/domain"
)

// runAtLayouts are tried in order against the caller-supplied run_at
// string, covering the "ISO-8601-ish timestamp in any tz" spec.md §6
// requires. Grounded on original_source/cli/enqueue.py's use of
// `dateutil.parser.parse`, which is far more permissive than Go's
// time.Parse; this is the closest practical equivalent without pulling in
// a third-party date parser the rest of the pack never reaches for.
var runAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseRunAt(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range runAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		} else if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// jobDescriptor mirrors the producer interface of spec.md §6: `command` is
// required, everything else defaults from configuration or to constants.
type jobDescriptor struct {
	ID         string `json:"id,omitempty"`
	Command    string `json:"command"`
	MaxRetries *int   `json:"max_retries,omitempty"`
	Priority   *int   `json:"priority,omitempty"`
	RunAt      string `json:"run_at,omitempty"`
}

func newEnqueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enqueue <json>",
		Short: "Submit a job descriptor to the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnqueue(cmd, args[0])
		},
	}
	return cmd
}

func runEnqueue(cmd *cobra.Command, raw string) error {
	var desc jobDescriptor
	if err := json.Unmarshal([]byte(raw), &desc); err != nil {
		return fail(fmt.Errorf("%w: %v", domain.ErrInvalidJobDescriptor, err))
	}
	if desc.Command == "" {
		return fail(fmt.Errorf("%w: command is required", domain.ErrInvalidJobDescriptor))
	}

	cfgMgr, err := cli.openConfigManager()
	if err != nil {
		return fail(err)
	}
	engineCfg, err := cfgMgr.Load()
	if err != nil {
		return fail(err)
	}

	id := desc.ID
	if id == "" {
		id = uuid.NewString()
	}

	maxRetries := engineCfg.MaxRetries
	if desc.MaxRetries != nil {
		maxRetries = *desc.MaxRetries
	}

	priority := domain.DefaultPriority
	if desc.Priority != nil {
		priority = *desc.Priority
	}

	clk := newClock()
	runAt := clk.NowUTC()
	if desc.RunAt != "" {
		if parsed, err := parseRunAt(desc.RunAt); err == nil {
			runAt = parsed
		} else {
			color.Yellow.Fprintf(cmd.ErrOrStderr(), "warning: could not parse run_at %q, defaulting to now\n", desc.RunAt)
		}
	}

	job := &domain.Job{
		ID:         id,
		Command:    desc.Command,
		MaxRetries: maxRetries,
		Priority:   priority,
		RunAt:      runAt,
	}

	ctx, cancel := withTimeout(cmd.Context())
	defer cancel()

	st, err := cli.openStore(ctx)
	if err != nil {
		return fail(err)
	}
	defer st.Close()

	if err := st.Add(ctx, clk, job); err != nil {
		return fail(err)
	}

	succeed("enqueued job %s", id)
	return nil
}
