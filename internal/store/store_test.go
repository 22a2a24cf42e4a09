package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/queuectl/internal/clock"
	"github.com/rezkam/queuectl/internal/domain"
)

func newTestStore(t *testing.T) (*Store, *clock.Fake) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "jobs.db")
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	st, err := Open(context.Background(), Config{Path: dbPath})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st, clk
}

func TestAdd_DuplicateIDRejected(t *testing.T) {
	st, clk := newTestStore(t)
	ctx := context.Background()

	job := &domain.Job{ID: "job-1", Command: "echo hi", MaxRetries: 3}
	require.NoError(t, st.Add(ctx, clk, job))

	err := st.Add(ctx, clk, job)
	assert.ErrorIs(t, err, domain.ErrDuplicateID)
}

func TestAdd_DefaultsRunAtToNow(t *testing.T) {
	st, clk := newTestStore(t)
	ctx := context.Background()

	job := &domain.Job{ID: "job-1", Command: "echo hi", MaxRetries: 3}
	require.NoError(t, st.Add(ctx, clk, job))

	got, err := st.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, got.RunAt.Equal(clk.NowUTC()))
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, 0, got.Attempts)
}

func TestGet_NotFound(t *testing.T) {
	st, _ := newTestStore(t)
	_, err := st.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClaimNext_ReturnsNilWhenEmpty(t *testing.T) {
	st, clk := newTestStore(t)
	job, err := st.ClaimNext(context.Background(), clk)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestClaimNext_OrdersByPriority(t *testing.T) {
	st, clk := newTestStore(t)
	ctx := context.Background()

	low := &domain.Job{ID: "low", Command: "true", Priority: 0}
	high := &domain.Job{ID: "high", Command: "true", Priority: 10}
	require.NoError(t, st.Add(ctx, clk, low))
	require.NoError(t, st.Add(ctx, clk, high))

	claimed, err := st.ClaimNext(ctx, clk)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, "high", claimed.ID)
	assert.Equal(t, domain.StatusProcessing, claimed.Status)
}

func TestClaimNext_RespectsRunAtGating(t *testing.T) {
	st, clk := newTestStore(t)
	ctx := context.Background()

	future := &domain.Job{ID: "future", Command: "true", RunAt: clk.NowUTC().Add(time.Hour)}
	require.NoError(t, st.Add(ctx, clk, future))

	claimed, err := st.ClaimNext(ctx, clk)
	require.NoError(t, err)
	assert.Nil(t, claimed)

	clk.Advance(2 * time.Hour)
	claimed, err = st.ClaimNext(ctx, clk)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, "future", claimed.ID)
}

func TestClaimNext_ExclusiveAcrossCallers(t *testing.T) {
	// property P1: a pending job is claimed by exactly one caller even
	// under concurrent ClaimNext calls against the same store.
	st, clk := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.Add(ctx, clk, &domain.Job{ID: "only", Command: "true"}))

	const n = 8
	results := make(chan *domain.Job, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			job, err := st.ClaimNext(ctx, clk)
			results <- job
			errs <- err
		}()
	}

	claims := 0
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
		if job := <-results; job != nil {
			claims++
		}
	}
	assert.Equal(t, 1, claims)
}

func TestMarkCompleted(t *testing.T) {
	st, clk := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.Add(ctx, clk, &domain.Job{ID: "job-1", Command: "true"}))
	_, err := st.ClaimNext(ctx, clk)
	require.NoError(t, err)

	require.NoError(t, st.MarkCompleted(ctx, clk, "job-1"))

	got, err := st.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
}

func TestMarkDead(t *testing.T) {
	st, clk := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.Add(ctx, clk, &domain.Job{ID: "job-1", Command: "true"}))

	require.NoError(t, st.MarkDead(ctx, clk, "job-1"))

	got, err := st.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDead, got.Status)
}

func TestReschedule(t *testing.T) {
	st, clk := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.Add(ctx, clk, &domain.Job{ID: "job-1", Command: "true"}))
	_, err := st.ClaimNext(ctx, clk)
	require.NoError(t, err)

	next := clk.NowUTC().Add(10 * time.Second)
	require.NoError(t, st.Reschedule(ctx, clk, "job-1", next))

	got, err := st.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.True(t, got.RunAt.Equal(next))
}

func TestIncrementAttempts(t *testing.T) {
	st, clk := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.Add(ctx, clk, &domain.Job{ID: "job-1", Command: "true"}))

	require.NoError(t, st.IncrementAttempts(ctx, "job-1"))
	require.NoError(t, st.IncrementAttempts(ctx, "job-1"))

	got, err := st.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Attempts)
}

func TestResetAttempts(t *testing.T) {
	st, clk := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.Add(ctx, clk, &domain.Job{ID: "job-1", Command: "true"}))
	require.NoError(t, st.IncrementAttempts(ctx, "job-1"))
	require.NoError(t, st.MarkDead(ctx, clk, "job-1"))

	require.NoError(t, st.ResetAttempts(ctx, clk, "job-1"))

	got, err := st.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Attempts)
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestRecoverOrphans(t *testing.T) {
	// property P7: recovering orphans twice in a row is idempotent.
	st, clk := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.Add(ctx, clk, &domain.Job{ID: "job-1", Command: "true"}))
	_, err := st.ClaimNext(ctx, clk)
	require.NoError(t, err)

	n, err := st.RecoverOrphans(ctx, clk)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := st.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)

	n, err = st.RecoverOrphans(ctx, clk)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestListByStatus(t *testing.T) {
	st, clk := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.Add(ctx, clk, &domain.Job{ID: "a", Command: "true"}))
	require.NoError(t, st.Add(ctx, clk, &domain.Job{ID: "b", Command: "true"}))
	require.NoError(t, st.MarkDead(ctx, clk, "b"))

	pending, err := st.ListByStatus(ctx, domain.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "a", pending[0].ID)

	all, err := st.ListByStatus(ctx, domain.StatusAll)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSummaryAndPurgeDead(t *testing.T) {
	st, clk := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.Add(ctx, clk, &domain.Job{ID: "a", Command: "true"}))
	require.NoError(t, st.Add(ctx, clk, &domain.Job{ID: "b", Command: "true"}))
	require.NoError(t, st.MarkDead(ctx, clk, "b"))

	summary, err := st.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary[domain.StatusPending])
	assert.Equal(t, 1, summary[domain.StatusDead])

	n, err := st.PurgeDead(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = st.Get(ctx, "b")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
