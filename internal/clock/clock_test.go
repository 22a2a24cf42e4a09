package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystem_TruncatesToSeconds(t *testing.T) {
	now := System{}.NowUTC()
	assert.Equal(t, now, now.Truncate(time.Second))
	assert.Equal(t, time.UTC, now.Location())
}

func TestFake_SetAndAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f := NewFake(start)

	assert.Equal(t, start, f.NowUTC())

	f.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), f.NowUTC())

	later := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	f.Set(later)
	assert.Equal(t, later, f.NowUTC())
}

func TestFake_TruncatesNonUTCInputToSeconds(t *testing.T) {
	loc := time.FixedZone("X", -3600)
	f := NewFake(time.Date(2026, 1, 1, 0, 0, 0, 500_000_000, loc))

	got := f.NowUTC()
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, 0, got.Nanosecond())
}
