package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Success(t *testing.T) {
	e := New()
	outcome, err := e.Run(context.Background(), "echo hello", time.Second)

	require.NoError(t, err)
	assert.Equal(t, 0, outcome.ExitCode)
	assert.Contains(t, outcome.Stdout, "hello")
	assert.False(t, outcome.TimedOut)
}

func TestRun_NonZeroExit(t *testing.T) {
	e := New()
	outcome, err := e.Run(context.Background(), "exit 7", time.Second)

	require.NoError(t, err)
	assert.Equal(t, 7, outcome.ExitCode)
	assert.False(t, outcome.TimedOut)
}

func TestRun_CapturesStderr(t *testing.T) {
	e := New()
	outcome, err := e.Run(context.Background(), "echo oops 1>&2", time.Second)

	require.NoError(t, err)
	assert.Contains(t, outcome.Stderr, "oops")
}

func TestRun_Timeout(t *testing.T) {
	e := New()
	outcome, err := e.Run(context.Background(), "sleep 5", 50*time.Millisecond)

	require.NoError(t, err)
	assert.True(t, outcome.TimedOut)
	assert.Equal(t, -1, outcome.ExitCode)
}
