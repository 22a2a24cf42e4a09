package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_CreatesDefaultsOnFirstUse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	mgr, err := NewManager(path)
	require.NoError(t, err)

	cfg, err := mgr.Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestManager_SetAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	mgr, err := NewManager(path)
	require.NoError(t, err)

	require.NoError(t, mgr.Set("max_retries", 10))

	v, err := mgr.Get("max_retries")
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	// unrelated fields are untouched by a partial Set
	cfg, err := mgr.Load()
	require.NoError(t, err)
	assert.Equal(t, Default().BackoffBase, cfg.BackoffBase)
}

func TestManager_SetUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	mgr, err := NewManager(path)
	require.NoError(t, err)

	err = mgr.Set("not_a_real_key", 1)
	assert.Error(t, err)
}

func TestManager_GetUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	mgr, err := NewManager(path)
	require.NoError(t, err)

	_, err = mgr.Get("not_a_real_key")
	assert.Error(t, err)
}

func TestManager_Reset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	mgr, err := NewManager(path)
	require.NoError(t, err)

	require.NoError(t, mgr.Set("worker_count", 9))
	require.NoError(t, mgr.Reset())

	cfg, err := mgr.Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestManager_ReopensExistingFileWithoutOverwriting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	first, err := NewManager(path)
	require.NoError(t, err)
	require.NoError(t, first.Set("job_timeout", 120))

	second, err := NewManager(path)
	require.NoError(t, err)
	cfg, err := second.Load()
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.JobTimeout)
}
