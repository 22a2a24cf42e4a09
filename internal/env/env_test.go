package env

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testOverrides struct {
	DataDir string `env:"TEST_DATA_DIR"`
	Enabled bool   `env:"TEST_ENABLED"`
}

func TestLoad(t *testing.T) {
	os.Clearenv()
	os.Setenv("TEST_DATA_DIR", "/var/lib/queuectl")
	os.Setenv("TEST_ENABLED", "true")

	var cfg testOverrides
	require.NoError(t, Load(&cfg))

	assert.Equal(t, "/var/lib/queuectl", cfg.DataDir)
	assert.True(t, cfg.Enabled)
}

func TestLoad_ZeroValuesForUnset(t *testing.T) {
	os.Clearenv()

	var cfg testOverrides
	require.NoError(t, Load(&cfg))

	assert.Empty(t, cfg.DataDir)
	assert.False(t, cfg.Enabled)
}

func TestLoad_EmptyStringRespected(t *testing.T) {
	os.Clearenv()
	os.Setenv("TEST_DATA_DIR", "")

	var cfg testOverrides
	require.NoError(t, Load(&cfg))
	assert.Equal(t, "", cfg.DataDir)
}

func TestLoad_InvalidBoolValue(t *testing.T) {
	os.Clearenv()
	os.Setenv("TEST_ENABLED", "not-a-bool")

	var cfg testOverrides
	err := Load(&cfg)

	require.Error(t, err)
	var invalidErr ErrInvalidValue
	require.True(t, errors.As(err, &invalidErr))
	assert.Equal(t, "Enabled", invalidErr.Field)
	assert.Equal(t, "TEST_ENABLED", invalidErr.EnvVar)
	assert.Equal(t, "not-a-bool", invalidErr.Value)
}

func TestLoad_BoolValueVariants(t *testing.T) {
	tests := []struct {
		value    string
		expected bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"false", false},
		{"FALSE", false},
		{"0", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("TEST_ENABLED", tt.value)

			var cfg testOverrides
			require.NoError(t, Load(&cfg))
			assert.Equal(t, tt.expected, cfg.Enabled)
		})
	}
}

func TestLoad_NotStructPointer(t *testing.T) {
	t.Run("non-pointer fails", func(t *testing.T) {
		var cfg testOverrides
		err := Load(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pointer to struct")
	})

	t.Run("pointer to non-struct fails", func(t *testing.T) {
		var s string
		err := Load(&s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pointer to struct")
	})
}

func TestLoad_UnsupportedFieldTypeErrors(t *testing.T) {
	type unsupported struct {
		Count int `env:"TEST_COUNT"`
	}

	os.Clearenv()
	os.Setenv("TEST_COUNT", "5")

	var cfg unsupported
	err := Load(&cfg)
	require.Error(t, err)
	var invalidErr ErrInvalidValue
	require.True(t, errors.As(err, &invalidErr))
}
