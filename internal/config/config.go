// Package config manages the engine's single JSON-persisted configuration
// document (spec.md §6): max_retries, backoff_base, worker_count,
// job_timeout. It is the Go translation of
// original_source/core/config.py's ConfigManager — same default values,
// same "create on first use" and "read-modify-write whole document" shape —
// adapted to Go's strong typing in place of Python's untyped dict.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the values persisted in config.json.
type Config struct {
	MaxRetries  int `json:"max_retries"`
	BackoffBase int `json:"backoff_base"`
	WorkerCount int `json:"worker_count"`
	JobTimeout  int `json:"job_timeout"` // seconds
}

// Default mirrors original_source/core/config.py's DEFAULT_CONFIG.
func Default() Config {
	return Config{
		MaxRetries:  3,
		BackoffBase: 2,
		WorkerCount: 1,
		JobTimeout:  30,
	}
}

// Manager handles persistence of Config to a JSON file, creating it with
// Default values on first use.
type Manager struct {
	path string
}

// NewManager returns a Manager backed by path, creating the file with
// default values if it does not already exist.
func NewManager(path string) (*Manager, error) {
	m := &Manager{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := m.Save(Default()); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat config: %w", err)
	}
	return m, nil
}

// Load reads the full configuration document.
func (m *Manager) Load() (Config, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Save writes the full configuration document, creating parent directories
// as needed.
func (m *Manager) Save(cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(m.path, data, 0o644)
}

// Reset restores the configuration to its default values.
func (m *Manager) Reset() error {
	return m.Save(Default())
}

// Get retrieves a single configuration value by key name ("max_retries",
// "backoff_base", "worker_count", "job_timeout").
func (m *Manager) Get(key string) (int, error) {
	cfg, err := m.Load()
	if err != nil {
		return 0, err
	}
	v, ok := fieldOf(cfg, key)
	if !ok {
		return 0, fmt.Errorf("unknown config key: %s", key)
	}
	return v, nil
}

// Set updates a single configuration value by key name and persists the
// document. Values with numeric syntax are coerced by the CLI layer before
// reaching Set (spec.md §6: "values with numeric or boolean syntax are
// coerced on write").
func (m *Manager) Set(key string, value int) error {
	cfg, err := m.Load()
	if err != nil {
		return err
	}
	if !setField(&cfg, key, value) {
		return fmt.Errorf("unknown config key: %s", key)
	}
	return m.Save(cfg)
}

func fieldOf(cfg Config, key string) (int, bool) {
	switch key {
	case "max_retries":
		return cfg.MaxRetries, true
	case "backoff_base":
		return cfg.BackoffBase, true
	case "worker_count":
		return cfg.WorkerCount, true
	case "job_timeout":
		return cfg.JobTimeout, true
	default:
		return 0, false
	}
}

func setField(cfg *Config, key string, value int) bool {
	switch key {
	case "max_retries":
		cfg.MaxRetries = value
	case "backoff_base":
		cfg.BackoffBase = value
	case "worker_count":
		cfg.WorkerCount = value
	case "job_timeout":
		cfg.JobTimeout = value
	default:
		return false
	}
	return true
}
