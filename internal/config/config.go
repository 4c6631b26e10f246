package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	taskerrors "github.com/maxkimambo/taskpool/internal/errors"
	"github.com/maxkimambo/taskpool/internal/executor"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvWorkers       = "TASKPOOL_WORKERS"
	EnvQueueCapacity = "TASKPOOL_QUEUE_CAPACITY"
	EnvPolicy        = "TASKPOOL_POLICY"
	EnvMetricsAddr   = "TASKPOOL_METRICS_ADDR"
)

// Settings is the resolved configuration of a taskpool run.
type Settings struct {
	Workers         int
	QueueCapacity   int
	Policy          string
	MetricsAddr     string
	ResultTimeout   time.Duration
	ShutdownTimeout time.Duration

	RetryEnabled bool
	Retry        executor.RetryPolicy
}

// Default returns the settings used when nothing else is configured.
func Default() *Settings {
	cfg := executor.DefaultConfig()
	return &Settings{
		Workers:         cfg.PoolSize,
		QueueCapacity:   cfg.QueueCapacity,
		Policy:          cfg.FullPolicy.String(),
		ResultTimeout:   30 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		Retry:           executor.DefaultRetryPolicy(),
	}
}

// FileConfig is the on-disk layout of a config file.
type FileConfig struct {
	Executor ExecutorSection `yaml:"executor" json:"executor"`
	Metrics  MetricsSection  `yaml:"metrics" json:"metrics"`
	Retry    RetrySection    `yaml:"retry" json:"retry"`
}

// ExecutorSection configures the worker pool.
type ExecutorSection struct {
	Workers         int    `yaml:"workers" json:"workers"`
	QueueCapacity   *int   `yaml:"queue_capacity" json:"queue_capacity"`
	Policy          string `yaml:"policy" json:"policy"`
	ResultTimeout   string `yaml:"result_timeout" json:"result_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	Addr string `yaml:"addr" json:"addr"`
}

// RetrySection configures the optional retry decorator.
type RetrySection struct {
	Enabled        bool    `yaml:"enabled" json:"enabled"`
	MaxRetries     int     `yaml:"max_retries" json:"max_retries"`
	InitialBackoff string  `yaml:"initial_backoff" json:"initial_backoff"`
	MaxBackoff     string  `yaml:"max_backoff" json:"max_backoff"`
	BackoffFactor  float64 `yaml:"backoff_factor" json:"backoff_factor"`
	Jitter         *bool   `yaml:"jitter" json:"jitter"`
}

// LoadFile reads a YAML (.yaml, .yml) or JSON (.json) config file.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, taskerrors.NewConfigFileError(path, err)
	}

	var fc FileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, taskerrors.NewConfigFileError(path, fmt.Errorf("failed to parse YAML: %w", err))
		}
	case ".json":
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, taskerrors.NewConfigFileError(path, fmt.Errorf("failed to parse JSON: %w", err))
		}
	default:
		return nil, taskerrors.NewConfigFileError(path, fmt.Errorf("unsupported config format: %s", ext))
	}

	return &fc, nil
}

// Apply overlays the values present in the file onto s.
func (f *FileConfig) Apply(s *Settings) error {
	ex := f.Executor
	if ex.Workers != 0 {
		s.Workers = ex.Workers
	}
	if ex.QueueCapacity != nil {
		s.QueueCapacity = *ex.QueueCapacity
	}
	if ex.Policy != "" {
		s.Policy = ex.Policy
	}
	if err := parseDuration("executor.result_timeout", ex.ResultTimeout, &s.ResultTimeout); err != nil {
		return err
	}
	if err := parseDuration("executor.shutdown_timeout", ex.ShutdownTimeout, &s.ShutdownTimeout); err != nil {
		return err
	}

	if f.Metrics.Addr != "" {
		s.MetricsAddr = f.Metrics.Addr
	}

	r := f.Retry
	s.RetryEnabled = s.RetryEnabled || r.Enabled
	if r.MaxRetries != 0 {
		s.Retry.MaxRetries = r.MaxRetries
	}
	if r.BackoffFactor != 0 {
		s.Retry.BackoffFactor = r.BackoffFactor
	}
	if r.Jitter != nil {
		s.Retry.EnableJitter = *r.Jitter
	}
	if err := parseDuration("retry.initial_backoff", r.InitialBackoff, &s.Retry.InitialBackoff); err != nil {
		return err
	}
	return parseDuration("retry.max_backoff", r.MaxBackoff, &s.Retry.MaxBackoff)
}

func parseDuration(setting, raw string, dst *time.Duration) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return taskerrors.NewInvalidSettingError(setting, raw, "not a duration").WithOriginalError(err)
	}
	*dst = d
	return nil
}

// ApplyEnv overlays TASKPOOL_* variables found by lookup onto s. Pass
// os.LookupEnv in production.
func ApplyEnv(s *Settings, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvWorkers); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return taskerrors.NewEnvVarError(EnvWorkers, v, err)
		}
		s.Workers = n
	}
	if v, ok := lookup(EnvQueueCapacity); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return taskerrors.NewEnvVarError(EnvQueueCapacity, v, err)
		}
		s.QueueCapacity = n
	}
	if v, ok := lookup(EnvPolicy); ok && v != "" {
		s.Policy = v
	}
	if v, ok := lookup(EnvMetricsAddr); ok && v != "" {
		s.MetricsAddr = v
	}
	return nil
}

// Load resolves defaults, then the optional file at path, then the
// environment. Command-line flags are applied by the caller afterwards.
func Load(path string) (*Settings, error) {
	s := Default()
	if path != "" {
		fc, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := fc.Apply(s); err != nil {
			return nil, err
		}
	}
	if err := ApplyEnv(s, os.LookupEnv); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks every setting and reports the first problem as a
// structured configuration error.
func (s *Settings) Validate() error {
	if s.Workers < 1 {
		return taskerrors.NewInvalidSettingError("workers", s.Workers, "must be at least 1")
	}
	if s.QueueCapacity < 0 {
		return taskerrors.NewInvalidSettingError("queue-capacity", s.QueueCapacity, "must be 0 (unbounded) or positive")
	}
	if _, err := executor.ParseFullPolicy(s.Policy); err != nil {
		return taskerrors.NewInvalidSettingError("policy", s.Policy, "must be 'block' or 'fail-fast'").WithOriginalError(err)
	}
	if s.ResultTimeout <= 0 {
		return taskerrors.NewInvalidSettingError("result-timeout", s.ResultTimeout, "must be positive")
	}
	if s.ShutdownTimeout <= 0 {
		return taskerrors.NewInvalidSettingError("shutdown-timeout", s.ShutdownTimeout, "must be positive")
	}
	if s.RetryEnabled {
		if s.Retry.MaxRetries < 0 {
			return taskerrors.NewInvalidSettingError("retry.max_retries", s.Retry.MaxRetries, "must not be negative")
		}
		if s.Retry.BackoffFactor < 1 {
			return taskerrors.NewInvalidSettingError("retry.backoff_factor", s.Retry.BackoffFactor, "must be at least 1")
		}
	}
	return nil
}

// ExecutorConfig validates s and converts it for executor.New.
func (s *Settings) ExecutorConfig() (executor.Config, error) {
	if err := s.Validate(); err != nil {
		return executor.Config{}, err
	}
	policy, _ := executor.ParseFullPolicy(s.Policy)
	return executor.Config{
		PoolSize:      s.Workers,
		QueueCapacity: s.QueueCapacity,
		FullPolicy:    policy,
	}, nil
}

// Decorator returns the task decorator implied by the retry settings, or
// nil when retries are disabled.
func (s *Settings) Decorator() func(executor.Task) executor.Task {
	if !s.RetryEnabled {
		return nil
	}
	policy := s.Retry
	return func(t executor.Task) executor.Task {
		return executor.Retry(policy, t)
	}
}
