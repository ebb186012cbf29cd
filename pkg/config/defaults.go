package config

import (
	"strings"
	"time"

	"github.com/marmos91/httpsys/internal/telemetry"
)

// Default values shared by ApplyDefaults and the generated config file.
const (
	DefaultQueueName          = "httpsys"
	DefaultQueueMode          = "create"
	DefaultRejectionVerbosity = "basic"
	DefaultPrefix             = "http://localhost:8080/"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
// Zero values are replaced, explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	cfg.API.ApplyDefaults()
	applyListenerDefaults(&cfg.Listener)
}

// applyLoggingDefaults sets logging defaults and normalizes the level.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	defaults := telemetry.DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaults.Endpoint
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = defaults.SampleRate
	}

	applyProfilingDefaults(&cfg.Profiling)
}

func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyListenerDefaults sets listener defaults. Prefixes have no default:
// an empty list is valid for a queue that only receives delegated requests
// or is attached to.
func applyListenerDefaults(cfg *ListenerConfig) {
	if cfg.QueueMode == "" {
		cfg.QueueMode = DefaultQueueMode
	}
	cfg.QueueMode = strings.ToLower(strings.ReplaceAll(cfg.QueueMode, "-", "_"))

	if cfg.QueueName == "" && cfg.QueueMode == DefaultQueueMode {
		cfg.QueueName = DefaultQueueName
	}

	if cfg.RejectionVerbosity == "" {
		cfg.RejectionVerbosity = DefaultRejectionVerbosity
	}
	cfg.RejectionVerbosity = strings.ToLower(cfg.RejectionVerbosity)
}

// GetDefaultConfig returns a Config with all default values applied and a
// single localhost prefix. It is used for generated config files and when no
// config file exists.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Listener: ListenerConfig{
			Prefixes: []string{DefaultPrefix},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
