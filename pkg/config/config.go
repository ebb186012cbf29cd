package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/httpsys/pkg/api"
)

// Config is the httpsys server configuration: the ambient settings of the
// process and the HTTP Server API listener with its delegation rules.
//
// Environment variables (HTTPSYS_SECTION_KEY) override the file, which
// overrides ApplyDefaults.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout bounds listener and API shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	API     api.APIConfig `mapstructure:"api" yaml:"api"`

	Listener ListenerConfig `mapstructure:"listener" yaml:"listener"`

	// Delegation rules are installed after the listener starts.
	Delegation []DelegationConfig `mapstructure:"delegation" validate:"dive" yaml:"delegation,omitempty"`
}

// LoggingConfig selects level, format and destination of the logger.
type LoggingConfig struct {
	// Level is case-insensitive and stored uppercase.
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format" jsonschema:"enum=text,enum=json"`

	// Output is stdout, stderr or a file path. httpsys logs reads the file.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig configures OTLP trace export of listener operations.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the collector as host:port.
	Endpoint   string  `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure   bool    `mapstructure:"insecure" yaml:"insecure"`
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig configures Pyroscope.
type ProfilingConfig struct {
	Enabled      bool     `mapstructure:"enabled" yaml:"enabled"`
	Endpoint     string   `mapstructure:"endpoint" yaml:"endpoint"`
	ProfileTypes []string `mapstructure:"profile_types" validate:"dive,oneof=cpu alloc_objects alloc_space inuse_objects inuse_space goroutines mutex_count mutex_duration block_count block_duration" yaml:"profile_types"`
}

// MetricsConfig enables the Prometheus collectors, served on the API
// server's /metrics.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// ListenerConfig configures the request queue owned by the server.
type ListenerConfig struct {
	// QueueName names the request queue. Required when QueueMode attaches.
	QueueName string `mapstructure:"queue_name" validate:"omitempty,max=255,excludesall=\\" yaml:"queue_name"`

	// QueueMode is one of create, attach or create_or_attach
	// Default: create
	QueueMode string `mapstructure:"queue_mode" validate:"required,oneof=create attach create_or_attach" yaml:"queue_mode" jsonschema:"enum=create,enum=attach,enum=create_or_attach"`

	// Controller creates the queue as a controller queue
	Controller bool `mapstructure:"controller" yaml:"controller"`

	// Prefixes are the url prefixes routed to the queue
	// Example: http://+:8080/app/
	Prefixes []string `mapstructure:"prefixes" validate:"dive,required,startswith=http" yaml:"prefixes"`

	// MaxConnections caps concurrent connections. 0 keeps the kernel
	// default, -1 removes the limit.
	MaxConnections int64 `mapstructure:"max_connections" validate:"gte=-1" yaml:"max_connections"`

	// RequestQueueLimit is the number of requests queued before the kernel
	// answers 503. 0 keeps the kernel default.
	RequestQueueLimit uint32 `mapstructure:"request_queue_limit" yaml:"request_queue_limit"`

	// RejectionVerbosity is one of basic, limited or full
	// Default: basic
	RejectionVerbosity string `mapstructure:"rejection_verbosity" validate:"omitempty,oneof=basic limited full" yaml:"rejection_verbosity" jsonschema:"enum=basic,enum=limited,enum=full"`

	// SkipCompletionPortOnSuccess suppresses completion packets for
	// operations that complete synchronously
	SkipCompletionPortOnSuccess bool `mapstructure:"skip_completion_port_on_success" yaml:"skip_completion_port_on_success"`

	// CompletionWorkers is the number of goroutines draining the completion
	// port. 0 uses one per CPU.
	CompletionWorkers int `mapstructure:"completion_workers" validate:"gte=0,lte=256" yaml:"completion_workers"`
}

// DelegationConfig forwards requests for Prefix to the queue QueueName,
// created by another process.
type DelegationConfig struct {
	QueueName string `mapstructure:"queue_name" validate:"required" yaml:"queue_name"`
	Prefix    string `mapstructure:"prefix" validate:"required,startswith=http" yaml:"prefix"`
}

// Load reads configPath, or config.yaml in the default directory when
// configPath is empty, overlays HTTPSYS_* environment variables, applies
// defaults and validates. Without a file the defaults are returned as is.
func Load(configPath string) (*Config, error) {
	v := newViper(configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// MustLoad is Load for commands that need a real file. When the file is
// missing, the error explains how to create it.
func MustLoad(configPath string) (*Config, error) {
	path := configPath
	if path == "" {
		path = GetDefaultConfigPath()
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, missingConfigError(configPath, path)
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func missingConfigError(flag, path string) error {
	if flag == "" {
		return fmt.Errorf("no configuration file at %s\n\n"+
			"Create one with:\n"+
			"  httpsys init\n\n"+
			"or point to another file:\n"+
			"  httpsys <command> --config <path>", path)
	}
	return fmt.Errorf("configuration file not found: %s\n\n"+
		"Create it with:\n"+
		"  httpsys init --config %s", path, path)
}

// SaveConfig writes cfg to path as YAML, creating parent directories.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// newViper binds HTTPSYS_SECTION_KEY variables and points viper at the file
// to read.
func newViper(configPath string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("HTTPSYS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	return v
}

func readConfigFile(v *viper.Viper) (bool, error) {
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		return true, nil
	case errors.As(err, &notFound), errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
}

// configDecodeHooks turns "30s" into a time.Duration and "a,b" into a
// slice, as environment variables arrive as plain strings.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// getConfigDir returns $XDG_CONFIG_HOME/httpsys, falling back to
// ~/.config/httpsys and finally the current directory.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "httpsys")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "httpsys")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
