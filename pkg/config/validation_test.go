package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_InvalidAPIPort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.API.Port = 70000

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for port out of range")
	}
	if !strings.Contains(err.Error(), "max") {
		t.Errorf("Expected 'max' validation error, got: %v", err)
	}
}

func TestValidate_TelemetryEnabledWithoutEndpoint(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for telemetry enabled without endpoint")
	}
	if !strings.Contains(err.Error(), "telemetry.endpoint") {
		t.Errorf("Expected error about telemetry endpoint, got: %v", err)
	}
}

func TestValidate_TelemetrySampleRate(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.SampleRate = 1.5

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for sample rate out of range")
	}
}

func TestValidate_UnknownProfileType(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Profiling.ProfileTypes = []string{"cpu", "heat"}

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for unknown profile type")
	}
}

func TestValidate_Listener(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ListenerConfig)
		wantErr string
	}{
		{"unknown mode", func(l *ListenerConfig) { l.QueueMode = "borrow" }, "oneof"},
		{"attach without name", func(l *ListenerConfig) { l.QueueMode = "attach"; l.QueueName = "" }, "queue_name is required"},
		{"create_or_attach without name", func(l *ListenerConfig) { l.QueueMode = "create_or_attach"; l.QueueName = "" }, "queue_name is required"},
		{"backslash in name", func(l *ListenerConfig) { l.QueueName = `bad\name` }, "excludesall"},
		{"prefix without scheme", func(l *ListenerConfig) { l.Prefixes = []string{"localhost:8080/"} }, "startswith"},
		{"empty prefix", func(l *ListenerConfig) { l.Prefixes = []string{""} }, "required"},
		{"duplicate prefix", func(l *ListenerConfig) {
			l.Prefixes = []string{"http://localhost:8080/app/", "http://LOCALHOST:8080/app"}
		}, "duplicate prefix"},
		{"max connections below -1", func(l *ListenerConfig) { l.MaxConnections = -2 }, "gte"},
		{"unknown verbosity", func(l *ListenerConfig) { l.RejectionVerbosity = "loud" }, "oneof"},
		{"negative workers", func(l *ListenerConfig) { l.CompletionWorkers = -1 }, "gte"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(&cfg.Listener)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_AttachWithName(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Listener.QueueMode = "attach"
	cfg.Listener.QueueName = "existing"
	cfg.Listener.Prefixes = nil

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected attach with a name to be valid, got: %v", err)
	}
}

func TestValidate_Delegation(t *testing.T) {
	tests := []struct {
		name    string
		rules   []DelegationConfig
		wantErr string
	}{
		{"missing queue name", []DelegationConfig{{Prefix: "http://localhost:8080/a/"}}, "QueueName"},
		{"missing prefix", []DelegationConfig{{QueueName: "other"}}, "Prefix"},
		{"own queue", []DelegationConfig{{QueueName: "HTTPSYS", Prefix: "http://localhost:8080/a/"}}, "own queue"},
		{"delegated twice", []DelegationConfig{
			{QueueName: "one", Prefix: "http://localhost:8080/a/"},
			{QueueName: "two", Prefix: "http://LOCALHOST:8080/a/"},
		}, "delegated twice"},
		{"delegated twice without slash", []DelegationConfig{
			{QueueName: "one", Prefix: "http://localhost:8080/a/"},
			{QueueName: "two", Prefix: "http://LOCALHOST:8080/A"},
		}, "delegated twice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			cfg.Delegation = tt.rules

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_LogLevelNormalization(t *testing.T) {
	for _, level := range []string{"info", "INFO", "debug", "DEBUG", "warn", "WARN", "error", "ERROR"} {
		cfg := GetDefaultConfig()
		cfg.Logging.Level = level

		if err := Validate(cfg); err != nil {
			t.Errorf("Validation failed for level %q: %v", level, err)
		}

		// Validate must not normalize.
		if cfg.Logging.Level != level {
			t.Errorf("Expected level to remain %q after validation, got %q", level, cfg.Logging.Level)
		}
	}

	cfg := &Config{Logging: LoggingConfig{Level: "info"}}
	ApplyDefaults(cfg)
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected ApplyDefaults to normalize 'info' to 'INFO', got %q", cfg.Logging.Level)
	}
}
