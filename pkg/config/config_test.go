package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_MinimalConfig(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "info"

listener:
  prefixes:
    - "http://+:8080/app/"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected normalized level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Listener.QueueMode != "create" {
		t.Errorf("Expected default queue mode 'create', got %q", cfg.Listener.QueueMode)
	}
	if cfg.Listener.QueueName != DefaultQueueName {
		t.Errorf("Expected default queue name %q, got %q", DefaultQueueName, cfg.Listener.QueueName)
	}
	if len(cfg.Listener.Prefixes) != 1 || cfg.Listener.Prefixes[0] != "http://+:8080/app/" {
		t.Errorf("Unexpected prefixes: %v", cfg.Listener.Prefixes)
	}
	if cfg.API.Port != 9180 {
		t.Errorf("Expected default API port 9180, got %d", cfg.API.Port)
	}
}

func TestLoad_FullListenerSection(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
shutdown_timeout: 5s

listener:
  queue_name: "frontend"
  queue_mode: "create-or-attach"
  controller: true
  prefixes:
    - "http://+:8080/"
    - "https://+:8443/"
  max_connections: -1
  request_queue_limit: 2000
  rejection_verbosity: "Limited"
  skip_completion_port_on_success: true
  completion_workers: 4

delegation:
  - queue_name: "backend"
    prefix: "http://+:8080/api/"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	l := cfg.Listener
	if l.QueueMode != "create_or_attach" {
		t.Errorf("Expected normalized queue mode, got %q", l.QueueMode)
	}
	if !l.Controller || !l.SkipCompletionPortOnSuccess {
		t.Errorf("Expected boolean flags to be set: %+v", l)
	}
	if l.MaxConnections != -1 {
		t.Errorf("Expected max_connections -1, got %d", l.MaxConnections)
	}
	if l.RequestQueueLimit != 2000 {
		t.Errorf("Expected request_queue_limit 2000, got %d", l.RequestQueueLimit)
	}
	if l.RejectionVerbosity != "limited" {
		t.Errorf("Expected normalized verbosity 'limited', got %q", l.RejectionVerbosity)
	}
	if l.CompletionWorkers != 4 {
		t.Errorf("Expected 4 completion workers, got %d", l.CompletionWorkers)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("Expected shutdown_timeout 5s, got %v", cfg.ShutdownTimeout)
	}
	if len(cfg.Delegation) != 1 || cfg.Delegation[0].QueueName != "backend" {
		t.Errorf("Unexpected delegation rules: %+v", cfg.Delegation)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Expected no error when loading default config, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected default config to be returned")
	}
	if len(cfg.Listener.Prefixes) != 1 || cfg.Listener.Prefixes[0] != DefaultPrefix {
		t.Errorf("Expected default prefix, got %v", cfg.Listener.Prefixes)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid.yaml", `
logging:
  level: INFO
  invalid yaml here [[[
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_InvalidQueueMode(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
listener:
  queue_mode: "borrow"
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected validation error for unknown queue mode")
	}
}

func TestLoad_TOML(t *testing.T) {
	configPath := writeConfig(t, "config.toml", `
[logging]
level = "WARN"
format = "json"

[listener]
queue_name = "toml-queue"
prefixes = ["http://localhost:9000/"]
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}
	if cfg.Logging.Level != "WARN" || cfg.Logging.Format != "json" {
		t.Errorf("Unexpected logging config: %+v", cfg.Logging)
	}
	if cfg.Listener.QueueName != "toml-queue" {
		t.Errorf("Expected queue name 'toml-queue', got %q", cfg.Listener.QueueName)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("HTTPSYS_LOGGING_LEVEL", "ERROR")
	t.Setenv("HTTPSYS_API_PORT", "9999")

	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "INFO"

api:
  port: 9180
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.API.Port != 9999 {
		t.Errorf("Expected port 9999 from env var, got %d", cfg.API.Port)
	}
}

func TestMustLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	_, err := MustLoad(path)
	if err == nil {
		t.Fatal("Expected error for missing config file")
	}
	if got := err.Error(); !strings.Contains(got, "httpsys init --config") {
		t.Errorf("Expected init instructions, got: %v", got)
	}
}

func TestMustLoad_NoDefaultConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if _, err := MustLoad(""); err == nil {
		t.Fatal("Expected error when the default config does not exist")
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Listener.QueueName = "saved"
	cfg.Delegation = []DelegationConfig{{QueueName: "other", Prefix: "http://localhost:8080/other/"}}

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}
	if loaded.Listener.QueueName != "saved" {
		t.Errorf("Expected queue name 'saved', got %q", loaded.Listener.QueueName)
	}
	if len(loaded.Delegation) != 1 || loaded.Delegation[0].Prefix != "http://localhost:8080/other/" {
		t.Errorf("Unexpected delegation rules: %+v", loaded.Delegation)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path := GetDefaultConfigPath()
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected config.yaml, got %q", filepath.Base(path))
	}
	if filepath.Base(filepath.Dir(path)) != "httpsys" {
		t.Errorf("Expected directory 'httpsys', got %q", filepath.Dir(path))
	}
}

func TestDefaultConfigExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if DefaultConfigExists() {
		t.Fatal("Expected no default config in an empty directory")
	}
	if _, err := InitConfig(false); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if !DefaultConfigExists() {
		t.Error("Expected default config to exist after InitConfig")
	}
}
