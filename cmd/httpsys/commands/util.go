package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/marmos91/httpsys/internal/logger"
	"github.com/marmos91/httpsys/pkg/apiclient"
	"github.com/marmos91/httpsys/pkg/config"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// GetDefaultStateDir returns the default state directory path.
func GetDefaultStateDir() string {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return os.TempDir()
		}
		stateDir = filepath.Join(homeDir, ".local", "state")
	}
	return filepath.Join(stateDir, "httpsys")
}

// GetDefaultPidFile returns the default PID file path.
func GetDefaultPidFile() string {
	return filepath.Join(GetDefaultStateDir(), "httpsys.pid")
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}

// resolveAPIURL returns the --api-url flag, or the management API address
// from the configuration when the flag is unset.
func resolveAPIURL() (string, error) {
	if apiURL != "" {
		return apiURL, nil
	}
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.API.IsEnabled() {
		return "", fmt.Errorf("management API is disabled in the configuration\nEnable 'api.enabled' or pass --api-url")
	}
	return "http://" + cfg.API.Addr(), nil
}

// newAPIClient builds a client for the management API of a running listener.
func newAPIClient() (*apiclient.Client, error) {
	url, err := resolveAPIURL()
	if err != nil {
		return nil, err
	}
	return apiclient.New(url), nil
}
