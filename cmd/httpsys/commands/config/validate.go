package config

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/marmos91/httpsys/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the httpsys configuration file.

Checks for syntax errors, missing required fields, and invalid values, then
reports settings that are valid but likely unintended.

Examples:
  # Validate default config
  httpsys config validate

  # Validate specific config file
  httpsys config validate --config C:\ProgramData\httpsys\config.yaml`,
	RunE: runConfigValidate,
}

// configWarnings lists valid settings that are likely mistakes.
func configWarnings(cfg *config.Config) []string {
	var warnings []string

	if len(cfg.Listener.Prefixes) == 0 {
		warnings = append(warnings, "No listener prefixes configured - the queue will receive no requests")
	}
	if cfg.Listener.MaxConnections < 0 {
		warnings = append(warnings, "listener.max_connections is -1 - concurrent connections are unlimited")
	}
	if cfg.Listener.QueueMode != "create" && cfg.Listener.Controller {
		warnings = append(warnings, "listener.controller only applies when the queue is created")
	}
	if cfg.Listener.RejectionVerbosity == "full" {
		warnings = append(warnings, "listener.rejection_verbosity is full - 503 responses expose the rejection reason")
	}
	if cfg.API.IsEnabled() {
		if ip := net.ParseIP(cfg.API.Address); ip != nil && !ip.IsLoopback() {
			warnings = append(warnings, fmt.Sprintf("Management API listens on %s without authentication", cfg.API.Address))
		}
	}

	return warnings
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if warnings := configWarnings(cfg); len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(out, "  Queue:           %s (%s)\n", cfg.Listener.QueueName, cfg.Listener.QueueMode)
	_, _ = fmt.Fprintf(out, "  Prefixes:        %d\n", len(cfg.Listener.Prefixes))
	_, _ = fmt.Fprintf(out, "  Delegations:     %d\n", len(cfg.Delegation))
	if cfg.API.IsEnabled() {
		_, _ = fmt.Fprintf(out, "  API address:     %s\n", cfg.API.Addr())
	} else {
		_, _ = fmt.Fprintf(out, "  API address:     disabled\n")
	}
	_, _ = fmt.Fprintf(out, "  Log level:       %s\n", cfg.Logging.Level)

	return nil
}
