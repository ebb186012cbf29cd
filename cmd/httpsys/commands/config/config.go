// Package config holds the "httpsys config" subcommands.
package config

import (
	"github.com/spf13/cobra"
)

// Cmd is the config subcommand.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
	Long: `Check, print and describe the httpsys configuration file.

The file itself is created by 'httpsys init'. The subcommands honor the
global --config flag; validate and show also apply HTTPSYS_* environment
overrides.`,
}

func init() {
	Cmd.AddCommand(validateCmd, showCmd, schemaCmd)
}
