// Package commands implements the httpsys command line.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/httpsys/cmd/httpsys/commands/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
	apiURL  string
)

var rootCmd = &cobra.Command{
	Use:   "httpsys",
	Short: "httpsys - HTTP Server API request queue host",
	Long: `httpsys owns an HTTP Server API request queue, routes url prefixes to it and
tracks client disconnects through the kernel driver.

It can create a queue or attach to one owned by another process, delegate
prefixes to other queues and expose its state over a small management API.

Use "httpsys [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd exposes the command tree to tests.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/httpsys/config.yaml)")
	flags.StringVar(&apiURL, "api-url", "", "management API url (default: derived from the api section of the config)")

	rootCmd.AddCommand(
		// local
		versionCmd,
		initCmd,
		startCmd,
		logsCmd,
		config.Cmd,
		completionCmd,
		// management API
		statusCmd,
		featuresCmd,
		delegationCmd,
	)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the --config value.
func GetConfigFile() string {
	return cfgFile
}

// PrintErr writes a line to the root command's error stream.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}
