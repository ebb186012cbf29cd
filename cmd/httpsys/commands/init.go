package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/httpsys/internal/cli/prompt"
	"github.com/marmos91/httpsys/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample httpsys configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/httpsys/config.yaml.
Use --config to specify a custom path. An existing file is only replaced after
confirmation, or immediately with --force.

Examples:
  # Initialize with default location
  httpsys init

  # Initialize with custom path
  httpsys init --config C:\ProgramData\httpsys\config.yaml

  # Force overwrite existing config
  httpsys init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	force := initForce
	if _, err := os.Stat(configPath); err == nil && !force {
		ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Overwrite %s", configPath), force)
		if err != nil {
			return err
		}
		if !ok {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Keeping existing configuration")
			return nil
		}
		force = true
	}

	if err := config.InitConfigToPath(configPath, force); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Edit listener.prefixes to the urls you want to serve")
	_, _ = fmt.Fprintln(out, "  2. Reserve each prefix for the account running httpsys:")
	_, _ = fmt.Fprintf(out, "       netsh http add urlacl url=%s user=DOMAIN\\user\n", config.DefaultPrefix)
	_, _ = fmt.Fprintln(out, "  3. Start the listener with: httpsys start")
	_, _ = fmt.Fprintf(out, "  4. Or specify custom config: httpsys start --config %s\n", configPath)

	return nil
}
