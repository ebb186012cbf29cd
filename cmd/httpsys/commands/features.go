package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/httpsys/internal/cli/output"
	"github.com/marmos91/httpsys/pkg/httpsys"
)

var (
	featuresOutput string
	featuresLocal  bool
)

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Show HTTP Server API capabilities",
	Long: `Display the HTTP Server API version and optional capabilities.

By default the capabilities detected by the running listener are shown.
With --local the API is initialized in this process instead, which works
without a running listener.

Examples:
  # Capabilities seen by the running listener
  httpsys features

  # Probe this machine directly
  httpsys features --local`,
	RunE: runFeatures,
}

func init() {
	featuresCmd.Flags().StringVarP(&featuresOutput, "output", "o", "table", "Output format (table|json|yaml)")
	featuresCmd.Flags().BoolVar(&featuresLocal, "local", false, "Probe the HTTP Server API in this process")
}

func featurePairs(f httpsys.Features) output.KeyValue {
	var kv output.KeyValue
	kv.Add("Version", f.Version)
	kv.Add("Supported", strconv.FormatBool(f.Supported))
	kv.Add("Init status", f.InitStatus)
	kv.Add("Trailers", strconv.FormatBool(f.SupportsTrailers))
	kv.Add("Delegation", strconv.FormatBool(f.SupportsDelegation))
	kv.Add("Reset", strconv.FormatBool(f.SupportsReset))
	return kv
}

func runFeatures(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(featuresOutput)
	if err != nil {
		return err
	}

	var features httpsys.Features
	if featuresLocal {
		features = httpsys.Default().Features()
	} else {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		remote, err := client.Features()
		if err != nil {
			return fmt.Errorf("failed to get features: %w", err)
		}
		features = *remote
	}

	printer := output.NewPrinter(cmd.OutOrStdout(), format, false)
	if format == output.FormatTable {
		return output.PrintKeyValue(printer.Writer(), featurePairs(features))
	}
	return printer.Print(features)
}
