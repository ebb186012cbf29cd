package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/httpsys/internal/cli/output"
	"github.com/marmos91/httpsys/internal/cli/timeutil"
	"github.com/marmos91/httpsys/pkg/httpsys"
)

var statusOutput string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show listener status",
	Long: `Display the status of a running httpsys listener.

The status is read from the management API of the running process, see
'api' in the configuration or pass --api-url.

Examples:
  # Show status of the local listener
  httpsys status

  # Output as JSON
  httpsys status -o json

  # Query another host
  httpsys status --api-url http://10.0.0.5:9180`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// statusView renders a ListenerStatus as a key/value table.
type statusView struct {
	httpsys.ListenerStatus
}

func (v statusView) pairs() output.KeyValue {
	var kv output.KeyValue
	kv.Add("ID", v.ID)
	kv.Add("State", v.State)
	kv.Add("Queue", v.QueueName)
	kv.Add("Mode", v.QueueMode)
	kv.Add("Created", strconv.FormatBool(v.QueueCreated))
	kv.Add("Prefixes", strings.Join(v.Prefixes, ", "))
	kv.Add("Connections", strconv.Itoa(v.TrackedConnections))
	kv.Add("Pending waits", strconv.Itoa(v.PendingOverlapped))
	kv.Add("Delegations", strconv.Itoa(len(v.DelegationRules)))
	kv.Add("Started", timeutil.FormatTime(v.StartedAt))
	if v.StartedAt != nil {
		kv.Add("Uptime", timeutil.FormatUptime(timeutil.Since(v.StartedAt)))
	}
	return kv
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	status, err := client.Status()
	if err != nil {
		return fmt.Errorf("failed to get listener status: %w", err)
	}

	printer := output.NewPrinter(cmd.OutOrStdout(), format, false)
	if format == output.FormatTable {
		return output.PrintKeyValue(printer.Writer(), statusView{*status}.pairs())
	}
	return printer.Print(status)
}
