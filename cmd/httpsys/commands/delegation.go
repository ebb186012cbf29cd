package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/httpsys/internal/cli/output"
	"github.com/marmos91/httpsys/pkg/apiclient"
	"github.com/marmos91/httpsys/pkg/httpsys"
)

var delegationOutput string

var delegationCmd = &cobra.Command{
	Use:     "delegation",
	Aliases: []string{"delegations"},
	Short:   "Manage delegation rules",
	Long: `List and create delegation rules on a running listener.

A delegation rule routes a prefix of the listener's url group to a request
queue owned by another process. The target queue must already exist and
have a url group serving the prefix.`,
}

var delegationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List delegation rules",
	Args:  cobra.NoArgs,
	RunE:  runDelegationList,
}

var delegationCreateCmd = &cobra.Command{
	Use:   "create <queue-name> <prefix>",
	Short: "Delegate a prefix to another request queue",
	Long: `Delegate a prefix to another request queue.

Examples:
  httpsys delegation create backend http://+:8080/api/`,
	Args: cobra.ExactArgs(2),
	RunE: runDelegationCreate,
}

func init() {
	delegationCmd.PersistentFlags().StringVarP(&delegationOutput, "output", "o", "table", "Output format (table|json|yaml)")
	delegationCmd.AddCommand(delegationListCmd)
	delegationCmd.AddCommand(delegationCreateCmd)
}

// delegationTable renders delegation rules as a table.
type delegationTable []httpsys.DelegationStatus

func (t delegationTable) Headers() []string { return []string{"Queue", "Prefix"} }

func (t delegationTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		rows = append(rows, []string{r.QueueName, r.Prefix})
	}
	return rows
}

func runDelegationList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(delegationOutput)
	if err != nil {
		return err
	}

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	rules, err := client.Delegations()
	if err != nil {
		return fmt.Errorf("failed to list delegation rules: %w", err)
	}

	printer := output.NewPrinter(cmd.OutOrStdout(), format, false)
	if format == output.FormatTable && len(rules) == 0 {
		printer.Printf("No delegation rules\n")
		return nil
	}
	return printer.Print(delegationTable(rules))
}

func runDelegationCreate(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(delegationOutput)
	if err != nil {
		return err
	}

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	rule, err := client.CreateDelegation(args[0], args[1])
	if err != nil {
		if apiErr, ok := apiclient.AsAPIError(err); ok {
			switch {
			case apiErr.IsNotSupported():
				return fmt.Errorf("delegation is not supported by this HTTP Server API: %w", err)
			case apiErr.IsNotFound():
				return fmt.Errorf("queue %q or a url group serving %s was not found: %w", args[0], args[1], err)
			}
		}
		return fmt.Errorf("failed to create delegation rule: %w", err)
	}

	printer := output.NewPrinter(cmd.OutOrStdout(), format, false)
	if format == output.FormatTable {
		printer.Success(fmt.Sprintf("Delegated %s to queue %q", rule.Prefix, rule.QueueName))
		return nil
	}
	return printer.Print(rule)
}
