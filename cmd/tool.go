package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"invoiceai/internal/logger"
	"invoiceai/internal/tools"
)

var toolCmd = &cobra.Command{
	Use:   "tool [name] [json-arguments]",
	Short: "Invoke a single draft tool",
	Long: `Run one draft tool with JSON arguments and print its result.

The draft selection lives only as long as the process, so each invocation
starts without a selected draft. Pass --select with an invoice number to pick
a draft before running the tool.`,
	Example: `  # List the tools and their descriptions
  invoiceai tool --list

  # Count drafts
  invoiceai tool countUserInvoiceDrafts

  # Set the client on draft INV-003
  invoiceai tool setClientInfo '{"clientName":"Acme","clientEmail":"ap@acme.test"}' --select INV-003`,
	Args: cobra.RangeArgs(0, 2),
	RunE: runTool,
}

func init() {
	rootCmd.AddCommand(toolCmd)

	toolCmd.Flags().Bool("list", false, "List available tools")
	toolCmd.Flags().String("select", "", "Select this draft number before invoking the tool")
	toolCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
}

func runTool(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("tool")

	list, _ := cmd.Flags().GetBool("list")
	selectNumber, _ := cmd.Flags().GetString("select")
	outputPath, _ := cmd.Flags().GetString("output")

	if !list && len(args) == 0 {
		return errors.New("tool name is required (or use --list)")
	}

	ctx, cancel := createContext(60, log)
	defer cancel()

	a, err := newApp(ctx, cmd, log)
	if err != nil {
		return handleCommandError(err, log)
	}
	toolset := tools.New(a.toolDeps(), tools.Caller{OwnerID: a.caller.ID, ConversationID: "cli"})

	if list {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, def := range toolset.Definitions() {
			fmt.Fprintf(w, "%s\t%s\n", def.Name, def.Description)
		}
		return w.Flush()
	}

	if selectNumber != "" {
		raw, err := json.Marshal(map[string]string{"invoiceNumber": selectNumber})
		if err != nil {
			return err
		}
		res, err := toolset.Invoke(ctx, "selectDraftByNumber", raw)
		if err != nil {
			return handleCommandError(err, log)
		}
		if sel, ok := res.(tools.SelectResult); !ok || sel.DraftID == "" {
			return outputJSON(res, outputPath, log)
		}
	}

	var raw []byte
	if len(args) == 2 {
		raw = []byte(args[1])
	}

	log.Info().
		Str("tool", args[0]).
		Str("caller", a.caller.String()).
		Msg("Invoking tool")

	result, err := toolset.Invoke(ctx, args[0], raw)
	if err != nil {
		return handleCommandError(err, log)
	}
	return outputJSON(result, outputPath, log)
}
