package cmd

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"invoiceai/internal/logger"
	"invoiceai/internal/mcpserver"
	"invoiceai/internal/tools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the draft tools over the Model Context Protocol (stdio)",
	Long: `Expose every draft tool to an MCP client over stdin/stdout.

The client drives the conversation; this process keeps the selected draft for
as long as it runs. Logs go to LOG_OUTPUT and never to stdout.`,
	Example: `  # Register in an MCP client configuration
  invoiceai mcp --user user-123`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("mcp")

	ctx, cancel := createContext(0, log)
	defer cancel()

	a, err := newApp(ctx, cmd, log)
	if err != nil {
		return handleCommandError(err, log)
	}

	s, err := mcpserver.New(a.toolDeps(), tools.Caller{
		OwnerID:        a.caller.ID,
		ConversationID: uuid.NewString(),
	})
	if err != nil {
		return handleCommandError(err, log)
	}

	mcpserver.Version = version
	if err := mcpserver.Serve(s); err != nil {
		return handleCommandError(err, log)
	}
	return nil
}
