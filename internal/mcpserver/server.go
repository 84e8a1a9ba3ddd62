// Package mcpserver publishes the draft tool catalog over the Model Context
// Protocol, so any MCP client can drive the same operations the built-in
// assistant uses.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"invoiceai/internal/logger"
	"invoiceai/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

const name = "invoiceai"

// New registers every catalog tool for caller. A stdio server serves one
// client, so the caller is fixed for the lifetime of the process.
func New(deps tools.Deps, caller tools.Caller) (*server.MCPServer, error) {
	s := server.NewMCPServer(
		name,
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions()),
	)

	toolset := tools.New(deps, caller)
	log := logger.WithOwner(logger.WithComponent("mcp"), caller.OwnerID)

	for _, def := range toolset.Definitions() {
		schema, err := json.Marshal(def.Parameters)
		if err != nil {
			return nil, fmt.Errorf("mcpserver: schema for %s: %w", def.Name, err)
		}
		s.AddTool(mcp.NewToolWithRawSchema(def.Name, def.Description, schema), Handler(toolset, def.Name, log))
	}

	log.Info().Int("tools", len(toolset.Definitions())).Msg("MCP server ready")
	return s, nil
}

// Serve runs s over stdin/stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

// Handler adapts one catalog tool to an MCP tool handler. Rejected arguments
// are reported as tool errors so the client can correct them.
func Handler(toolset *tools.Toolset, toolName string, log zerolog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := json.Marshal(req.Params.Arguments)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		result, err := toolset.Invoke(ctx, toolName, raw)
		var argErr *tools.ArgumentError
		switch {
		case errors.As(err, &argErr):
			return mcp.NewToolResultError(argErr.Error()), nil
		case err != nil:
			return nil, err
		}

		if text, ok := result.(string); ok {
			return mcp.NewToolResultText(text), nil
		}
		body, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Error().Err(err).Str("tool", toolName).Msg("Failed to encode tool result")
			return mcp.NewToolResultError(tools.MsgSomethingWrong), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}

func instructions() string {
	return `You can create and edit invoice drafts.

Start with createDraft or selectDraftByNumber; every edit applies to the selected draft.
Fill the freelancer, client, invoice details, line items and payment terms sections.
Each edit reports the sections still missing. When none are missing call finalizeInvoice.`
}
