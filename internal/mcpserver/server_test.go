package mcpserver_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoiceai/internal/mcpserver"
	"invoiceai/internal/session"
	"invoiceai/internal/store/storetest"
	"invoiceai/internal/tools"
	"invoiceai/pkg/models"
)

func newToolset(t *testing.T) *tools.Toolset {
	owner := "alice"
	return tools.New(tools.Deps{
		Store:    storetest.New(t),
		Selector: session.NewSelector(),
		AppURL:   "https://app.test",
	}, tools.Caller{OwnerID: &owner, ConversationID: "mcp"})
}

func call(t *testing.T, ts *tools.Toolset, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := mcpserver.Handler(ts, name, zerolog.Nop())(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	content, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return content.Text
}

func TestHandler(t *testing.T) {
	ts := newToolset(t)

	res := call(t, ts, "createDraft", map[string]any{"skipPrefill": true})
	assert.False(t, res.IsError)

	var created tools.CreateResult
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &created))
	assert.Equal(t, "INV-001", created.InvoiceNumber)
	assert.NotEmpty(t, created.DraftID)

	res = call(t, ts, "setClientInfo", map[string]any{
		"clientName":  "Acme Corp",
		"clientEmail": "billing@acme.test",
	})
	assert.False(t, res.IsError)

	var check tools.DraftCheck
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &check))
	assert.Equal(t, created.DraftID, check.DraftID)
	assert.NotContains(t, check.MissingSections, models.SectionClientInfo)
	assert.Contains(t, check.MissingSections, models.SectionLineItems)
}

func TestHandler_RejectedArguments(t *testing.T) {
	ts := newToolset(t)

	res := call(t, ts, "setLineItems", map[string]any{"items": []any{}})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "items")
}

func TestNew(t *testing.T) {
	owner := "alice"
	s, err := mcpserver.New(tools.Deps{
		Store:    storetest.New(t),
		Selector: session.NewSelector(),
	}, tools.Caller{OwnerID: &owner})
	require.NoError(t, err)
	assert.NotNil(t, s)
}
