package server

import (
	"context"
	"testing"

	"github.com/mikeboe/finance-assistant/pkg/finance"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectMCP(t *testing.T, registry *finance.Registry) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := NewMCPServer(registry).Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func TestMCPListsFinanceTools(t *testing.T) {
	cs := connectMCP(t, finance.NewRegistry(nil))

	res, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	names := map[string]bool{}
	for _, tool := range res.Tools {
		names[tool.Name] = true
		assert.NotEmpty(t, tool.Description)
	}
	assert.Len(t, names, 4)
	assert.True(t, names[finance.ToolSearchIndicatorStrategies])
	assert.True(t, names[finance.ToolCompareStrategies])
	assert.True(t, names[finance.ToolAnalyzeMarketConditions])
	assert.True(t, names[finance.ToolFindResearchPapers])
}

func TestMCPCallToolReturnsText(t *testing.T) {
	cs := connectMCP(t, finance.NewRegistry(nil))

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      finance.ToolAnalyzeMarketConditions,
		Arguments: map[string]any{"market_type": "crypto"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)

	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "CRYPTO market (technical approach)")
}
