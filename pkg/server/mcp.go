package server

import (
	"context"
	"net/http"

	"github.com/mikeboe/finance-assistant/pkg/finance"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	mcpServerName    = "finance-assistant-mcp"
	mcpServerVersion = "1.0.0"
)

// NewMCPServer exposes the finance tools over the Model Context Protocol.
func NewMCPServer(registry *finance.Registry) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: mcpServerName, Version: mcpServerVersion}, nil)

	descriptions := make(map[string]string)
	for _, spec := range registry.Specs() {
		descriptions[spec.Name] = spec.Description
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        finance.ToolSearchIndicatorStrategies,
		Description: descriptions[finance.ToolSearchIndicatorStrategies],
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args finance.IndicatorArgs) (*mcp.CallToolResult, any, error) {
		return textResult(registry.SearchIndicatorStrategies(ctx, args)), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        finance.ToolCompareStrategies,
		Description: descriptions[finance.ToolCompareStrategies],
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args finance.ComparisonArgs) (*mcp.CallToolResult, any, error) {
		return textResult(registry.CompareStrategies(ctx, args)), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        finance.ToolAnalyzeMarketConditions,
		Description: descriptions[finance.ToolAnalyzeMarketConditions],
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args finance.MarketArgs) (*mcp.CallToolResult, any, error) {
		return textResult(registry.AnalyzeMarketConditions(ctx, args)), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        finance.ToolFindResearchPapers,
		Description: descriptions[finance.ToolFindResearchPapers],
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args finance.ResearchArgs) (*mcp.CallToolResult, any, error) {
		return textResult(registry.FindResearchPapers(ctx, args)), nil, nil
	})

	return server
}

// NewMCPHandler serves server over streamable HTTP.
func NewMCPHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)
}

// ServeStdio runs server on stdin/stdout until ctx is done or the client disconnects.
func ServeStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
