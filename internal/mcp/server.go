// Package mcp exposes the biocopilot gateway as MCP tools over stdio.
// The calling agent proposes capability invocations; the gateway decides
// whether they run, get deferred, or get refused.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bioviz-local/biocopilot/internal/app"
)

// Server wraps the MCP SDK server around an assembled gateway stack.
type Server struct {
	mcpServer *mcpsdk.Server
	app       *app.App
}

// New creates an MCP server over the given app.
func New(a *app.App) *Server {
	s := &Server{app: a}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "biocopilot",
			Version: "0.1.0",
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport. Blocks until ctx is
// cancelled. The proposal sweeper runs alongside.
func (s *Server) Run(ctx context.Context) error {
	s.app.StartSweeper(ctx)
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Close releases app resources.
func (s *Server) Close() error {
	return s.app.Close()
}

// registerTools adds all biocopilot tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "bioviz_request",
		Description: "Request a capability invocation. Auto-risk capabilities run immediately; confirm-risk capabilities return a proposal id that a human must confirm.",
	}, s.handleRequest)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "bioviz_confirm",
		Description: "Confirm a pending proposal by id and execute it. Each proposal executes at most once.",
	}, s.handleConfirm)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "bioviz_reject",
		Description: "Reject a pending proposal by id without executing it.",
	}, s.handleReject)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "bioviz_pending",
		Description: "List all proposals awaiting confirmation.",
	}, s.handlePending)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "bioviz_capabilities",
		Description: "List the registered capabilities with risk levels and parameter schemas.",
	}, s.handleCapabilities)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "bioviz_load_data",
		Description: "Load a differential expression CSV (gene, log2fc, pvalue columns) into the session.",
	}, s.handleLoadData)
}
