package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bioviz-local/biocopilot/internal/app"
	biomcp "github.com/bioviz-local/biocopilot/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long:  "Runs biocopilot as an MCP (Model Context Protocol) server over stdio.\nExposes gateway tools: request, confirm, reject, pending, capabilities, load_data.",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := app.New(configPath)
	if err != nil {
		return fmt.Errorf("failed to assemble gateway: %w", err)
	}

	srv := biomcp.New(a)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down MCP server...")
		cancel()
	}()

	fmt.Fprintln(os.Stderr, "biocopilot MCP server running on stdio")
	return srv.Run(ctx)
}
