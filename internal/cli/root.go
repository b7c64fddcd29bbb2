package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "biocopilot",
	Short: "Authorization gateway for AI-assisted biological analysis",
	Long:  "Routes model tool calls through a capability gateway: safe operations run immediately, state-changing operations wait for human confirmation.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (default ~/.biocopilot/config.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
