package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bioviz-local/biocopilot/internal/app"
)

func init() {
	rootCmd.AddCommand(capabilitiesCmd)
}

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "List registered capabilities and their risk levels",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(configPath)
		if err != nil {
			return fmt.Errorf("failed to assemble gateway: %w", err)
		}
		defer a.Close()

		printCapabilities(a)
		return nil
	},
}

func printCapabilities(a *app.App) {
	fmt.Printf("%-30s %-8s %s\n", "NAME", "RISK", "DESCRIPTION")
	for _, desc := range a.Gateway.Descriptors() {
		risk := ""
		if c := a.Registry.Lookup(desc.Name); c != nil {
			risk = string(c.Risk)
		}
		fmt.Printf("%-30s %-8s %s\n", desc.Name, risk, truncate(desc.Description, 70))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
