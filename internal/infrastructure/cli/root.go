// Package cli is the cobra command tree of the ridepilot binary.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/doeshing/ridepilot/internal/app"
	"github.com/doeshing/ridepilot/internal/infrastructure/cli/commands"
)

// NewRootCmd wires the cobra root command.
func NewRootCmd(container *app.Container) *cobra.Command {
	root := &cobra.Command{
		Use:   "ridepilot",
		Short: "Ridepilot - resilient AI features for rideshare operations",
		Long: "Ridepilot routes matching, pricing, routing, demand forecasting, analytics\n" +
			"and chat requests through a chain of AI providers with retries, caching\n" +
			"and local fallbacks, so every request gets an answer.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		commands.NewInvokeCommand(container),
		commands.NewBatchCommand(container),
		commands.NewUsageCommand(container),
		commands.NewCacheCommand(container),
		commands.NewCredentialsCommand(container),
		commands.NewMemoryCommand(container),
		commands.NewConfigCommand(container),
		commands.NewDoctorCommand(container),
		commands.NewServeCommand(container),
	)
	return root
}
