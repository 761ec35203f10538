package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doeshing/ridepilot/internal/app"
	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/infrastructure/cli/helpers"
)

// NewMemoryCommand creates the memory command with all subcommands
func NewMemoryCommand(container *app.Container) *cobra.Command {
	memCmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect or prune interaction memory",
	}

	memCmd.AddCommand(
		newMemoryContextCommand(container),
		newMemoryRecentCommand(container),
		newMemorySweepCommand(container),
	)
	return memCmd
}

// newMemoryContextCommand creates the 'memory context' subcommand
func newMemoryContextCommand(container *app.Container) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "context <feature>",
		Short: "Show the context block providers would receive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			feature, err := domain.ParseFeature(args[0])
			if err != nil {
				return err
			}
			text := container.Memory.ContextFor(cmd.Context(), feature, limit)
			if text == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No context for", feature)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", DefaultContextLimit, "Max interactions to include")
	return cmd
}

// newMemoryRecentCommand creates the 'memory recent' subcommand
func newMemoryRecentCommand(container *app.Container) *cobra.Command {
	var limit int
	var output string
	cmd := &cobra.Command{
		Use:   "recent <feature>",
		Short: "List stored interactions, including fallbacks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			feature, err := domain.ParseFeature(args[0])
			if err != nil {
				return err
			}
			records, err := container.Memory.Recent(cmd.Context(), feature, limit)
			if err != nil {
				return err
			}
			if output == OutputJSON {
				return helpers.PrintJSON(cmd.OutOrStdout(), records)
			}
			helpers.RenderInteractions(cmd.OutOrStdout(), records)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", DefaultRecentLimit, "Max entries to show")
	cmd.Flags().StringVarP(&output, "output", "o", OutputText, "Output format (text|json)")
	return cmd
}

// newMemorySweepCommand creates the 'memory sweep' subcommand
func newMemorySweepCommand(container *app.Container) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete interactions older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("days") {
				cfg := container.Config()
				days = cfg.GetRetentionDays()
			}
			if days <= 0 {
				return errors.New(ErrInvalidRetainDays)
			}
			removed, err := container.Memory.Sweep(cmd.Context(), days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d interactions older than %d days\n", removed, days)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Retention in days (default from memory.retention_days)")
	return cmd
}
