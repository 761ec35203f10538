package commands

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/doeshing/ridepilot/internal/app"
	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/infrastructure/cli/helpers"
)

// NewCacheCommand creates the cache command with all subcommands
func NewCacheCommand(container *app.Container) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached results of a running server",
	}

	cacheCmd.AddCommand(newCacheInvalidateCommand(container))
	return cacheCmd
}

// newCacheInvalidateCommand creates the 'cache invalidate' subcommand
func newCacheInvalidateCommand(container *app.Container) *cobra.Command {
	var server string
	var all bool

	cmd := &cobra.Command{
		Use:   "invalidate [feature]",
		Short: "Drop cached results for a feature (or --all)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var features []domain.Feature
			switch {
			case all:
				features = domain.Features()
			case len(args) == 1:
				feature, err := domain.ParseFeature(args[0])
				if err != nil {
					return err
				}
				features = []domain.Feature{feature}
			default:
				return fmt.Errorf("name a feature or pass --all")
			}

			client := helpers.NewAPIClient(serverAddr(container, server))
			for _, feature := range features {
				var reply struct {
					Invalidated int `json:"invalidated"`
				}
				if err := client.Do(cmd.Context(), http.MethodDelete, "/v1/cache/"+string(feature), nil, &reply); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries invalidated\n", feature, reply.Invalidated)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Server address (default from server.addr)")
	cmd.Flags().BoolVar(&all, "all", false, "Invalidate every feature")
	return cmd
}
