package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/doeshing/ridepilot/internal/app"
)

// NewServeCommand creates the serve command
func NewServeCommand(container *app.Container) *cobra.Command {
	var addr string
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with scheduled sweeps",
		Long: "Serve the orchestrator over HTTP, sweep expired cache entries and old\n" +
			"interactions on a schedule, and hot-reload retry and TTL settings when\n" +
			"the config file changes. Stops on SIGINT or SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return container.Serve(ctx, app.ServeOptions{Addr: addr, Watch: watch})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from server.addr)")
	cmd.Flags().BoolVar(&watch, "watch", true, "Reload settings when the config file changes")
	return cmd
}
