package commands

import (
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/doeshing/ridepilot/internal/app"
	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/infrastructure/cli/helpers"
)

type usageReply struct {
	Records []domain.UsageRecord `json:"records"`
	Totals  domain.UsageRecord   `json:"totals"`
}

// NewUsageCommand creates the usage command. The ledger lives in the serving
// process, so these subcommands talk to it over HTTP.
func NewUsageCommand(container *app.Container) *cobra.Command {
	var server, output string

	usageCmd := &cobra.Command{
		Use:   "usage",
		Short: "Show per provider and feature usage of a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := helpers.NewAPIClient(serverAddr(container, server))
			var reply usageReply
			if err := client.Do(cmd.Context(), http.MethodGet, "/v1/usage", nil, &reply); err != nil {
				return err
			}
			return renderUsage(cmd.OutOrStdout(), reply, output)
		},
	}
	usageCmd.PersistentFlags().StringVar(&server, "server", "", "Server address (default from server.addr)")
	usageCmd.PersistentFlags().StringVarP(&output, "output", "o", OutputText, "Output format (text|json)")

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Zero all counters and print what they were",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := helpers.NewAPIClient(serverAddr(container, server))
			var reply usageReply
			if err := client.Do(cmd.Context(), http.MethodPost, "/v1/usage/reset", nil, &reply); err != nil {
				return err
			}
			return renderUsage(cmd.OutOrStdout(), reply, output)
		},
	}

	usageCmd.AddCommand(resetCmd)
	return usageCmd
}

func renderUsage(out io.Writer, reply usageReply, output string) error {
	if output == OutputJSON {
		return helpers.PrintJSON(out, reply)
	}
	return helpers.RenderUsage(out, reply.Records, reply.Totals)
}

func serverAddr(container *app.Container, flag string) string {
	if flag != "" {
		return flag
	}
	return container.Config().Server.Addr
}
