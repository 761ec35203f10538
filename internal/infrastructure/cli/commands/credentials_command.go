package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/ridepilot/internal/app"
	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/infrastructure/cli/helpers"
)

// NewCredentialsCommand creates the credentials command with all subcommands
func NewCredentialsCommand(container *app.Container) *cobra.Command {
	credCmd := &cobra.Command{
		Use:     "credentials",
		Aliases: []string{"creds"},
		Short:   "Manage provider secrets",
	}

	credCmd.AddCommand(
		newCredentialsStatusCommand(container),
		newCredentialsSetCommand(container),
		newCredentialsValidateCommand(container),
	)
	return credCmd
}

// newCredentialsStatusCommand creates the 'credentials status' subcommand
func newCredentialsStatusCommand(container *app.Container) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "List providers and whether a secret is stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := container.Credentials.Status()
			if output == OutputJSON {
				return helpers.PrintJSON(cmd.OutOrStdout(), rows)
			}
			return helpers.RenderCredentials(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", OutputText, "Output format (text|json)")
	return cmd
}

// newCredentialsSetCommand creates the 'credentials set' subcommand
func newCredentialsSetCommand(container *app.Container) *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "set <provider> [secret]",
		Short: "Store a secret (read from stdin when omitted)",
		Long: "Store a provider secret in the configured backend. With the memory\n" +
			"backend the secret only lives for this process; use the keyring backend\n" +
			"or the HTTP API of a running server to keep it.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := args[0]
			secret := ""
			if !remove {
				if len(args) == 2 {
					secret = args[1]
				} else {
					var err error
					if secret, err = readSecret(cmd.InOrStdin()); err != nil {
						return err
					}
				}
				if secret == "" {
					return fmt.Errorf("empty secret; use --clear to remove one")
				}
			}
			if err := container.Credentials.SetCredential(provider, secret); err != nil {
				return err
			}
			if remove {
				fmt.Fprintf(cmd.OutOrStdout(), MsgCredentialCleared, provider)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), MsgCredentialStored, provider)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&remove, "clear", false, "Remove the stored secret")
	return cmd
}

// newCredentialsValidateCommand creates the 'credentials validate' subcommand
func newCredentialsValidateCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <provider>",
		Short: "Probe the provider with its stored secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := container.Credentials.Validate(cmd.Context(), args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid=%t reason=%s\n", args[0], result.Valid, result.Reason)
			if result.Reason == domain.ReasonUnknownService {
				return fmt.Errorf("%w: %q", domain.ErrUnknownProvider, args[0])
			}
			return nil
		},
	}
}

func readSecret(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
