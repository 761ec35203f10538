package commands

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/ridepilot/internal/app"
	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/infrastructure/cli/helpers"
)

// NewInvokeCommand creates the invoke command
func NewInvokeCommand(container *app.Container) *cobra.Command {
	var (
		payload string
		file    string
		output  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "invoke <feature>",
		Short: "Run a feature through the provider chain",
		Long: "Run one of match, price, route, demand_forecast, analytics or chat.\n" +
			"The command always prints a result: when every provider fails, a locally\n" +
			"computed fallback is returned instead of an error.",
		Example: `  ridepilot invoke price --payload '{"distance": 8.4, "time": 22}'
  ridepilot invoke match --file match.json
  echo '{"message": "where is my driver?"}' | ridepilot invoke chat --file -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			feature, err := domain.ParseFeature(args[0])
			if err != nil {
				return err
			}
			body, err := helpers.ReadPayload(payload, file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runInvoke(cmd, cmd.OutOrStdout(), container, feature, body, output, timeout)
		},
	}

	cmd.Flags().StringVarP(&payload, "payload", "p", "", "Payload as inline JSON")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read payload JSON from file (- for stdin)")
	cmd.Flags().StringVarP(&output, "output", "o", OutputText, "Output format (text|json)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up waiting after this long (0 waits for the chain)")
	return cmd
}

// runInvoke executes one invocation. The timeout bounds how long the command
// waits; the orchestrator itself is not cancelled by it.
func runInvoke(cmd *cobra.Command, out io.Writer, container *app.Container, feature domain.Feature, payload map[string]any, output string, timeout time.Duration) error {
	if output != OutputText && output != OutputJSON {
		return errors.New(ErrUnknownOutput)
	}

	ctx := cmd.Context()
	done := make(chan domain.OrchestrationResult, 1)
	go func() {
		done <- container.Orchestrator.Invoke(ctx, feature, payload)
	}()

	var res domain.OrchestrationResult
	if timeout > 0 {
		select {
		case res = <-done:
		case <-time.After(timeout):
			return fmt.Errorf("%s did not complete within %s", feature, timeout)
		}
	} else {
		res = <-done
	}

	if output == OutputJSON {
		return helpers.PrintJSON(out, res)
	}
	return helpers.RenderResult(out, res)
}
