package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/ridepilot/internal/app"
	appconfig "github.com/doeshing/ridepilot/internal/application/config"
)

// NewConfigCommand creates the config command with all subcommands
func NewConfigCommand(container *app.Container) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect ridepilot configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}

	configCmd.AddCommand(
		newConfigShowCommand(container),
		newConfigGetCommand(container),
		newConfigPathCommand(container),
		newConfigValidateCommand(container),
	)
	return configCmd
}

// newConfigShowCommand creates the 'config show' subcommand
func newConfigShowCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show full configuration with defaults applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}
}

// newConfigGetCommand creates the 'config get' subcommand
func newConfigGetCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a value by dotted path (e.g. retry.max_retries)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd.Context(), cmd.OutOrStdout(), container, args[0])
		},
	}
}

// newConfigPathCommand creates the 'config path' subcommand
func newConfigPathCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			if container.ConfigLoader == nil {
				return errors.New(ErrConfigLoaderUnavailable)
			}
			fmt.Fprintln(cmd.OutOrStdout(), container.ConfigLoader.Path())
			return nil
		},
	}
}

// newConfigValidateCommand creates the 'config validate' subcommand
func newConfigValidateCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Re-read and validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if container.ConfigLoader == nil {
				return errors.New(ErrConfigLoaderUnavailable)
			}
			cfg, err := container.ConfigLoader.Load(cmd.Context())
			if err != nil {
				return err
			}
			if err := appconfig.Validate(cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), MsgConfigurationValid)
			return nil
		},
	}
}

func runConfigShow(ctx context.Context, out io.Writer, container *app.Container) error {
	if container.ConfigLoader == nil {
		return errors.New(ErrConfigLoaderUnavailable)
	}
	cfg, err := container.ConfigLoader.Load(ctx)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Fprint(out, string(data))
	return nil
}

func runConfigGet(ctx context.Context, out io.Writer, container *app.Container, key string) error {
	if container.ConfigLoader == nil {
		return errors.New(ErrConfigLoaderUnavailable)
	}
	cfg, err := container.ConfigLoader.Load(ctx)
	if err != nil {
		return err
	}
	// round-trip through YAML so keys match the file
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var generic map[string]interface{}
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return err
	}
	value, ok := traverseKey(generic, strings.Split(key, "."))
	if !ok {
		return fmt.Errorf("key %s not found", key)
	}
	if scalar, isScalar := value.(string); isScalar {
		fmt.Fprintln(out, scalar)
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))
	return nil
}

func traverseKey(data interface{}, path []string) (interface{}, bool) {
	if len(path) == 0 {
		return data, true
	}
	switch node := data.(type) {
	case map[string]interface{}:
		next, ok := node[path[0]]
		if !ok {
			return nil, false
		}
		return traverseKey(next, path[1:])
	default:
		return nil, false
	}
}
