package commands

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/doeshing/ridepilot/internal/app"
	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/infrastructure/cli/helpers"
)

// batchLine is one request in a batch file.
type batchLine struct {
	Feature string         `json:"feature"`
	Payload map[string]any `json:"payload"`
}

// NewBatchCommand creates the batch command
func NewBatchCommand(container *app.Container) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "batch <file.jsonl|->",
		Short: "Run many invocations concurrently and report usage",
		Long: "Each line is {\"feature\": \"price\", \"payload\": {...}}. Results are\n" +
			"printed as JSON lines in input order; a usage summary goes to stderr.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if workers < 1 {
				return errors.New(ErrInvalidWorkers)
			}
			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			lines, err := readBatch(in)
			if err != nil {
				return err
			}
			return runBatch(cmd, container, lines, workers)
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", DefaultBatchWorkers, "Concurrent invocations")
	return cmd
}

func readBatch(in io.Reader) ([]domain.FeatureRequest, error) {
	var out []domain.FeatureRequest
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var line batchLine
		if err := json.Unmarshal([]byte(text), &line); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		feature, err := domain.ParseFeature(line.Feature)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		if line.Payload == nil {
			line.Payload = map[string]any{}
		}
		out = append(out, domain.FeatureRequest{Feature: feature, Payload: line.Payload})
	}
	return out, scanner.Err()
}

func runBatch(cmd *cobra.Command, container *app.Container, lines []domain.FeatureRequest, workers int) error {
	results := make([]domain.OrchestrationResult, len(lines))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(workers)
	for i, line := range lines {
		g.Go(func() error {
			results[i] = container.Orchestrator.Invoke(ctx, line.Feature, line.Payload)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	fallbacks := 0
	for _, res := range results {
		if res.IsFallback() {
			fallbacks++
		}
		if err := enc.Encode(res); err != nil {
			return err
		}
	}

	errOut := cmd.ErrOrStderr()
	fmt.Fprintf(errOut, "\n%d invocations, %d answered by fallback\n", len(results), fallbacks)
	return helpers.RenderUsage(errOut, container.Ledger.Snapshot(), container.Ledger.Totals())
}
