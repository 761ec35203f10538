package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/doeshing/ridepilot/internal/app"
	"github.com/doeshing/ridepilot/internal/infrastructure/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()

	container, err := app.BuildContainer(ctx, app.Options{Verbose: isVerbose()})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	defer func() {
		if err := container.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}()

	if err := cli.NewRootCmd(container).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func isVerbose() bool {
	v := os.Getenv("RIDEPILOT_DEBUG")
	return v == "1" || strings.EqualFold(v, "true")
}
