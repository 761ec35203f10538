package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/infrastructure/httpapi"
)

const schedulerStopTimeout = 30 * time.Second

// ServeOptions tunes Serve.
type ServeOptions struct {
	// Addr overrides server.addr from the config.
	Addr string
	// Watch reloads the config file when it changes.
	Watch bool
}

// Serve runs the HTTP API, the periodic sweeps and, optionally, the config
// watcher until ctx is cancelled or one of them fails.
func (c *Container) Serve(ctx context.Context, opts ServeOptions) error {
	addr := opts.Addr
	if addr == "" {
		addr = c.Config().Server.Addr
	}

	api := httpapi.New(httpapi.Deps{
		Invoker:     c.Orchestrator,
		Usage:       c.Ledger,
		Credentials: c.Credentials,
		Metrics:     c.Metrics.Handler(),
		Logger:      c.Logger,
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return api.ListenAndServe(ctx, addr)
	})

	g.Go(func() error {
		c.Scheduler.Start()
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), schedulerStopTimeout)
		defer cancel()
		c.Scheduler.Stop(stopCtx)
		return nil
	})

	if opts.Watch {
		g.Go(func() error {
			return c.ConfigLoader.Watch(ctx, c.Logger, func(cfg domain.Config) {
				if err := c.ApplyConfig(cfg); err != nil {
					c.Logger.Warn("config change rejected", map[string]interface{}{"error": err.Error()})
				}
			})
		})
	}

	return g.Wait()
}
