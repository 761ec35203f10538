// Package app wires application services to infrastructure adapters.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	appconfig "github.com/doeshing/ridepilot/internal/application/config"
	"github.com/doeshing/ridepilot/internal/application/doctor"
	"github.com/doeshing/ridepilot/internal/application/memory"
	"github.com/doeshing/ridepilot/internal/application/orchestrator"
	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/infrastructure/ai"
	"github.com/doeshing/ridepilot/internal/infrastructure/cache"
	"github.com/doeshing/ridepilot/internal/infrastructure/config"
	"github.com/doeshing/ridepilot/internal/infrastructure/credentials"
	"github.com/doeshing/ridepilot/internal/infrastructure/history"
	"github.com/doeshing/ridepilot/internal/infrastructure/maps"
	"github.com/doeshing/ridepilot/internal/infrastructure/metrics"
	"github.com/doeshing/ridepilot/internal/infrastructure/scheduler"
	"github.com/doeshing/ridepilot/internal/infrastructure/usage"
	"github.com/doeshing/ridepilot/internal/pkg/logger"
	"github.com/doeshing/ridepilot/internal/ports"
)

// Options controls how the container is built.
type Options struct {
	Verbose bool
	// ConfigPath overrides RIDEPILOT_CONFIG and the default location.
	ConfigPath string
	LogWriter  io.Writer
	// Getenv resolves provider secrets; os.Getenv when nil.
	Getenv func(string) string
}

// Container wires up application services with infrastructure adapters.
type Container struct {
	ConfigLoader  *config.FileLoader
	EnvFile       string
	Logger        *logger.ZeroLogger
	Credentials   *credentials.Registry
	Orchestrator  *orchestrator.Service
	Ledger        *usage.Ledger
	Cache         *cache.MemoryCache
	Memory        *memory.Service
	Metrics       *metrics.Collectors
	Scheduler     *scheduler.Scheduler
	DoctorService *doctor.Service

	mu     sync.RWMutex
	config domain.Config
	store  ports.InteractionStore
	closed bool
}

// BuildContainer constructs the dependency graph.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	cfgLoader := config.NewFileLoader(opts.ConfigPath)
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := appconfig.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgLoader.Path(), err)
	}

	envFile, err := config.LoadEnv(cfg.Credentials.EnvFile)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	log := logger.New(logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Verbose: opts.Verbose,
		Writer:  opts.LogWriter,
	})

	secrets, err := credentials.NewStore(cfg.GetCredentialBackend(), cfg.Credentials.KeyringService)
	if err != nil {
		return nil, err
	}
	registry := credentials.NewRegistry(secrets, log)

	providers, timeouts, err := buildProviders(cfg, registry, getenv)
	if err != nil {
		return nil, err
	}

	var directions ports.DirectionsProvider
	if cfg.Maps.Endpoint != "" {
		client := maps.NewClient(cfg.Maps, registry)
		// public routers need no key; a configured one is probed on validate
		registry.Register(client.ID(), false, client)
		registry.SeedFromEnv(client.ID(), cfg.Maps.AuthEnvVar, getenv)
		timeouts[client.ID()] = cfg.Maps.Timeout
		directions = client
	}

	store, err := openStore(ctx, cfg.Memory)
	if err != nil {
		return nil, err
	}
	mem := memory.NewService(store, log, memory.Options{Buffer: cfg.Memory.Buffer})

	resultCache := cache.NewMemoryCache()
	ledger := usage.NewLedger()

	collectors := metrics.New()
	collectors.WatchMemory(mem.Written, mem.Dropped)
	collectors.WatchCache(resultCache.Len)
	collectors.WatchUsage(ledger)

	orch, err := orchestrator.New(orchestrator.Dependencies{
		Providers:   providers,
		Directions:  directions,
		Cache:       resultCache,
		Ledger:      ledger,
		Memory:      mem,
		Credentials: registry,
		Metrics:     collectors,
		Logger:      log,
	}, orchestrator.Options{
		Policy:       orchestrator.PolicyFromSettings(cfg.Retry),
		TTLs:         cfg.Cache.TTLs,
		FallbackTTL:  cfg.GetFallbackTTL(),
		ContextLimit: cfg.GetContextLimit(),
		Timeouts:     timeouts,
		Coalesce:     cfg.Orchestrator.Coalesce,
		RecordFailed: cfg.Memory.RecordFailed,
	})
	if err != nil {
		_ = mem.Close()
		_ = store.Close()
		return nil, err
	}

	c := &Container{
		ConfigLoader: cfgLoader,
		EnvFile:      envFile,
		Logger:       log,
		Credentials:  registry,
		Orchestrator: orch,
		Ledger:       ledger,
		Cache:        resultCache,
		Memory:       mem,
		Metrics:      collectors,
		DoctorService: &doctor.Service{
			ConfigProvider: cfgLoader,
			Credentials:    registry,
			History:        mem,
			Directions:     directions,
		},
		config: cfg,
		store:  store,
	}

	c.Scheduler = scheduler.New(log)
	if err := c.Scheduler.ScheduleCacheSweep(cfg.Cache.SweepInterval, resultCache); err != nil {
		_ = c.Close()
		return nil, err
	}
	if err := c.Scheduler.ScheduleMemorySweep(cfg.Memory.SweepInterval, c.retentionDays, mem); err != nil {
		_ = c.Close()
		return nil, err
	}

	log.Debug("container ready", map[string]interface{}{
		"config":    cfgLoader.Path(),
		"env_file":  envFile,
		"providers": len(providers),
		"memory":    cfg.Memory.Backend,
	})
	return c, nil
}

func buildProviders(cfg domain.Config, registry *credentials.Registry, getenv func(string) string) ([]ports.Provider, map[string]time.Duration, error) {
	chain, err := cfg.ChainProviders()
	if err != nil {
		return nil, nil, err
	}
	factory := ai.NewFactory(registry)
	providers := make([]ports.Provider, 0, len(chain))
	timeouts := make(map[string]time.Duration, len(chain)+1)
	for _, def := range chain {
		provider, err := factory.ForDefinition(def)
		if err != nil {
			return nil, nil, err
		}
		registry.Register(def.ID, def.RequiresCredential(), factory.ProberFor(def))
		registry.SeedFromEnv(def.ID, def.AuthEnvVar, getenv)
		providers = append(providers, provider)
		timeouts[def.ID] = def.CallTimeout()
	}
	return providers, timeouts, nil
}

func openStore(ctx context.Context, settings domain.MemorySettings) (ports.InteractionStore, error) {
	if settings.Backend != domain.BackendSQLite {
		return history.NewMemoryStore(), nil
	}
	path := settings.DBPath
	if path == "" {
		path = history.DefaultPath()
	}
	store, err := history.OpenSQLite(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open interaction store: %w", err)
	}
	return store, nil
}

// Config returns the configuration currently in effect.
func (c *Container) Config() domain.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

func (c *Container) retentionDays() int {
	cfg := c.Config()
	return cfg.GetRetentionDays()
}

// ApplyConfig hot-swaps the settings that can change without a restart:
// retry policy, cache TTLs and memory retention. Invalid configs are rejected.
func (c *Container) ApplyConfig(cfg domain.Config) error {
	if err := appconfig.Validate(cfg); err != nil {
		return err
	}
	c.mu.Lock()
	c.config = cfg
	c.mu.Unlock()

	c.Orchestrator.SetPolicy(orchestrator.PolicyFromSettings(cfg.Retry))
	c.Orchestrator.SetTTLs(cfg.Cache.TTLs, cfg.GetFallbackTTL())
	c.Logger.Info("settings applied", map[string]interface{}{
		"max_retries":    cfg.GetMaxRetries(),
		"retention_days": cfg.GetRetentionDays(),
	})
	return nil
}

// Close drains pending interaction writes and releases the store.
func (c *Container) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return errors.Join(c.Memory.Close(), c.store.Close())
}
