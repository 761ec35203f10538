// Package config loads ~/.ridepilot/config.yaml and the .env files that carry provider secrets.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/pkg/filesystem"
	"github.com/doeshing/ridepilot/internal/ports"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "RIDEPILOT_CONFIG"

// FileLoader loads YAML configuration from ~/.ridepilot/config.yaml (overridable via RIDEPILOT_CONFIG).
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader. An empty path selects the default location.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Load implements ports.ConfigProvider. A missing file is created with defaults.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.Path()
	if err := ensureConfigDir(path); err != nil {
		return domain.Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := writeDefault(path, cfg); err != nil {
				return domain.Config{}, err
			}
			return cfg, nil
		}
		return domain.Config{}, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return domain.Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML and fills unset fields with defaults.
func Parse(data []byte) (domain.Config, error) {
	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, err
	}
	return hydrateDefaults(cfg), nil
}

// Path is the file Load reads.
func (l *FileLoader) Path() string {
	if l.overridePath != "" {
		return expandPath(l.overridePath)
	}
	if custom := os.Getenv(EnvConfigPath); custom != "" {
		return expandPath(custom)
	}
	return filepath.Join(HomeDir(), "config.yaml")
}

// HomeDir is ~/.ridepilot.
func HomeDir() string {
	return filepath.Join(filesystem.UserHomeDir(), ".ridepilot")
}

func ensureConfigDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions)
}

func writeDefault(path string, cfg domain.Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, domain.SecureFilePermissions)
}

// DefaultConfig chains the OpenAI provider in front of the local heuristic model.
func DefaultConfig() domain.Config {
	return hydrateDefaults(domain.Config{
		ConfigFormatVersion: "1",
		Providers: []domain.ProviderDefinition{
			{
				ID:                "openai",
				Kind:              domain.ProviderKindOpenAI,
				Endpoint:          "https://api.openai.com/v1",
				ModelID:           "gpt-4o-mini",
				AuthEnvVar:        "OPENAI_API_KEY",
				OrgEnvVar:         "OPENAI_ORG_ID",
				MaxTokens:         domain.DefaultMaxTokens,
				Timeout:           domain.DefaultProviderTimeout,
				CostPer1KTokens:   0.002,
				RequestsPerMinute: 60,
			},
			{
				ID:   "heuristic",
				Kind: domain.ProviderKindHeuristic,
			},
		},
		Chain: []string{"openai", "heuristic"},
		Retry: domain.RetrySettings{
			MaxRetries: domain.DefaultMaxRetries,
			BaseDelay:  domain.DefaultBaseDelay,
			MaxDelay:   domain.DefaultMaxDelay,
		},
		Memory: domain.MemorySettings{Backend: domain.BackendSQLite},
		Maps: domain.MapsSettings{
			ID:         "osrm",
			Endpoint:   "https://router.project-osrm.org",
			Profile:    "driving",
			AuthEnvVar: "RIDEPILOT_MAPS_KEY",
		},
	})
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = "1"
	}
	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if p.Kind == "" {
			p.Kind = domain.ProviderKindOpenAI
		}
		if p.Timeout <= 0 {
			p.Timeout = domain.DefaultProviderTimeout
		}
		if p.Kind == domain.ProviderKindOpenAI && p.MaxTokens == 0 {
			p.MaxTokens = domain.DefaultMaxTokens
		}
	}
	// an absent retry section means defaults; an explicit max_retries: 0 is kept
	if cfg.Retry == (domain.RetrySettings{}) {
		cfg.Retry = domain.RetrySettings{MaxRetries: domain.DefaultMaxRetries}
	}
	if cfg.Retry.BaseDelay <= 0 {
		cfg.Retry.BaseDelay = domain.DefaultBaseDelay
	}
	if cfg.Retry.MaxDelay <= 0 {
		cfg.Retry.MaxDelay = domain.DefaultMaxDelay
	}

	ttls := domain.DefaultTTLs()
	for f, ttl := range cfg.Cache.TTLs {
		ttls[f] = ttl
	}
	cfg.Cache.TTLs = ttls
	if cfg.Cache.FallbackTTL <= 0 {
		cfg.Cache.FallbackTTL = domain.DefaultFallbackTTL
	}
	if cfg.Cache.SweepInterval <= 0 {
		cfg.Cache.SweepInterval = domain.DefaultCacheSweepInterval
	}

	if cfg.Memory.Backend == "" {
		cfg.Memory.Backend = domain.BackendSQLite
	}
	if cfg.Memory.RetentionDays <= 0 {
		cfg.Memory.RetentionDays = domain.DefaultHistoryRetainDays
	}
	if cfg.Memory.ContextLimit <= 0 {
		cfg.Memory.ContextLimit = domain.DefaultContextLimit
	}
	if cfg.Memory.Buffer <= 0 {
		cfg.Memory.Buffer = domain.DefaultMemoryBuffer
	}
	if cfg.Memory.SweepInterval <= 0 {
		cfg.Memory.SweepInterval = domain.DefaultMemorySweepInterval
	}

	if cfg.Credentials.Backend == "" {
		cfg.Credentials.Backend = domain.BackendMemory
	}
	if cfg.Credentials.KeyringService == "" {
		cfg.Credentials.KeyringService = domain.DefaultKeyringService
	}
	if cfg.Maps.Timeout <= 0 {
		cfg.Maps.Timeout = domain.DefaultProviderTimeout
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = domain.DefaultServerAddr
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	return cfg
}

func expandPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if len(path) > 1 && path[:2] == "~/" {
		return filepath.Join(filesystem.UserHomeDir(), path[2:])
	}
	return filepath.Clean(path)
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
