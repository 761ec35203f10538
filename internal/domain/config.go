package domain

import "time"

// Config mirrors ~/.ridepilot/config.yaml.
type Config struct {
	ConfigFormatVersion string               `yaml:"config_format_version"`
	Providers           []ProviderDefinition `yaml:"providers"`
	Chain               []string             `yaml:"chain"`
	Retry               RetrySettings        `yaml:"retry"`
	Cache               CacheSettings        `yaml:"cache"`
	Memory              MemorySettings       `yaml:"memory"`
	Credentials         CredentialSettings   `yaml:"credentials"`
	Maps                MapsSettings         `yaml:"maps"`
	Orchestrator        OrchestratorSettings `yaml:"orchestrator"`
	Server              ServerSettings       `yaml:"server"`
	Logging             LoggingSettings      `yaml:"logging"`
}

// RetrySettings parameterizes the per-provider backoff.
type RetrySettings struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
}

// CacheSettings holds per-feature TTLs. A zero TTL disables caching for that feature.
type CacheSettings struct {
	TTLs          map[Feature]time.Duration `yaml:"ttls"`
	FallbackTTL   time.Duration             `yaml:"fallback_ttl"`
	SweepInterval time.Duration             `yaml:"sweep_interval"`
}

// MemorySettings controls the interaction store.
type MemorySettings struct {
	Backend       string        `yaml:"backend"`
	DBPath        string        `yaml:"db_path,omitempty"`
	RetentionDays int           `yaml:"retention_days"`
	ContextLimit  int           `yaml:"context_limit"`
	Buffer        int           `yaml:"buffer"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	RecordFailed  bool          `yaml:"record_failed"`
}

// CredentialSettings selects where provider secrets live.
type CredentialSettings struct {
	Backend        string `yaml:"backend"`
	KeyringService string `yaml:"keyring_service,omitempty"`
	EnvFile        string `yaml:"env_file,omitempty"`
}

// MapsSettings configures the directions provider.
type MapsSettings struct {
	ID         string        `yaml:"id"`
	Endpoint   string        `yaml:"endpoint"`
	Profile    string        `yaml:"profile"`
	AuthEnvVar string        `yaml:"auth_env_var,omitempty"`
	Timeout    time.Duration `yaml:"timeout"`
}

// OrchestratorSettings toggles optional orchestration behavior.
type OrchestratorSettings struct {
	Coalesce bool `yaml:"coalesce"`
}

// ServerSettings configures the HTTP surface.
type ServerSettings struct {
	Addr string `yaml:"addr"`
}

// LoggingSettings configures the structured logger.
type LoggingSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}
