package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Provider constants
const (
	// DefaultProviderTimeout bounds a single provider attempt
	DefaultProviderTimeout = 15 * time.Second
	// DefaultMaxTokens is the default maximum number of completion tokens
	DefaultMaxTokens = 1024
	// DefaultValidationTimeout bounds a credential probe
	DefaultValidationTimeout = 10 * time.Second
)

// Retry constants
const (
	DefaultMaxRetries = 2
	DefaultBaseDelay  = 500 * time.Millisecond
	DefaultMaxDelay   = 4 * time.Second
)

// Cache constants
const (
	DefaultPriceTTL     = 5 * time.Minute
	DefaultDemandTTL    = 5 * time.Minute
	DefaultAnalyticsTTL = 30 * time.Minute
	DefaultMatchTTL     = 2 * time.Minute
	DefaultRouteTTL     = 10 * time.Minute
	// DefaultFallbackTTL keeps repeated outages from hammering providers
	DefaultFallbackTTL = 30 * time.Second
	// DefaultCacheSweepInterval is how often expired entries are purged
	DefaultCacheSweepInterval = time.Minute
)

// Interaction memory constants
const (
	// DefaultHistoryRetainDays is the default number of days to retain interactions
	DefaultHistoryRetainDays = 30
	// DefaultContextLimit is how many past interactions are folded into a prompt
	DefaultContextLimit = 5
	// DefaultMemoryBuffer is the capacity of the async append queue
	DefaultMemoryBuffer = 256
	// DefaultMemorySweepInterval is how often old interactions are pruned
	DefaultMemorySweepInterval = time.Hour
)

// Backend names
const (
	BackendMemory  = "memory"
	BackendSQLite  = "sqlite"
	BackendKeyring = "keyring"
)

// DefaultKeyringService namespaces secrets in the OS keyring.
const DefaultKeyringService = "ridepilot"

// DefaultServerAddr is the listen address for serve mode.
const DefaultServerAddr = "127.0.0.1:8787"

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
)
