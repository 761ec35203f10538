package domain

import (
	"fmt"
	"time"
)

// ProviderByID looks up a provider definition.
func (c *Config) ProviderByID(id string) (ProviderDefinition, error) {
	for _, p := range c.Providers {
		if p.ID == id {
			return p, nil
		}
	}
	return ProviderDefinition{}, fmt.Errorf("%w: %q", ErrUnknownProvider, id)
}

// ChainProviders resolves the ordered provider chain.
// When no chain is configured the declaration order of Providers is used.
func (c *Config) ChainProviders() ([]ProviderDefinition, error) {
	if len(c.Chain) == 0 {
		out := make([]ProviderDefinition, len(c.Providers))
		copy(out, c.Providers)
		return out, nil
	}
	out := make([]ProviderDefinition, 0, len(c.Chain))
	for _, id := range c.Chain {
		p, err := c.ProviderByID(id)
		if err != nil {
			return nil, fmt.Errorf("chain: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

// TTLFor returns the cache lifetime for a feature. Zero means the feature is never cached.
func (c *Config) TTLFor(feature Feature) time.Duration {
	if ttl, ok := c.Cache.TTLs[feature]; ok {
		return ttl
	}
	return DefaultTTLs()[feature]
}

// GetFallbackTTL returns the TTL used for locally computed fallback results
func (c *Config) GetFallbackTTL() time.Duration {
	if c.Cache.FallbackTTL <= 0 {
		return DefaultFallbackTTL
	}
	return c.Cache.FallbackTTL
}

// GetRetentionDays returns the number of days to retain interactions
func (c *Config) GetRetentionDays() int {
	if c.Memory.RetentionDays <= 0 {
		return DefaultHistoryRetainDays
	}
	return c.Memory.RetentionDays
}

// GetContextLimit returns how many interactions feed prompt context
func (c *Config) GetContextLimit() int {
	if c.Memory.ContextLimit <= 0 {
		return DefaultContextLimit
	}
	return c.Memory.ContextLimit
}

// GetMaxRetries returns the retry cap. Negative values are treated as zero retries.
func (c *Config) GetMaxRetries() int {
	if c.Retry.MaxRetries < 0 {
		return 0
	}
	return c.Retry.MaxRetries
}

// GetCredentialBackend returns the configured secret backend
func (c *Config) GetCredentialBackend() string {
	if c.Credentials.Backend == "" {
		return BackendMemory
	}
	return c.Credentials.Backend
}

// DefaultTTLs reflects how fast each feature's real-world signal goes stale.
func DefaultTTLs() map[Feature]time.Duration {
	return map[Feature]time.Duration{
		FeatureMatch:          DefaultMatchTTL,
		FeaturePrice:          DefaultPriceTTL,
		FeatureRoute:          DefaultRouteTTL,
		FeatureDemandForecast: DefaultDemandTTL,
		FeatureAnalytics:      DefaultAnalyticsTTL,
		FeatureChat:           0,
	}
}
