// Package config checks a loaded configuration for consistency before it is wired.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/doeshing/ridepilot/internal/domain"
)

// Validate ensures config structure is consistent. All problems are reported together.
func Validate(cfg domain.Config) error {
	var errs []error
	if len(cfg.Providers) == 0 {
		errs = append(errs, errors.New("at least one provider must be configured"))
	}
	errs = append(errs, validateProviders(cfg.Providers)...)
	if err := validateChain(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateRetry(cfg.Retry); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, validateCache(cfg.Cache)...)
	if err := validateMemory(cfg.Memory); err != nil {
		errs = append(errs, err)
	}
	if err := validateCredentials(cfg.Credentials); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func validateProviders(providers []domain.ProviderDefinition) []error {
	var errs []error
	seen := make(map[string]bool, len(providers))
	for i, p := range providers {
		if strings.TrimSpace(p.ID) == "" {
			errs = append(errs, fmt.Errorf("providers[%d].id must be set", i))
			continue
		}
		if seen[p.ID] {
			errs = append(errs, fmt.Errorf("provider %s declared twice", p.ID))
		}
		seen[p.ID] = true

		switch p.Kind {
		case domain.ProviderKindOpenAI:
			if p.AuthEnvVar == "" {
				errs = append(errs, fmt.Errorf("provider %s: auth_env_var must be set", p.ID))
			}
		case domain.ProviderKindHeuristic:
		default:
			errs = append(errs, fmt.Errorf("provider %s: kind must be openai|heuristic, got %q", p.ID, p.Kind))
		}
		if p.CostPer1KTokens < 0 {
			errs = append(errs, fmt.Errorf("provider %s: cost_per_1k_tokens must be >= 0", p.ID))
		}
		if p.RequestsPerMinute < 0 {
			errs = append(errs, fmt.Errorf("provider %s: requests_per_minute must be >= 0", p.ID))
		}
	}
	return errs
}

func validateChain(cfg domain.Config) error {
	chain, err := cfg.ChainProviders()
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(chain))
	for _, p := range chain {
		if seen[p.ID] {
			return fmt.Errorf("chain lists %s more than once", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

func validateRetry(retry domain.RetrySettings) error {
	if retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must be >= 0")
	}
	if retry.MaxDelay > 0 && retry.MaxDelay < retry.BaseDelay {
		return fmt.Errorf("retry.max_delay (%s) must not be below retry.base_delay (%s)", retry.MaxDelay, retry.BaseDelay)
	}
	return nil
}

func validateCache(cache domain.CacheSettings) []error {
	var errs []error
	for feature, ttl := range cache.TTLs {
		if !feature.Valid() {
			errs = append(errs, fmt.Errorf("cache.ttls: %w: %q", domain.ErrUnknownFeature, feature))
		}
		if ttl < 0 {
			errs = append(errs, fmt.Errorf("cache.ttls.%s must be >= 0", feature))
		}
	}
	if cache.FallbackTTL < 0 {
		errs = append(errs, fmt.Errorf("cache.fallback_ttl must be >= 0"))
	}
	return errs
}

func validateMemory(memory domain.MemorySettings) error {
	switch memory.Backend {
	case "", domain.BackendMemory, domain.BackendSQLite:
	default:
		return fmt.Errorf("memory.backend must be memory|sqlite, got %s", memory.Backend)
	}
	if memory.RetentionDays < 0 {
		return fmt.Errorf("memory.retention_days must be >= 0")
	}
	return nil
}

func validateCredentials(creds domain.CredentialSettings) error {
	switch creds.Backend {
	case "", domain.BackendMemory, domain.BackendKeyring:
		return nil
	default:
		return fmt.Errorf("credentials.backend must be memory|keyring, got %s", creds.Backend)
	}
}
