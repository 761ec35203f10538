// Package doctor runs environment diagnostics for the orchestrator.
package doctor

import (
	"context"
	"fmt"
	"strings"
	"time"

	appconfig "github.com/doeshing/ridepilot/internal/application/config"
	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/ports"
)

// CredentialLister reports the registered providers and their secrets.
type CredentialLister interface {
	Status() []domain.CredentialStatus
}

// HistoryReader is the read side of interaction memory.
type HistoryReader interface {
	Recent(ctx context.Context, feature domain.Feature, limit int) ([]domain.Interaction, error)
}

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider ports.ConfigProvider
	Credentials    CredentialLister
	History        HistoryReader
	// Directions is probed with a zero-length route when a maps endpoint is configured.
	Directions ports.DirectionsProvider
}

const directionsProbeTimeout = 5 * time.Second

// Run executes checks and returns a report. The error is non-nil only when
// the configuration itself cannot be loaded.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	checks = append(checks, ok("Config file", fmt.Sprintf("loaded %s", cfg.ConfigFormatVersion)))

	if err := appconfig.Validate(cfg); err != nil {
		checks = append(checks, fail("Config rules", strings.ReplaceAll(err.Error(), "\n", "; ")))
	} else {
		checks = append(checks, ok("Config rules", fmt.Sprintf("%d providers, chain of %d", len(cfg.Providers), chainLen(cfg))))
	}

	if s.Credentials != nil {
		checks = append(checks, credentialCheck(s.Credentials.Status()))
	} else {
		checks = append(checks, warn("Credentials", "registry not initialized"))
	}

	if s.History != nil {
		if _, err := s.History.Recent(ctx, domain.FeatureChat, 1); err != nil {
			checks = append(checks, fail("Interaction memory", err.Error()))
		} else {
			checks = append(checks, ok("Interaction memory", fmt.Sprintf("%s backend reachable", backendName(cfg.Memory.Backend))))
		}
	}

	checks = append(checks, s.directionsCheck(ctx, cfg.Maps.Endpoint))

	return domain.HealthReport{Checks: checks}, nil
}

func (s *Service) directionsCheck(ctx context.Context, endpoint string) domain.HealthCheck {
	if endpoint == "" {
		return warn("Directions", "no maps endpoint; routes fall back to straight-line estimates")
	}
	if s.Directions == nil {
		return warn("Directions", endpoint+" configured but client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, directionsProbeTimeout)
	defer cancel()
	here := domain.LatLng{}
	if _, err := s.Directions.Routes(ctx, here, here); err != nil {
		if domain.KindOf(err) == domain.ErrorKindAuth {
			return fail("Directions", fmt.Sprintf("%s rejected the key: %v", endpoint, err))
		}
		return warn("Directions", fmt.Sprintf("%s unreachable, routes fall back to straight-line estimates: %v", endpoint, err))
	}
	return ok("Directions", endpoint+" reachable")
}

func credentialCheck(rows []domain.CredentialStatus) domain.HealthCheck {
	var missing, invalid []string
	for _, row := range rows {
		if !row.Required {
			continue
		}
		switch {
		case !row.HasSecret:
			missing = append(missing, row.ProviderID)
		case row.Validity == domain.ValidityInvalid:
			invalid = append(invalid, row.ProviderID)
		}
	}
	switch {
	case len(invalid) > 0:
		return fail("Credentials", "rejected: "+strings.Join(invalid, ", "))
	case len(missing) > 0:
		return warn("Credentials", "missing: "+strings.Join(missing, ", "))
	default:
		return ok("Credentials", fmt.Sprintf("%d providers ready", len(rows)))
	}
}

func chainLen(cfg domain.Config) int {
	chain, err := cfg.ChainProviders()
	if err != nil {
		return 0
	}
	return len(chain)
}

func backendName(backend string) string {
	if backend == "" {
		return domain.BackendMemory
	}
	return backend
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
