// Package credentials is the sole owner of provider secrets and their validity.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/ports"
)

type providerState struct {
	requiresSecret bool
	probe          ports.CredentialProber
	validity       domain.Validity
	lastCheckedAt  time.Time
}

// Registry answers "is provider P usable?" and validates secrets with provider probes.
type Registry struct {
	mu        sync.RWMutex
	store     ports.SecretStore
	providers map[string]*providerState
	log       ports.Logger
	now       func() time.Time
	timeout   time.Duration
}

// NewRegistry builds a registry over store.
func NewRegistry(store ports.SecretStore, log ports.Logger) *Registry {
	return &Registry{
		store:     store,
		providers: make(map[string]*providerState),
		log:       log,
		now:       time.Now,
		timeout:   domain.DefaultValidationTimeout,
	}
}

// WithClock overrides the time source.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// Register declares a provider. Providers that need no secret are always available;
// if one is stored anyway, Validate still probes it.
func (r *Registry) Register(providerID string, requiresSecret bool, probe ports.CredentialProber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[providerID] = &providerState{
		requiresSecret: requiresSecret,
		probe:          probe,
		validity:       domain.ValidityUnknown,
	}
}

// IsAvailable is true when the provider is registered and either needs no secret
// or has one that has not been proven invalid.
func (r *Registry) IsAvailable(providerID string) bool {
	r.mu.RLock()
	state, ok := r.providers[providerID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if !state.requiresSecret {
		return true
	}
	if r.validity(providerID) == domain.ValidityInvalid {
		return false
	}
	_, err := r.store.Get(providerID)
	return err == nil
}

// Secret returns the stored secret for providerID.
func (r *Registry) Secret(providerID string) (string, error) {
	return r.store.Get(providerID)
}

// SetCredential stores secret and resets validity to Unknown. An empty secret removes it.
func (r *Registry) SetCredential(providerID, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.providers[providerID]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownProvider, providerID)
	}

	var err error
	if secret == "" {
		err = r.store.Delete(providerID)
	} else {
		err = r.store.Set(providerID, secret)
	}
	if err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	state.validity = domain.ValidityUnknown
	r.log.Info("credential updated", map[string]interface{}{"provider": providerID, "cleared": secret == ""})
	return nil
}

// SeedFromEnv stores the value of envVar for providerID unless a secret already exists.
func (r *Registry) SeedFromEnv(providerID, envVar string, lookup func(string) string) bool {
	if envVar == "" || lookup == nil {
		return false
	}
	value := lookup(envVar)
	if value == "" {
		return false
	}
	if _, err := r.store.Get(providerID); err == nil {
		return false
	}
	if err := r.SetCredential(providerID, value); err != nil {
		r.log.Warn("seed credential failed", map[string]interface{}{"provider": providerID, "error": err.Error()})
		return false
	}
	return true
}

// Validate probes the provider with its stored secret and records the outcome.
// It never fails: every problem is reported through the result's reason.
func (r *Registry) Validate(ctx context.Context, providerID string) domain.ValidationResult {
	r.mu.RLock()
	state, ok := r.providers[providerID]
	r.mu.RUnlock()
	if !ok {
		return domain.ValidationResult{Valid: false, Reason: domain.ReasonUnknownService}
	}
	secret, err := r.store.Get(providerID)
	// an optional secret is only probed when one is actually stored
	if !state.requiresSecret && (err != nil || state.probe == nil) {
		r.record(providerID, domain.ValidityValid)
		return domain.ValidationResult{Valid: true, Reason: domain.ReasonOK}
	}
	if err != nil {
		r.record(providerID, domain.ValidityInvalid)
		return domain.ValidationResult{Valid: false, Reason: domain.ReasonMissingSecret}
	}
	if state.probe == nil {
		// nothing can vouch for the secret either way
		r.record(providerID, domain.ValidityUnknown)
		return domain.ValidationResult{Valid: false, Reason: domain.ReasonUnverifiable}
	}

	probeCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	result := outcome(r.safeProbe(probeCtx, state.probe, secret))
	if result.Valid {
		r.record(providerID, domain.ValidityValid)
	} else {
		r.record(providerID, domain.ValidityInvalid)
	}
	r.log.Info("credential validated", map[string]interface{}{
		"provider": providerID,
		"valid":    result.Valid,
		"reason":   result.Reason,
	})
	return result
}

func (r *Registry) safeProbe(ctx context.Context, probe ports.CredentialProber, secret string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("probe panic: %v", rec)
		}
	}()
	return probe.Probe(ctx, secret)
}

func outcome(err error) domain.ValidationResult {
	if err == nil {
		return domain.ValidationResult{Valid: true, Reason: domain.ReasonOK}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.ValidationResult{Valid: false, Reason: domain.ReasonNetwork}
	}
	switch kind := domain.KindOf(err); kind {
	case domain.ErrorKindNetwork, domain.ErrorKindTimeout, domain.ErrorKindServer:
		return domain.ValidationResult{Valid: false, Reason: domain.ReasonNetwork}
	case domain.ErrorKindAuth:
		return domain.ValidationResult{Valid: false, Reason: domain.ReasonUnauthorized}
	case domain.ErrorKindInternal:
		return domain.ValidationResult{Valid: false, Reason: domain.ReasonRejected}
	default:
		return domain.ValidationResult{Valid: false, Reason: string(kind)}
	}
}

func (r *Registry) record(providerID string, validity domain.Validity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok := r.providers[providerID]; ok {
		state.validity = validity
		state.lastCheckedAt = r.now()
	}
}

func (r *Registry) validity(providerID string) domain.Validity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if state, ok := r.providers[providerID]; ok {
		return state.validity
	}
	return domain.ValidityUnknown
}

// Credential returns the full record for providerID, secret included.
func (r *Registry) Credential(providerID string) (domain.Credential, error) {
	r.mu.RLock()
	state, ok := r.providers[providerID]
	var cred domain.Credential
	if ok {
		cred = domain.Credential{
			ProviderID:    providerID,
			Validity:      state.validity,
			LastCheckedAt: state.lastCheckedAt,
		}
	}
	r.mu.RUnlock()
	if !ok {
		return domain.Credential{}, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, providerID)
	}
	if secret, err := r.store.Get(providerID); err == nil {
		cred.Secret = secret
	}
	return cred, nil
}

// Status lists every registered provider without exposing secrets.
func (r *Registry) Status() []domain.CredentialStatus {
	r.mu.RLock()
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)

	out := make([]domain.CredentialStatus, 0, len(ids))
	for _, id := range ids {
		cred, err := r.Credential(id)
		if err != nil {
			continue
		}
		r.mu.RLock()
		required := r.providers[id].requiresSecret
		r.mu.RUnlock()
		out = append(out, domain.CredentialStatus{
			ProviderID:    id,
			HasSecret:     cred.Secret != "",
			Masked:        domain.MaskSecret(cred.Secret),
			Validity:      cred.Validity,
			LastCheckedAt: cred.LastCheckedAt,
			Required:      required,
		})
	}
	return out
}

var _ ports.CredentialChecker = (*Registry)(nil)
