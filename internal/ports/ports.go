// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// The orchestrator in the application layer depends only on these contracts.
// Concrete adapters (go-openai client, heuristic scorer, SQLite store, keyring,
// Prometheus collectors) live in the infrastructure layer and are wired together
// by internal/app, so tests can substitute fakes for any of them.
package ports

import (
	"context"
	"time"

	"github.com/doeshing/ridepilot/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.ridepilot/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// Provider answers feature requests on behalf of one external or local service.
// Call never returns a raw transport error: every failure is classified into the
// result's Status and ErrorKind.
type Provider interface {
	ID() string
	Call(ctx context.Context, req ProviderRequest) domain.ProviderResult
}

// ProviderRequest is the provider-agnostic shape of a single call.
type ProviderRequest struct {
	Feature domain.Feature
	Payload map[string]any
	// Context is plain text produced by interaction memory.
	Context string
}

// ProviderFactory builds providers from their config definitions.
type ProviderFactory interface {
	ForDefinition(domain.ProviderDefinition) (Provider, error)
}

// CredentialProber performs the cheapest authenticated call a provider offers.
// A nil error means the secret was accepted; failures are *domain.ProviderError.
type CredentialProber interface {
	Probe(ctx context.Context, secret string) error
}

// DirectionsProvider returns candidate routes between two points.
// Failures are *domain.ProviderError.
type DirectionsProvider interface {
	ID() string
	Routes(ctx context.Context, origin, destination domain.LatLng) ([]domain.Route, error)
}

// ResultCache stores orchestration results with per-entry expiry.
type ResultCache interface {
	Get(key string) (domain.OrchestrationResult, bool)
	Put(key string, value domain.OrchestrationResult, ttl time.Duration)
	Invalidate(key string)
	InvalidateFeature(feature domain.Feature) int
}

// UsageLedger accumulates per (provider, feature) consumption.
type UsageLedger interface {
	Record(providerID string, feature domain.Feature, tokens int, cost domain.Cost)
	RecordFailure(providerID string, feature domain.Feature)
	Snapshot() []domain.UsageRecord
	Reset()
}

// InteractionMemory is the orchestrator's view of past interactions.
type InteractionMemory interface {
	Append(domain.Interaction)
	ContextFor(ctx context.Context, feature domain.Feature, limit int) string
}

// InteractionStore persists interactions. Implementations must tolerate
// DeleteBefore running concurrently with Append.
type InteractionStore interface {
	Append(ctx context.Context, interaction domain.Interaction) error
	// Recent returns up to limit of the newest interactions for feature, oldest first.
	Recent(ctx context.Context, feature domain.Feature, limit int) ([]domain.Interaction, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}

// CredentialChecker answers whether a provider can be called right now.
type CredentialChecker interface {
	IsAvailable(providerID string) bool
	Secret(providerID string) (string, error)
}

// SecretStore is the backing storage for provider secrets.
type SecretStore interface {
	Get(providerID string) (string, error)
	Set(providerID, secret string) error
	Delete(providerID string) error
}

// Metrics records orchestration telemetry.
type Metrics interface {
	ObserveInvocation(feature domain.Feature, source string, elapsed time.Duration)
	ObserveAttempt(providerID string, feature domain.Feature, status domain.Status)
	ObserveCache(feature domain.Feature, hit bool)
	ObserveShortCircuit(feature domain.Feature)
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stdout, files, external services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
