package ai

import (
	"fmt"
	"net/http"
	"time"

	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/ports"
)

// Factory builds provider adapters from config definitions.
type Factory struct {
	httpClient  *http.Client
	credentials ports.CredentialChecker
}

// NewFactory returns a factory whose generative adapters read secrets from credentials.
func NewFactory(credentials ports.CredentialChecker) *Factory {
	return &Factory{
		// per-attempt deadlines come from the caller's context
		httpClient:  &http.Client{Timeout: 2 * time.Minute},
		credentials: credentials,
	}
}

// WithHTTPClient overrides the transport, mostly for tests.
func (f *Factory) WithHTTPClient(client *http.Client) *Factory {
	f.httpClient = client
	return f
}

// ForDefinition implements ports.ProviderFactory.
func (f *Factory) ForDefinition(def domain.ProviderDefinition) (ports.Provider, error) {
	switch def.Kind {
	case domain.ProviderKindOpenAI:
		if f.credentials == nil {
			return nil, fmt.Errorf("%w: %s needs a credential source", domain.ErrProviderMisconfigured, def.ID)
		}
		return newGenerativeProvider(def, f.credentials, f.httpClient), nil
	case domain.ProviderKindHeuristic:
		return newHeuristicProvider(def), nil
	default:
		return nil, fmt.Errorf("%w: unsupported provider kind %q for %s", domain.ErrProviderMisconfigured, def.Kind, def.ID)
	}
}

// ProberFor returns the credential probe for def, or nil when the provider needs none.
func (f *Factory) ProberFor(def domain.ProviderDefinition) ports.CredentialProber {
	if def.Kind != domain.ProviderKindOpenAI {
		return nil
	}
	return newGenerativeProvider(def, f.credentials, f.httpClient)
}

var _ ports.ProviderFactory = (*Factory)(nil)
