package domain

import "time"

// Provider kinds understood by the adapter factory.
const (
	ProviderKindOpenAI    = "openai"
	ProviderKindHeuristic = "heuristic"
)

// ProviderDefinition describes one entry of the provider chain as declared in the config file.
type ProviderDefinition struct {
	ID                string          `yaml:"id"`
	Kind              string          `yaml:"kind"`
	Endpoint          string          `yaml:"endpoint,omitempty"`
	ModelID           string          `yaml:"model_id,omitempty"`
	AuthEnvVar        string          `yaml:"auth_env_var,omitempty"`
	OrgEnvVar         string          `yaml:"org_env_var,omitempty"`
	MaxTokens         int             `yaml:"max_tokens,omitempty"`
	Timeout           time.Duration   `yaml:"timeout,omitempty"`
	CostPer1KTokens   float64         `yaml:"cost_per_1k_tokens,omitempty"`
	RequestsPerMinute int             `yaml:"requests_per_minute,omitempty"`
	Prompt            []PromptMessage `yaml:"prompt,omitempty"`
}

// RequiresCredential reports whether the provider needs a secret before it can be called.
func (p ProviderDefinition) RequiresCredential() bool {
	return p.Kind != ProviderKindHeuristic
}

// CallTimeout returns the per-attempt timeout with default fallback.
func (p ProviderDefinition) CallTimeout() time.Duration {
	if p.Timeout <= 0 {
		return DefaultProviderTimeout
	}
	return p.Timeout
}

// PromptMessage follows the role/content pair required by most chat APIs.
type PromptMessage struct {
	Role    string `yaml:"role"`
	Content string `yaml:"content"`
}
