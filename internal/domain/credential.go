package domain

import "time"

// Validity is the last known state of a credential.
type Validity string

const (
	ValidityUnknown Validity = "unknown"
	ValidityValid   Validity = "valid"
	ValidityInvalid Validity = "invalid"
)

// Credential holds a provider secret and what we last learned about it.
type Credential struct {
	ProviderID    string
	Secret        string
	Validity      Validity
	LastCheckedAt time.Time
}

// Redacted returns a copy safe for display.
func (c Credential) Redacted() Credential {
	c.Secret = MaskSecret(c.Secret)
	return c
}

// MaskSecret keeps only the last four characters of a secret.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

// Validation reasons.
const (
	ReasonOK             = "ok"
	ReasonNetwork        = "network"
	ReasonUnauthorized   = "unauthorized"
	ReasonMissingSecret  = "missing_secret"
	ReasonUnknownService = "unknown_provider"
	ReasonRejected       = "rejected"
	ReasonUnverifiable   = "unverifiable"
)

// ValidationResult is the outcome of a credential probe.
type ValidationResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}

// CredentialStatus is a display row for the credential registry.
type CredentialStatus struct {
	ProviderID    string    `json:"provider_id"`
	HasSecret     bool      `json:"has_secret"`
	Masked        string    `json:"masked,omitempty"`
	Validity      Validity  `json:"validity"`
	LastCheckedAt time.Time `json:"last_checked_at,omitempty"`
	Required      bool      `json:"required"`
}
