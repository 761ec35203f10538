package domain

import "time"

// Interaction is one remembered exchange with a provider, used as prompt context later.
type Interaction struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Feature   Feature           `json:"feature"`
	Query     string            `json:"query"`
	Response  string            `json:"response"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Source returns the provenance recorded in metadata, if any.
func (i Interaction) Source() string {
	if i.Metadata == nil {
		return ""
	}
	return i.Metadata[MetadataSource]
}

// Metadata keys recorded on interactions.
const (
	MetadataSource     = "source"
	MetadataTokensUsed = "tokens_used"
)

// CacheEntry stores an orchestration result until ExpiresAt.
type CacheEntry struct {
	Key       string              `json:"key"`
	Value     OrchestrationResult `json:"value"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// Expired reports whether the entry must no longer be served at now.
func (e CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// UsageRecord aggregates consumption for one (provider, feature) pair.
type UsageRecord struct {
	ProviderID     string  `json:"provider_id"`
	Feature        Feature `json:"feature"`
	RequestCount   int64   `json:"request_count"`
	TotalTokens    int64   `json:"total_tokens"`
	TotalCost      Cost    `json:"total_cost"`
	FailedAttempts int64   `json:"failed_attempts"`
}
