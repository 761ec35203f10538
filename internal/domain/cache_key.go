package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// CacheKey derives the canonical cache key for a feature request.
// Payloads are normalized through a JSON round-trip so that equal content with
// different Go types (int vs float64, nested map types) hashes identically;
// encoding/json writes map keys in sorted order.
func CacheKey(feature Feature, payload map[string]any) (string, error) {
	normalized, err := NormalizePayload(payload)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	sum := sha256.New()
	sum.Write([]byte(feature))
	sum.Write([]byte{0})
	sum.Write(raw)
	return hex.EncodeToString(sum.Sum(nil)), nil
}

// NormalizePayload converts payload into plain JSON types.
func NormalizePayload(payload map[string]any) (map[string]any, error) {
	if payload == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("normalize payload: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("normalize payload: %w", err)
	}
	return out, nil
}
