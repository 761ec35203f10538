// Package history stores past interactions for prompt context.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/ports"
)

// MemoryStore keeps interactions for the lifetime of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	records []domain.Interaction
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, in domain.Interaction) error {
	in.Metadata = cloneMetadata(in.Metadata)
	s.mu.Lock()
	defer s.mu.Unlock()
	// keep records sorted by timestamp; appends are almost always in order
	i := len(s.records)
	for i > 0 && s.records[i-1].Timestamp.After(in.Timestamp) {
		i--
	}
	s.records = append(s.records, domain.Interaction{})
	copy(s.records[i+1:], s.records[i:])
	s.records[i] = in
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, feature domain.Feature, limit int) ([]domain.Interaction, error) {
	if limit <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var picked []domain.Interaction
	for i := len(s.records) - 1; i >= 0 && len(picked) < limit; i-- {
		if s.records[i].Feature == feature {
			rec := s.records[i]
			rec.Metadata = cloneMetadata(rec.Metadata)
			picked = append(picked, rec)
		}
	}
	for i, j := 0, len(picked)-1; i < j; i, j = i+1, j-1 {
		picked[i], picked[j] = picked[j], picked[i]
	}
	return picked, nil
}

func (s *MemoryStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[:0]
	var removed int64
	for _, rec := range s.records {
		if rec.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	s.records = kept
	return removed, nil
}

// Len returns the number of stored interactions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryStore) Close() error {
	return nil
}

func cloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var _ ports.InteractionStore = (*MemoryStore)(nil)
