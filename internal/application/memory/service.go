// Package memory folds recent interactions back into provider prompts.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/ports"
)

const (
	writeTimeout  = 5 * time.Second
	maxFieldRunes = 400
	// fallback entries are skipped in context, so fetch extra rows to still fill the limit
	overFetch = 4
)

// Options configures a Service.
type Options struct {
	Buffer int
	Now    func() time.Time
	NewID  func() string
}

// Service is the Interaction Memory. Append never blocks: entries go through a
// bounded queue drained by a single writer goroutine and are dropped when it is full.
type Service struct {
	store ports.InteractionStore
	log   ports.Logger
	now   func() time.Time
	newID func() string

	mu      sync.RWMutex
	closed  bool
	queue   chan domain.Interaction
	done    chan struct{}
	dropped atomic.Int64
	written atomic.Int64
}

// NewService starts the background writer.
func NewService(store ports.InteractionStore, log ports.Logger, opts Options) *Service {
	if opts.Buffer <= 0 {
		opts.Buffer = domain.DefaultMemoryBuffer
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	s := &Service{
		store: store,
		log:   log,
		now:   opts.Now,
		newID: opts.NewID,
		queue: make(chan domain.Interaction, opts.Buffer),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

// Append enqueues an interaction. Missing ID and Timestamp are filled in.
func (s *Service) Append(in domain.Interaction) {
	if in.ID == "" {
		in.ID = s.newID()
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = s.now()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.drop(in, "closed")
		return
	}
	select {
	case s.queue <- in:
	default:
		s.drop(in, "queue full")
	}
}

func (s *Service) drop(in domain.Interaction, reason string) {
	s.dropped.Add(1)
	s.log.Warn("interaction dropped", map[string]interface{}{
		"feature": string(in.Feature),
		"reason":  reason,
	})
}

func (s *Service) run() {
	defer close(s.done)
	for in := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := s.store.Append(ctx, in)
		cancel()
		if err != nil {
			s.log.Error("interaction append failed", err, map[string]interface{}{
				"feature": string(in.Feature),
				"id":      in.ID,
			})
			continue
		}
		s.written.Add(1)
	}
}

// ContextFor renders the limit most recent provider-sourced interactions of feature
// as plain text, most recent last. It returns "" when there are none or the store fails.
func (s *Service) ContextFor(ctx context.Context, feature domain.Feature, limit int) string {
	if limit <= 0 {
		return ""
	}
	records, err := s.store.Recent(ctx, feature, limit*overFetch)
	if err != nil {
		s.log.Error("load interaction context", err, map[string]interface{}{"feature": string(feature)})
		return ""
	}

	kept := make([]domain.Interaction, 0, len(records))
	for _, rec := range records {
		if rec.Source() == domain.SourceFallback {
			continue
		}
		kept = append(kept, rec)
	}
	if len(kept) > limit {
		kept = kept[len(kept)-limit:]
	}
	return Format(kept)
}

// Format renders interactions deterministically.
func Format(records []domain.Interaction) string {
	if len(records) == 0 {
		return ""
	}
	var b strings.Builder
	for i, rec := range records {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s] Q: %s\nA: %s",
			rec.Timestamp.UTC().Format(domain.TimestampFormat),
			truncate(oneLine(rec.Query)),
			truncate(oneLine(rec.Response)))
	}
	return b.String()
}

// Recent exposes the newest interactions for introspection.
func (s *Service) Recent(ctx context.Context, feature domain.Feature, limit int) ([]domain.Interaction, error) {
	return s.store.Recent(ctx, feature, limit)
}

// Sweep deletes interactions older than retentionDays. Safe to run alongside Append.
func (s *Service) Sweep(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = domain.DefaultHistoryRetainDays
	}
	cutoff := s.now().Add(-time.Duration(retentionDays) * 24 * time.Hour)
	removed, err := s.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep interactions: %w", err)
	}
	if removed > 0 {
		s.log.Info("interactions swept", map[string]interface{}{
			"removed": removed,
			"cutoff":  cutoff.Format(domain.TimestampFormat),
		})
	}
	return removed, nil
}

// Dropped counts appends discarded because the queue was full or closed.
func (s *Service) Dropped() int64 {
	return s.dropped.Load()
}

// Written counts interactions persisted successfully.
func (s *Service) Written() int64 {
	return s.written.Load()
}

// Close stops accepting appends and waits for the queue to drain.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()
	<-s.done
	return nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxFieldRunes {
		return s
	}
	return string(runes[:maxFieldRunes]) + "..."
}

var _ ports.InteractionMemory = (*Service)(nil)
