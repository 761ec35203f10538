// Package usage keeps per-provider, per-feature consumption counters.
package usage

import (
	"sort"
	"sync"

	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/ports"
)

type rowKey struct {
	provider string
	feature  domain.Feature
}

// Ledger is safe for concurrent use. A single mutex guards all rows so Reset
// can never interleave with a half-applied Record.
type Ledger struct {
	mu   sync.Mutex
	rows map[rowKey]*domain.UsageRecord
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{rows: make(map[rowKey]*domain.UsageRecord)}
}

// Record credits one successful request.
func (l *Ledger) Record(providerID string, feature domain.Feature, tokens int, cost domain.Cost) {
	l.mu.Lock()
	defer l.mu.Unlock()
	row := l.row(providerID, feature)
	row.RequestCount++
	row.TotalTokens += int64(tokens)
	row.TotalCost += cost
}

// RecordFailure counts one failed attempt without crediting a request.
func (l *Ledger) RecordFailure(providerID string, feature domain.Feature) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.row(providerID, feature).FailedAttempts++
}

// Snapshot returns a copy sorted by provider then feature.
func (l *Ledger) Snapshot() []domain.UsageRecord {
	l.mu.Lock()
	out := make([]domain.UsageRecord, 0, len(l.rows))
	for _, row := range l.rows {
		out = append(out, *row)
	}
	l.mu.Unlock()
	sortRecords(out)
	return out
}

// Totals sums every row.
func (l *Ledger) Totals() domain.UsageRecord {
	var total domain.UsageRecord
	for _, row := range l.Snapshot() {
		total.RequestCount += row.RequestCount
		total.TotalTokens += row.TotalTokens
		total.TotalCost += row.TotalCost
		total.FailedAttempts += row.FailedAttempts
	}
	return total
}

// Reset zeroes all rows. Rows are kept so the set of seen pairs stays visible.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.zero()
}

// Drain returns the current rows and zeroes them in one step.
func (l *Ledger) Drain() []domain.UsageRecord {
	l.mu.Lock()
	out := make([]domain.UsageRecord, 0, len(l.rows))
	for _, row := range l.rows {
		out = append(out, *row)
	}
	l.zero()
	l.mu.Unlock()
	sortRecords(out)
	return out
}

func (l *Ledger) zero() {
	for _, row := range l.rows {
		row.RequestCount = 0
		row.TotalTokens = 0
		row.TotalCost = 0
		row.FailedAttempts = 0
	}
}

func (l *Ledger) row(providerID string, feature domain.Feature) *domain.UsageRecord {
	key := rowKey{provider: providerID, feature: feature}
	row, ok := l.rows[key]
	if !ok {
		row = &domain.UsageRecord{ProviderID: providerID, Feature: feature}
		l.rows[key] = row
	}
	return row
}

func sortRecords(records []domain.UsageRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].ProviderID != records[j].ProviderID {
			return records[i].ProviderID < records[j].ProviderID
		}
		return records[i].Feature < records[j].Feature
	})
}

var _ ports.UsageLedger = (*Ledger)(nil)
