package usage

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/ridepilot/internal/domain"
)

func TestLedger_RecordCreatesRow(t *testing.T) {
	l := NewLedger()
	l.Record("openai", domain.FeaturePrice, 120, domain.CostFromDollars(0.0024))

	snap := l.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, domain.UsageRecord{
		ProviderID:   "openai",
		Feature:      domain.FeaturePrice,
		RequestCount: 1,
		TotalTokens:  120,
		TotalCost:    2400,
	}, snap[0])
}

func TestLedger_ConcurrentRecordsAreExact(t *testing.T) {
	l := NewLedger()
	const workers = 50
	const perWorker = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			feature := domain.FeaturePrice
			if w%2 == 0 {
				feature = domain.FeatureMatch
			}
			for i := 0; i < perWorker; i++ {
				l.Record("openai", feature, 3, 7)
				if i%10 == 0 {
					l.RecordFailure("openai", feature)
				}
			}
		}(w)
	}
	wg.Wait()

	total := l.Totals()
	assert.EqualValues(t, workers*perWorker, total.RequestCount)
	assert.EqualValues(t, workers*perWorker*3, total.TotalTokens)
	assert.EqualValues(t, workers*perWorker*7, total.TotalCost)
	assert.EqualValues(t, workers*perWorker/10, total.FailedAttempts)
}

func TestLedger_SnapshotIsCopy(t *testing.T) {
	l := NewLedger()
	l.Record("openai", domain.FeatureChat, 1, 1)
	snap := l.Snapshot()
	snap[0].RequestCount = 99

	assert.EqualValues(t, 1, l.Snapshot()[0].RequestCount)
}

func TestLedger_SnapshotOrder(t *testing.T) {
	l := NewLedger()
	l.Record("openai", domain.FeaturePrice, 1, 0)
	l.Record("heuristic", domain.FeatureRoute, 1, 0)
	l.Record("heuristic", domain.FeatureMatch, 1, 0)

	snap := l.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "heuristic", snap[0].ProviderID)
	assert.Equal(t, domain.FeatureMatch, snap[0].Feature)
	assert.Equal(t, domain.FeatureRoute, snap[1].Feature)
	assert.Equal(t, "openai", snap[2].ProviderID)
}

func TestLedger_DrainDuringRecordsLosesNothing(t *testing.T) {
	l := NewLedger()
	const n = 1000

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < n; i++ {
			l.Record("openai", domain.FeaturePrice, 1, 1)
		}
	}()

	var drained int64
	for finished := false; !finished; {
		select {
		case <-done:
			finished = true
		default:
		}
		for _, row := range l.Drain() {
			drained += row.RequestCount
		}
	}

	assert.EqualValues(t, n, drained+l.Totals().RequestCount)
}

func TestLedger_ResetZeroesAllRows(t *testing.T) {
	l := NewLedger()
	l.Record("openai", domain.FeaturePrice, 10, 10)
	l.Record("heuristic", domain.FeatureMatch, 5, 0)
	l.RecordFailure("openai", domain.FeatureMatch)

	l.Reset()

	snap := l.Snapshot()
	require.Len(t, snap, 3)
	for _, row := range snap {
		assert.Zero(t, row.RequestCount)
		assert.Zero(t, row.TotalTokens)
		assert.Zero(t, row.TotalCost)
		assert.Zero(t, row.FailedAttempts)
	}
}
