package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/doeshing/ridepilot/internal/ports"
)

// usageCollector reads the ledger on every scrape. Ledger rows can be reset,
// so they are exported as gauges.
type usageCollector struct {
	ledger   ports.UsageLedger
	requests *prometheus.Desc
	failures *prometheus.Desc
	tokens   *prometheus.Desc
	cost     *prometheus.Desc
}

func newUsageCollector(ledger ports.UsageLedger) *usageCollector {
	labels := []string{"provider", "feature"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "usage", name), help, labels, nil)
	}
	return &usageCollector{
		ledger:   ledger,
		requests: desc("requests", "Successful requests since the last ledger reset"),
		failures: desc("failed_attempts", "Failed provider attempts since the last ledger reset"),
		tokens:   desc("tokens", "Tokens consumed since the last ledger reset"),
		cost:     desc("cost_dollars", "Spend in USD since the last ledger reset"),
	}
}

func (u *usageCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- u.requests
	ch <- u.failures
	ch <- u.tokens
	ch <- u.cost
}

func (u *usageCollector) Collect(ch chan<- prometheus.Metric) {
	for _, row := range u.ledger.Snapshot() {
		labels := []string{row.ProviderID, string(row.Feature)}
		ch <- prometheus.MustNewConstMetric(u.requests, prometheus.GaugeValue, float64(row.RequestCount), labels...)
		ch <- prometheus.MustNewConstMetric(u.failures, prometheus.GaugeValue, float64(row.FailedAttempts), labels...)
		ch <- prometheus.MustNewConstMetric(u.tokens, prometheus.GaugeValue, float64(row.TotalTokens), labels...)
		ch <- prometheus.MustNewConstMetric(u.cost, prometheus.GaugeValue, row.TotalCost.Dollars(), labels...)
	}
}
