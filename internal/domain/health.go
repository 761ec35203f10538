package domain

// HealthStatus grades one diagnostic check.
type HealthStatus string

const (
	HealthOK    HealthStatus = "ok"
	HealthWarn  HealthStatus = "warn"
	HealthError HealthStatus = "error"
)

// HealthCheck is one line of a doctor report.
type HealthCheck struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Details string       `json:"details"`
}

// HealthReport aggregates checks.
type HealthReport struct {
	Checks []HealthCheck `json:"checks"`
}

// Healthy is false when any check errored. Warnings do not count.
func (r HealthReport) Healthy() bool {
	for _, c := range r.Checks {
		if c.Status == HealthError {
			return false
		}
	}
	return true
}
