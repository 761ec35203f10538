package helpers

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/doeshing/ridepilot/internal/domain"
)

// PrintJSON writes v as indented JSON.
func PrintJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// RenderResult prints an orchestration result for humans.
func RenderResult(out io.Writer, res domain.OrchestrationResult) error {
	fmt.Fprintf(out, "Feature: %s\n", res.Feature)
	fmt.Fprintf(out, "Source:  %s\n", res.Source)
	if res.TokensUsed > 0 || res.Cost > 0 {
		fmt.Fprintf(out, "Usage:   %d tokens, %s\n", res.TokensUsed, res.Cost)
	}
	if res.IsFallback() {
		fmt.Fprintln(out, "Note: no provider answered; this is a locally computed estimate")
	}
	fmt.Fprintln(out)
	return PrintJSON(out, res.Value)
}

// RenderUsage prints ledger rows followed by a totals line.
func RenderUsage(out io.Writer, records []domain.UsageRecord, totals domain.UsageRecord) error {
	if len(records) == 0 {
		fmt.Fprintln(out, "No usage recorded yet.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tFEATURE\tREQUESTS\tFAILED\tTOKENS\tCOST")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n", r.ProviderID, r.Feature, r.RequestCount, r.FailedAttempts, r.TotalTokens, r.TotalCost)
	}
	fmt.Fprintf(w, "TOTAL\t\t%d\t%d\t%d\t%s\n", totals.RequestCount, totals.FailedAttempts, totals.TotalTokens, totals.TotalCost)
	return w.Flush()
}

// RenderCredentials prints the registry status table.
func RenderCredentials(out io.Writer, rows []domain.CredentialStatus) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tREQUIRED\tSECRET\tVALIDITY\tCHECKED")
	for _, r := range rows {
		secret := r.Masked
		if !r.HasSecret {
			secret = "-"
		}
		checked := "-"
		if !r.LastCheckedAt.IsZero() {
			checked = r.LastCheckedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%t\t%s\t%s\t%s\n", r.ProviderID, r.Required, secret, r.Validity, checked)
	}
	return w.Flush()
}

// RenderInteractions prints stored interactions, oldest first.
func RenderInteractions(out io.Writer, records []domain.Interaction) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No interactions recorded yet.")
		return
	}
	for _, rec := range records {
		fmt.Fprintf(out, "%s | %s | %s\n", rec.Timestamp.Format(time.RFC3339), rec.Source(), rec.Query)
		fmt.Fprintf(out, "    -> %s\n", rec.Response)
	}
}

// RenderDoctorReport prints one line per health check.
func RenderDoctorReport(out io.Writer, report domain.HealthReport) {
	for _, check := range report.Checks {
		fmt.Fprintf(out, "[%s] %s - %s\n",
			strings.ToUpper(string(check.Status)),
			check.Name,
			check.Details)
	}
}
