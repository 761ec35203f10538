package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/doeshing/ridepilot/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

type usageResponse struct {
	Records []domain.UsageRecord `json:"records"`
	Totals  domain.UsageRecord   `json:"totals"`
}

type credentialRequest struct {
	Secret string `json:"secret"`
}

// handleInvoke runs one feature.
// POST /v1/features/{feature}
//
// The orchestrator never fails, so every well-formed request gets a 200;
// invalid payloads come back as an empty result carrying invalid_input.
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	feature, ok := s.feature(w, r)
	if !ok {
		return
	}

	payload := map[string]any{}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "payload must be a JSON object")
			return
		}
	}

	writeJSON(w, http.StatusOK, s.deps.Invoker.Invoke(r.Context(), feature, payload))
}

// DELETE /v1/cache/{feature}
func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	feature, ok := s.feature(w, r)
	if !ok {
		return
	}
	n := s.deps.Invoker.InvalidateFeature(feature)
	writeJSON(w, http.StatusOK, map[string]any{"feature": feature, "invalidated": n})
}

// GET /v1/usage
func (s *Server) handleUsage(w http.ResponseWriter, _ *http.Request) {
	records := s.deps.Usage.Snapshot()
	if records == nil {
		records = []domain.UsageRecord{}
	}
	writeJSON(w, http.StatusOK, usageResponse{Records: records, Totals: s.deps.Usage.Totals()})
}

// handleUsageReset returns the counters as they were at the moment of reset.
// POST /v1/usage/reset
func (s *Server) handleUsageReset(w http.ResponseWriter, _ *http.Request) {
	records := s.deps.Usage.Drain()
	if records == nil {
		records = []domain.UsageRecord{}
	}
	writeJSON(w, http.StatusOK, usageResponse{Records: records, Totals: sum(records)})
}

// GET /v1/credentials
func (s *Server) handleCredentialStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Credentials.Status())
}

// PUT /v1/credentials/{provider}
func (s *Server) handleSetCredential(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	var req credentialRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "body must be {\"secret\": \"...\"}")
		return
	}
	if err := s.deps.Credentials.SetCredential(provider, req.Secret); err != nil {
		if errors.Is(err, domain.ErrUnknownProvider) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.deps.Logger.Error("set credential failed", err, map[string]interface{}{"provider": provider})
		writeError(w, http.StatusInternalServerError, "could not store credential")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /v1/credentials/{provider}/validate
func (s *Server) handleValidateCredential(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	result := s.deps.Credentials.Validate(r.Context(), provider)
	if result.Reason == domain.ReasonUnknownService {
		writeError(w, http.StatusNotFound, "unknown provider "+provider)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) feature(w http.ResponseWriter, r *http.Request) (domain.Feature, bool) {
	feature, err := domain.ParseFeature(chi.URLParam(r, "feature"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return "", false
	}
	return feature, true
}

func sum(records []domain.UsageRecord) domain.UsageRecord {
	var total domain.UsageRecord
	for _, row := range records {
		total.RequestCount += row.RequestCount
		total.TotalTokens += row.TotalTokens
		total.TotalCost += row.TotalCost
		total.FailedAttempts += row.FailedAttempts
	}
	return total
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
