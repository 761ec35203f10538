// Package httpapi exposes the orchestrator over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/ports"
)

// Invoker runs features and manages their cached results.
type Invoker interface {
	Invoke(ctx context.Context, feature domain.Feature, payload map[string]any) domain.OrchestrationResult
	InvalidateFeature(feature domain.Feature) int
}

// Usage is the read/reset side of the usage ledger.
type Usage interface {
	Snapshot() []domain.UsageRecord
	Totals() domain.UsageRecord
	Drain() []domain.UsageRecord
}

// Credentials manages provider secrets.
type Credentials interface {
	Status() []domain.CredentialStatus
	SetCredential(providerID, secret string) error
	Validate(ctx context.Context, providerID string) domain.ValidationResult
}

// Deps wires the server to the application.
type Deps struct {
	Invoker     Invoker
	Usage       Usage
	Credentials Credentials
	// Metrics serves /metrics when set.
	Metrics http.Handler
	Logger  ports.Logger
}

// Server owns the router and the listener lifecycle.
type Server struct {
	deps   Deps
	router chi.Router
}

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// New builds the router.
func New(deps Deps) *Server {
	s := &Server{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/features/{feature}", s.handleInvoke)
		r.Delete("/cache/{feature}", s.handleInvalidate)

		r.Get("/usage", s.handleUsage)
		r.Post("/usage/reset", s.handleUsageReset)

		r.Get("/credentials", s.handleCredentialStatus)
		r.Put("/credentials/{provider}", s.handleSetCredential)
		r.Post("/credentials/{provider}/validate", s.handleValidateCredential)
	})

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.Info("http server listening", map[string]interface{}{"addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.deps.Logger.Info("http server stopped", nil)
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.deps.Logger.Debug("http request", map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"elapsed_ms": time.Since(start).Milliseconds(),
			"request_id": middleware.GetReqID(r.Context()),
		})
	})
}
