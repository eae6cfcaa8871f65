// Package scanapi exposes the triage pipeline over HTTP: a protected
// trigger endpoint plus read-only snapshot and stats endpoints for the
// downstream display.
package scanapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/scout/internal/authmw"
	"github.com/linnemanlabs/scout/internal/triage"
)

// ScanService defines the business operations scanapi needs.
type ScanService interface {
	Scan(ctx context.Context) (*triage.RunSummary, error)
	RetryFailed(ctx context.Context) (*triage.RetrySummary, error)
	Snapshot(ctx context.Context) (*triage.Snapshot, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    ScanService

	// scanSecret protects the trigger endpoints. Empty disables the
	// check (dev mode).
	scanSecret string
}

// New creates a new API handler.
func New(logger log.Logger, svc ScanService, scanSecret string) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("scan service is required"))
	}
	return &API{
		logger:     logger,
		svc:        svc,
		scanSecret: scanSecret,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if a.scanSecret != "" {
				r.Use(authmw.BearerToken(a.scanSecret))
			}
			r.Post("/scan", a.handleScan)
			r.Post("/scan/retry-failed", a.handleRetryFailed)
		})

		r.Get("/startups", a.handleGetStartups)
		r.Get("/stats", a.handleGetStats)
	})
}

func (a *API) handleScan(w http.ResponseWriter, r *http.Request) {
	summary, err := a.svc.Scan(r.Context())
	if err != nil {
		a.writeRunError(w, r, err, "scan failed")
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("scout.run.id", summary.RunID),
		attribute.Int("scout.run.triaged", summary.TotalTriaged),
	)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"summary": summary,
	})
}

func (a *API) handleRetryFailed(w http.ResponseWriter, r *http.Request) {
	summary, err := a.svc.RetryFailed(r.Context())
	if err != nil {
		a.writeRunError(w, r, err, "retry-failed run failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"summary": summary,
	})
}

func (a *API) handleGetStartups(w http.ResponseWriter, r *http.Request) {
	snap, err := a.svc.Snapshot(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to load snapshot")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) handleGetStats(w http.ResponseWriter, r *http.Request) {
	snap, err := a.svc.Snapshot(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to load snapshot")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"lastUpdated":    snap.LastUpdated,
		"totalCompanies": snap.TotalCompanies,
		"stats":          snap.Stats,
	})
}

// writeRunError maps pipeline failures to responses. The trigger caller
// gets a structured failure payload, never a raw error dump.
func (a *API) writeRunError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if errors.Is(err, triage.ErrScanInProgress) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"success": false,
			"error":   "scan already in progress",
		})
		return
	}

	a.logger.Error(r.Context(), err, msg)
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"success": false,
		"error":   "pipeline run failed",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// nothing to do with errors here
	_ = json.NewEncoder(w).Encode(v)
}
