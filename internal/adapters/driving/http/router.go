// Package http exposes the sync trigger over HTTP.
//
// Invocations are synchronous: POST /sync runs one full pass and answers
// with the run summary. Overlapping triggers from the same process get 409;
// callers that schedule across processes must not overlap invocations.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driving"
	"github.com/seconds-0/slack-support-bot/internal/logger"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Sync driving.SyncService

	// RunTimeout bounds one triggered pass. Zero means no limit beyond the
	// request context.
	RunTimeout time.Duration
}

// errorResponse is the body of a trigger that produced no summary.
type errorResponse struct {
	Error string `json:"error"`
}

// NewRouter creates the HTTP router.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	h := &handler{deps: deps}
	r.Post("/sync", h.sync)
	r.Get("/sync", h.sync)
	r.Get("/status", h.status)
	r.Get("/healthz", h.healthz)

	return r
}

type handler struct {
	deps *Deps
}

func (h *handler) sync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.deps.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.deps.RunTimeout)
		defer cancel()
	}

	summary, err := h.deps.Sync.Run(ctx)
	switch {
	case errors.Is(err, domain.ErrSyncInProgress):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case summary == nil:
		logger.Error("sync trigger failed", "request", middleware.GetReqID(r.Context()), "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errString(err)})
	case summary.Failed():
		writeJSON(w, http.StatusInternalServerError, summary)
	default:
		writeJSON(w, http.StatusOK, summary)
	}
}

func (h *handler) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Sync.Status())
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode response", "error", err)
	}
}

func errString(err error) string {
	if err == nil {
		return "sync returned no summary"
	}
	return err.Error()
}
