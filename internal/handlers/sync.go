// internal/handlers/sync.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ammerola/stocksync/internal/core/domain"
	"github.com/ammerola/stocksync/internal/core/ports"
)

// DefaultMaxBodyBytes bounds a POST /api/sync body
const DefaultMaxBodyBytes = 32 << 20

// Pinger reports whether the backing database answers
type Pinger interface {
	Ping(ctx context.Context) error
}

// SyncHandler serves the remote sync contract: /api/health, /api/data and
// /api/sync
type SyncHandler struct {
	service      ports.SyncService
	audits       ports.AuditService
	db           Pinger
	maxBodyBytes int64
	logger       *slog.Logger
}

// NewSyncHandler creates a new sync handler. audits may be nil.
func NewSyncHandler(service ports.SyncService, audits ports.AuditService, db Pinger, maxBodyBytes int64, logger *slog.Logger) *SyncHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &SyncHandler{
		service:      service,
		audits:       audits,
		db:           db,
		maxBodyBytes: maxBodyBytes,
		logger:       logger.With(slog.String("handler", "sync")),
	}
}

// envelope is the response body of every sync endpoint
type envelope struct {
	Status   string      `json:"status"`
	Database string      `json:"database,omitempty"`
	Message  string      `json:"message,omitempty"`
	Data     interface{} `json:"data,omitempty"`
}

// Health answers 200 whenever the server runs; the database flag says whether
// the store behind it answers
func (h *SyncHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := envelope{Status: "ok", Database: string(domain.BackendConnected)}
	if err := h.db.Ping(ctx); err != nil {
		h.logger.WarnContext(ctx, "database ping failed", slog.String("error", err.Error()))
		resp.Database = string(domain.BackendDisconnected)
		resp.Message = "database unreachable"
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	respondJSON(w, http.StatusOK, resp, h.logger)
}

// GetData returns every remote collection
func (h *SyncHandler) GetData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snap, err := h.service.Snapshot(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load snapshot", slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "Failed to load data", h.logger)
		return
	}

	respondJSON(w, http.StatusOK, envelope{Status: "success", Data: snap}, h.logger)
}

// Sync replaces one collection with the posted data
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ports.PushRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "Request body too large", h.logger)
			return
		}
		respondError(w, http.StatusBadRequest, "Invalid request body", h.logger)
		return
	}

	if err := h.service.Push(ctx, req); err != nil {
		switch {
		case errors.Is(err, domain.ErrStaleVersion):
			respondError(w, http.StatusConflict, domain.ErrStaleVersion.Error(), h.logger)
		case errors.Is(err, domain.ErrUnknownCollection), errors.Is(err, domain.ErrValidation):
			respondError(w, http.StatusBadRequest, err.Error(), h.logger)
		default:
			h.logger.ErrorContext(ctx, "sync failed",
				slog.String("type", req.Type),
				slog.String("error", err.Error()))
			respondError(w, http.StatusInternalServerError, "Failed to store data", h.logger)
		}
		return
	}

	respondJSON(w, http.StatusOK, envelope{Status: "success", Message: req.Type + " synced"}, h.logger)
}

// LatestAudit returns the most recent stock audit
func (h *SyncHandler) LatestAudit(w http.ResponseWriter, r *http.Request) {
	if h.audits == nil {
		respondError(w, http.StatusNotFound, "Audits are not enabled", h.logger)
		return
	}

	audit, err := h.audits.Latest(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(w, http.StatusNotFound, "No audit has run yet", h.logger)
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to read audit", slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "Failed to read audit", h.logger)
		return
	}

	respondJSON(w, http.StatusOK, envelope{Status: "success", Data: audit}, h.logger)
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response",
			slog.String("error", err.Error()))
	}
}

func respondError(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	respondJSON(w, status, envelope{Status: "error", Message: message}, logger)
}
