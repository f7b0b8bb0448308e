package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"gocatalog_sync/internal/catalog/coordinator"
	"gocatalog_sync/internal/catalog/models"
	"gocatalog_sync/internal/catalog/storage"
	"gocatalog_sync/pkg/logger"
)

type SyncRunner interface {
	TryRun(ctx context.Context, forceRefresh bool) (coordinator.Result, error)
	Running() bool
}

type SnapshotReader interface {
	Current(ctx context.Context) (models.Summary, error)
}

type SyncRequest struct {
	ForceRefresh bool `json:"forceRefresh"`
}

type SyncResponse struct {
	Success             bool      `json:"success"`
	Skipped             bool      `json:"skipped,omitempty"`
	ProductsSynced      int       `json:"products_synced"`
	CollectionsSynced   int       `json:"collections_synced"`
	DegradedCollections int       `json:"degraded_collections"`
	CachedUntil         time.Time `json:"cached_until"`
	LastSync            time.Time `json:"last_sync"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type StatusResponse struct {
	Version         string    `json:"version"`
	ProductCount    int       `json:"product_count"`
	CollectionCount int       `json:"collection_count"`
	LastSync        time.Time `json:"last_sync"`
	CachedUntil     time.Time `json:"cached_until"`
	Fresh           bool      `json:"fresh"`
	Running         bool      `json:"running"`
}

// SyncHandler is the inbound trigger of catalog sync runs.
type SyncHandler struct {
	runner    SyncRunner
	snapshots SnapshotReader
	db        Handler
	log       logger.Logger
}

// NewSyncHandler builds the handler; db may be nil when there is no database to check.
func NewSyncHandler(runner SyncRunner, snapshots SnapshotReader, db Handler, log logger.Logger) *SyncHandler {
	return &SyncHandler{runner: runner, snapshots: snapshots, db: db, log: log.WithPrefix("[SyncHandler]")}
}

func (h *SyncHandler) Ping() error {
	if h.db == nil {
		return nil
	}
	return h.db.Ping()
}

func (h *SyncHandler) TriggerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
		return
	}

	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "failed to decode request body"})
		return
	}

	// A run outlives a client that gives up waiting.
	startTime := time.Now()
	result, err := h.runner.TryRun(context.WithoutCancel(r.Context()), req.ForceRefresh)
	if errors.Is(err, coordinator.ErrRunInProgress) {
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	}
	h.log.Log("sync request (forceRefresh=%t) finished in %v, success=%t", req.ForceRefresh, time.Since(startTime), result.Success)

	if !result.Success {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: result.Error})
		return
	}
	writeJSON(w, http.StatusOK, SyncResponse{
		Success:             true,
		Skipped:             result.Skipped,
		ProductsSynced:      result.ProductsSynced,
		CollectionsSynced:   result.CollectionsSynced,
		DegradedCollections: result.DegradedCollections,
		CachedUntil:         result.CachedUntil.UTC(),
		LastSync:            result.LastSync.UTC(),
	})
}

func (h *SyncHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
		return
	}

	summary, err := h.snapshots.Current(r.Context())
	if errors.Is(err, storage.ErrNoSnapshot) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		h.log.Log("failed to read current snapshot: %s", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to read current snapshot"})
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Version:         summary.Version.String(),
		ProductCount:    summary.ProductCount,
		CollectionCount: summary.CollectionCount,
		LastSync:        summary.SyncedAt.UTC(),
		CachedUntil:     summary.ExpiresAt.UTC(),
		Fresh:           summary.Fresh(time.Now()),
		Running:         h.runner.Running(),
	})
}

func (h *SyncHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "failed to ping database"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
