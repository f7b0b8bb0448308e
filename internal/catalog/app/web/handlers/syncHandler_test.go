package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"gocatalog_sync/internal/catalog/coordinator"
	"gocatalog_sync/internal/catalog/models"
	"gocatalog_sync/internal/catalog/storage"
	"gocatalog_sync/pkg/logger"
)

type fakeRunner struct {
	result  coordinator.Result
	err     error
	forced  []bool
	ctxErrs []error
	running bool
}

func (f *fakeRunner) TryRun(ctx context.Context, forceRefresh bool) (coordinator.Result, error) {
	f.forced = append(f.forced, forceRefresh)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return f.result, f.err
}

type fakeDB struct{ err error }

func (f fakeDB) Ping() error { return f.err }

func (f *fakeRunner) Running() bool { return f.running }

type fakeSnapshots struct {
	summary models.Summary
	err     error
}

func (f fakeSnapshots) Current(context.Context) (models.Summary, error) {
	return f.summary, f.err
}

var lastSync = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestTriggerSuccess(t *testing.T) {
	runner := &fakeRunner{result: coordinator.Result{
		Success: true, ProductsSynced: 80, CollectionsSynced: 4, DegradedCollections: 1,
		LastSync: lastSync, CachedUntil: lastSync.Add(30 * time.Minute),
	}}
	h := NewSyncHandler(runner, fakeSnapshots{}, nil, logger.Discard())

	rec := httptest.NewRecorder()
	h.TriggerHandler(rec, httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(`{"forceRefresh":true}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["success"] != true || body["products_synced"] != float64(80) || body["collections_synced"] != float64(4) {
		t.Fatalf("unexpected body %v", body)
	}
	if body["last_sync"] != "2024-05-01T12:00:00Z" || body["cached_until"] != "2024-05-01T12:30:00Z" {
		t.Fatalf("timestamps not ISO formatted: %v", body)
	}
	if len(runner.forced) != 1 || !runner.forced[0] {
		t.Fatalf("forceRefresh not passed through: %v", runner.forced)
	}
}

func TestTriggerWithoutBody(t *testing.T) {
	runner := &fakeRunner{result: coordinator.Result{Success: true}}
	h := NewSyncHandler(runner, fakeSnapshots{}, nil, logger.Discard())

	rec := httptest.NewRecorder()
	h.TriggerHandler(rec, httptest.NewRequest(http.MethodPost, "/api/sync", nil))

	if rec.Code != http.StatusOK || len(runner.forced) != 1 || runner.forced[0] {
		t.Fatalf("status = %d, forced = %v", rec.Code, runner.forced)
	}
}

func TestTriggerFailure(t *testing.T) {
	runner := &fakeRunner{result: coordinator.Result{Error: "fetch: fetch page 2: boom"}}
	h := NewSyncHandler(runner, fakeSnapshots{}, nil, logger.Discard())

	rec := httptest.NewRecorder()
	h.TriggerHandler(rec, httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(`{}`)))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Success || body.Error != "fetch: fetch page 2: boom" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestTriggerRejectsBadRequests(t *testing.T) {
	h := NewSyncHandler(&fakeRunner{}, fakeSnapshots{}, nil, logger.Discard())

	rec := httptest.NewRecorder()
	h.TriggerHandler(rec, httptest.NewRequest(http.MethodGet, "/api/sync", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.TriggerHandler(rec, httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(`{"forceRefresh":`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d", rec.Code)
	}
}

func TestTriggerConflictWhileRunning(t *testing.T) {
	runner := &fakeRunner{err: coordinator.ErrRunInProgress}
	h := NewSyncHandler(runner, fakeSnapshots{}, nil, logger.Discard())

	rec := httptest.NewRecorder()
	h.TriggerHandler(rec, httptest.NewRequest(http.MethodPost, "/api/sync", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	version := uuid.New()
	snapshots := fakeSnapshots{summary: models.Summary{
		Version: version, ProductCount: 80, CollectionCount: 4,
		SyncedAt: lastSync, ExpiresAt: time.Now().Add(time.Minute),
	}}
	h := NewSyncHandler(&fakeRunner{running: true}, snapshots, nil, logger.Discard())

	rec := httptest.NewRecorder()
	h.StatusHandler(rec, httptest.NewRequest(http.MethodGet, "/api/sync/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Version != version.String() || body.ProductCount != 80 || !body.Fresh || !body.Running {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestStatusWithoutSnapshot(t *testing.T) {
	h := NewSyncHandler(&fakeRunner{}, fakeSnapshots{err: storage.ErrNoSnapshot}, nil, logger.Discard())
	rec := httptest.NewRecorder()
	h.StatusHandler(rec, httptest.NewRequest(http.MethodGet, "/api/sync/status", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}

	h = NewSyncHandler(&fakeRunner{}, fakeSnapshots{err: errors.New("connection refused")}, nil, logger.Discard())
	rec = httptest.NewRecorder()
	h.StatusHandler(rec, httptest.NewRequest(http.MethodGet, "/api/sync/status", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h := NewSyncHandler(&fakeRunner{}, fakeSnapshots{}, fakeDB{err: errors.New("down")}, logger.Discard())
	rec := httptest.NewRecorder()
	h.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}

	for _, db := range []Handler{fakeDB{}, nil} {
		h = NewSyncHandler(&fakeRunner{}, fakeSnapshots{}, db, logger.Discard())
		rec = httptest.NewRecorder()
		h.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d with db %v", rec.Code, db)
		}
	}
}

func TestTriggerOutlivesClient(t *testing.T) {
	runner := &fakeRunner{result: coordinator.Result{Success: true}}
	h := NewSyncHandler(runner, fakeSnapshots{}, nil, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/sync", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.TriggerHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(runner.ctxErrs) != 1 || runner.ctxErrs[0] != nil {
		t.Fatalf("run saw a cancelled context: %v", runner.ctxErrs)
	}
}
