package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gocatalog_sync/config"
	"gocatalog_sync/internal/catalog/storage"
)

func singlePageShop(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(string(raw), "collectionByHandle") {
			_, _ = io.WriteString(w, `{"data":{"collectionByHandle":{"id":"C1","handle":"beer","title":"Beer","description":"",
				"products":{"edges":[{"node":{"id":"P2","title":"B","handle":"b"}},{"node":{"id":"P1","title":"A","handle":"a"}}]}}}}`)
			return
		}
		_, _ = io.WriteString(w, `{"data":{"products":{"pageInfo":{"hasNextPage":false,"endCursor":"x"},"edges":[
			{"node":{"id":"P1","title":"A","handle":"a","productType":"Lager","collections":{"edges":[{"node":{"id":"C1","title":"Beer","handle":"beer"}}]}}},
			{"node":{"id":"P2","title":"B","handle":"b","productType":"Lager","collections":{"edges":[{"node":{"id":"C1","title":"Beer","handle":"beer"}}]}}}
		]}}}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testAppConfig(endpoint string) *config.AppConfig {
	cfg := config.Default()
	cfg.Shop.Endpoint = endpoint
	cfg.Sync.PageInterval = 0
	cfg.Sync.CollectionInterval = 0
	cfg.Server.Addr = "127.0.0.1:0"
	return cfg
}

func TestPipelineOverMemoryStore(t *testing.T) {
	srv := singlePageShop(t)
	s := NewCatalogServer(nil, testAppConfig(srv.URL), io.Discard)
	store := storage.NewMemoryStore()

	result := s.Pipeline(store).Run(context.Background(), false)
	if !result.Success || result.ProductsSynced != 2 || result.CollectionsSynced != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	rows := store.Products()
	if len(rows) != 2 || rows[0].SortOrder != 2 || rows[1].SortOrder != 1 {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if rows[0].SearchCategory != "beer" {
		t.Fatalf("search category = %q", rows[0].SearchCategory)
	}
	entry, ok := store.Entry("catalog:summary")
	if !ok {
		t.Fatal("summary entry missing")
	}
	var summary map[string]any
	if err := json.Unmarshal(entry.Value, &summary); err != nil || summary["product_count"] != float64(2) {
		t.Fatalf("unexpected summary entry %s (%v)", entry.Value, err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	srv := singlePageShop(t)
	s := NewCatalogServer(nil, testAppConfig(srv.URL), io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
