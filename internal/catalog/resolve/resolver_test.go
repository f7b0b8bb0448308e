package resolve

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"

	"gocatalog_sync/internal/catalog/client"
	"gocatalog_sync/internal/catalog/models"
	"gocatalog_sync/metrics"
	"gocatalog_sync/pkg/logger"
)

// fakeQuerier answers from canonical orders keyed by handle; errs holds a queue of
// errors returned before the canonical answer.
type fakeQuerier struct {
	mu        sync.Mutex
	canonical map[string][]string
	errs      map[string][]error
	calls     map[string]int
}

func (f *fakeQuerier) CollectionByHandle(_ context.Context, handle string, first int) (*models.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[handle]++
	if queue := f.errs[handle]; len(queue) > 0 {
		f.errs[handle] = queue[1:]
		return nil, queue[0]
	}
	ids, ok := f.canonical[handle]
	if !ok {
		return nil, client.ErrNotFound
	}
	col := &models.Collection{ID: "gid-" + handle, Handle: handle, Title: handle}
	for i, id := range ids {
		if i == first {
			break
		}
		col.Products = append(col.Products, models.CollectionEntry{ProductID: id, Rank: i + 1})
	}
	return col, nil
}

type sleepLog struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *sleepLog) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = append(s.sleeps, d)
	return nil
}

func product(id string, handles ...string) models.Product {
	p := models.Product{ID: id, Title: "title " + id, Handle: "h-" + id}
	for _, h := range handles {
		p.Collections = append(p.Collections, models.CollectionRef{ID: "gid-" + h, Title: h, Handle: h})
	}
	return p
}

func testConfig() Config {
	return Config{
		PageSize: 250,
		Interval: 1500 * time.Millisecond,
		Retry:    client.RetryPolicy{MaxAttempts: 3, InitialDelay: 10 * time.Second, Multiplier: 2},
	}
}

func assertContiguous(t *testing.T, c models.Collection) {
	t.Helper()
	for i, entry := range c.Products {
		if entry.Rank != i+1 {
			t.Fatalf("collection %q: entry %d has rank %d", c.Handle, i, entry.Rank)
		}
	}
}

func TestGroupByHandleKeepsFirstSeenOrder(t *testing.T) {
	products := []models.Product{
		product("P1", "wine", "beer"),
		product("P2", "beer"),
		product("P3", "party", "beer", "beer"),
		product("P1", "beer"),
	}
	groups := GroupByHandle(products)

	wantHandles := []string{"wine", "beer", "party"}
	if len(groups) != len(wantHandles) {
		t.Fatalf("expected %d groups, got %d", len(wantHandles), len(groups))
	}
	for i, h := range wantHandles {
		if groups[i].Handle != h {
			t.Fatalf("group %d = %q, want %q", i, groups[i].Handle, h)
		}
	}
	beer := groups[1]
	if len(beer.Products) != 3 || beer.Products[0].ID != "P1" || beer.Products[1].ID != "P2" || beer.Products[2].ID != "P3" {
		t.Fatalf("unexpected beer members %+v", beer.Products)
	}
}

func TestResolveUsesCanonicalOrder(t *testing.T) {
	products := []models.Product{product("P3", "beer"), product("P9", "beer"), product("P7", "beer")}
	api := &fakeQuerier{canonical: map[string][]string{"beer": {"P7", "P3", "P9"}}}
	runMetrics := &metrics.SyncMetrics{}
	var sleeps sleepLog

	collections, err := NewResolver(api, testConfig(), logger.Discard()).WithSleep(sleeps.sleep).
		Resolve(context.Background(), products, runMetrics)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(collections) != 1 {
		t.Fatalf("expected 1 collection, got %d", len(collections))
	}
	beer := collections[0]
	if beer.Degraded {
		t.Fatal("canonical collection marked degraded")
	}
	want := map[string]int{"P7": 1, "P3": 2, "P9": 3}
	for id, rank := range want {
		if got := beer.RankOf(id); got != rank {
			t.Fatalf("rank of %s = %d, want %d", id, got, rank)
		}
	}
	assertContiguous(t, beer)
	if runMetrics.CanonicalCollections.Load() != 1 {
		t.Fatalf("canonical count = %d", runMetrics.CanonicalCollections.Load())
	}
}

func TestResolveFallsBackOnError(t *testing.T) {
	products := []models.Product{
		product("P1", "rare-collection"),
		product("P2", "beer"),
		product("P3", "rare-collection"),
	}
	api := &fakeQuerier{
		canonical: map[string][]string{"beer": {"P2"}, "rare-collection": {"P3", "P1"}},
		errs:      map[string][]error{"rare-collection": {errors.New("connection reset")}},
	}
	runMetrics := &metrics.SyncMetrics{}

	collections, err := NewResolver(api, testConfig(), logger.Discard()).WithSleep((&sleepLog{}).sleep).
		Resolve(context.Background(), products, runMetrics)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(collections) != 2 || collections[0].Handle != "rare-collection" || collections[1].Handle != "beer" {
		t.Fatalf("unexpected collections %+v", collections)
	}
	rare := collections[0]
	if !rare.Degraded {
		t.Fatal("expected degraded collection")
	}
	if rare.RankOf("P1") != 1 || rare.RankOf("P3") != 2 {
		t.Fatalf("fallback ranks not in first-seen order: %+v", rare.Products)
	}
	if rare.ID != "gid-rare-collection" || rare.Title != "rare-collection" {
		t.Fatalf("fallback lost collection identity: %+v", rare)
	}
	assertContiguous(t, rare)
	if api.calls["rare-collection"] != 1 {
		t.Fatalf("non-throttle error must not be retried, calls=%d", api.calls["rare-collection"])
	}
	if runMetrics.DegradedCollections.Load() != 1 || runMetrics.CanonicalCollections.Load() != 1 {
		t.Fatalf("degraded=%d canonical=%d", runMetrics.DegradedCollections.Load(), runMetrics.CanonicalCollections.Load())
	}
}

func TestResolveRetriesThrottleThenFallsBack(t *testing.T) {
	products := []models.Product{product("P1", "beer"), product("P2", "beer")}
	api := &fakeQuerier{
		canonical: map[string][]string{"beer": {"P2", "P1"}},
		errs:      map[string][]error{"beer": {client.ErrThrottled, client.ErrThrottled, client.ErrThrottled}},
	}
	var sleeps sleepLog

	collections, err := NewResolver(api, testConfig(), logger.Discard()).WithSleep(sleeps.sleep).
		Resolve(context.Background(), products, nil)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	beer := collections[0]
	if !beer.Degraded || beer.RankOf("P1") != 1 || beer.RankOf("P2") != 2 {
		t.Fatalf("expected fallback ordering, got %+v", beer)
	}
	if api.calls["beer"] != 3 {
		t.Fatalf("expected 3 attempts, got %d", api.calls["beer"])
	}
	if len(sleeps.sleeps) != 2 || sleeps.sleeps[0] != 10*time.Second || sleeps.sleeps[1] != 20*time.Second {
		t.Fatalf("unexpected backoff %v", sleeps.sleeps)
	}
}

func TestResolveRecoversFromSingleThrottle(t *testing.T) {
	products := []models.Product{product("P1", "beer"), product("P2", "beer")}
	api := &fakeQuerier{
		canonical: map[string][]string{"beer": {"P2", "P1"}},
		errs:      map[string][]error{"beer": {client.ErrThrottled}},
	}

	collections, err := NewResolver(api, testConfig(), logger.Discard()).WithSleep((&sleepLog{}).sleep).
		Resolve(context.Background(), products, nil)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if collections[0].Degraded || collections[0].RankOf("P2") != 1 {
		t.Fatalf("expected canonical order after retry, got %+v", collections[0])
	}
}

func TestSequentialPausesBetweenCollections(t *testing.T) {
	products := []models.Product{product("P1", "a", "b", "c")}
	api := &fakeQuerier{canonical: map[string][]string{"a": {"P1"}, "b": {"P1"}, "c": {"P1"}}}
	var sleeps sleepLog

	collections, err := NewResolver(api, testConfig(), logger.Discard()).WithSleep(sleeps.sleep).
		Resolve(context.Background(), products, nil)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(collections) != 3 {
		t.Fatalf("expected 3 collections, got %d", len(collections))
	}
	if len(sleeps.sleeps) != 2 || sleeps.sleeps[0] != 1500*time.Millisecond {
		t.Fatalf("expected two 1.5s pauses, got %v", sleeps.sleeps)
	}
}

func TestParallelKeepsGroupOrder(t *testing.T) {
	handles := []string{"a", "b", "c", "d", "e", "f", "g"}
	canonical := make(map[string][]string)
	var products []models.Product
	for _, h := range handles {
		canonical[h] = []string{"P-" + h}
		products = append(products, product("P-"+h, h))
	}
	cfg := testConfig()
	cfg.Workers = 3
	api := &fakeQuerier{canonical: canonical}

	collections, err := NewResolver(api, cfg, logger.Discard()).WithSleep((&sleepLog{}).sleep).
		Resolve(context.Background(), products, nil)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(collections) != len(handles) {
		t.Fatalf("expected %d collections, got %d", len(handles), len(collections))
	}
	for i, h := range handles {
		if collections[i].Handle != h || collections[i].Degraded {
			t.Fatalf("collection %d = %+v, want canonical %q", i, collections[i], h)
		}
	}
}

func TestResolveCancelled(t *testing.T) {
	products := []models.Product{product("P1", "a", "b")}
	api := &fakeQuerier{canonical: map[string][]string{"a": {"P1"}, "b": {"P1"}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewResolver(api, testConfig(), logger.Discard()).Resolve(ctx, products, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
