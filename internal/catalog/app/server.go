package app

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/time/rate"

	"gocatalog_sync/config"
	"gocatalog_sync/internal/catalog/app/web"
	"gocatalog_sync/internal/catalog/app/web/handlers"
	"gocatalog_sync/internal/catalog/classify"
	"gocatalog_sync/internal/catalog/client"
	"gocatalog_sync/internal/catalog/coordinator"
	"gocatalog_sync/internal/catalog/fetch"
	"gocatalog_sync/internal/catalog/rebuild"
	"gocatalog_sync/internal/catalog/resolve"
	"gocatalog_sync/internal/catalog/storage"
	"gocatalog_sync/migrations/catalog"
	"gocatalog_sync/pkg/dbconnect"
	"gocatalog_sync/pkg/dbconnect/migration"
	"gocatalog_sync/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// CatalogServer wires the sync pipeline to its store and serves the trigger endpoints.
// A nil Database selects the in-memory store.
type CatalogServer struct {
	dbconnect.Database
	cfg    *config.AppConfig
	log    logger.Logger
	writer io.Writer
}

func NewCatalogServer(connector dbconnect.Database, cfg *config.AppConfig, writer io.Writer) *CatalogServer {
	return &CatalogServer{
		Database: connector,
		cfg:      cfg,
		log:      logger.NewLogger(writer, "[CatalogServer]"),
		writer:   writer,
	}
}

func (s *CatalogServer) openStore(ctx context.Context) (rebuild.Store, func(), error) {
	if s.Database == nil {
		s.log.Log("using in-memory snapshot store")
		return storage.NewMemoryStore(), func() {}, nil
	}

	db, err := s.Connect()
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect to postgres")
	}
	if err := migration.Apply(db, catalog.All()); err != nil {
		db.Close()
		return nil, nil, errors.Wrap(err, "apply migrations")
	}
	s.log.Log("catalog cache migrations applied")

	pool, err := s.OpenPool(ctx)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return storage.NewPostgresStore(pool, db), func() {
		pool.Close()
		db.Close()
	}, nil
}

// Pipeline assembles the coordinator over the given store.
func (s *CatalogServer) Pipeline(st rebuild.Store) *coordinator.Coordinator {
	shop := s.cfg.Shop
	syncCfg := s.cfg.Sync
	base := logger.NewLogger(s.writer, "")

	opts := []client.Option{client.WithHTTPClient(&http.Client{Timeout: shop.RequestTimeout})}
	if shop.RequestsPerSecond > 0 {
		opts = append(opts, client.WithLimiter(rate.NewLimiter(rate.Limit(shop.RequestsPerSecond), 1)))
	}
	api := client.NewClient(shop.GraphQLEndpoint(), client.NewAccessTokenAuth(shop.AccessToken), opts...)

	retry := client.RetryPolicy{
		MaxAttempts:  syncCfg.MaxAttempts,
		InitialDelay: syncCfg.ThrottleBackoff,
		MaxDelay:     syncCfg.MaxThrottleBackoff,
		Multiplier:   syncCfg.BackoffMultiplier,
	}
	fetcher := fetch.NewFetcher(api, fetch.Config{
		PageSize:     syncCfg.PageSize,
		MaxPages:     syncCfg.MaxPages,
		PageInterval: syncCfg.PageInterval,
		Retry:        retry,
	}, base)
	resolver := resolve.NewResolver(api, resolve.Config{
		PageSize:          syncCfg.CollectionPageSize,
		Interval:          syncCfg.CollectionInterval,
		Retry:             retry,
		Workers:           syncCfg.ResolverWorkers,
		RequestsPerSecond: syncCfg.ResolverRPS,
	}, base)
	rebuilder := rebuild.NewRebuilder(st, classify.NewClassifier(s.cfg.Classification), rebuild.Config{
		ProductBatchSize:    syncCfg.ProductBatchSize,
		CollectionBatchSize: syncCfg.CollectionBatchSize,
		TTL:                 syncCfg.CacheTTL,
	}, base)

	return coordinator.NewCoordinator(fetcher, resolver, rebuilder, st, coordinator.Options{
		SkipWhenFresh: syncCfg.SkipWhenFresh,
		SingleFlight:  syncCfg.SingleFlight,
	}, base)
}

// Run serves until ctx is cancelled, then shuts the HTTP server down gracefully.
func (s *CatalogServer) Run(ctx context.Context) error {
	st, closeStore, err := s.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	pipeline := s.Pipeline(st)
	var db handlers.Handler
	if s.Database != nil {
		db = s.Database
	}
	syncHandler := handlers.NewSyncHandler(pipeline, st, db, logger.NewLogger(s.writer, ""))

	go NewScheduler(pipeline, s.cfg.Sync.ScheduleInterval, logger.NewLogger(s.writer, "")).Start(ctx)

	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           web.SetupRoutes(syncHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Log("serving catalog sync on %s", s.cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.log.Log("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}
