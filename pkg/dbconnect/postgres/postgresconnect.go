package postgres

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"gocatalog_sync/config"
	"gocatalog_sync/pkg/logger"
)

const maxRetries = 10
const dbMaxOpenConns = 20
const retryDelay = 5 * time.Second

// PostgresDatabase hands out one shared *sql.DB, retrying the first connect while the
// database comes up.
type PostgresDatabase struct {
	config.PostgresConfig
	db  *sql.DB
	mu  sync.Mutex
	log logger.Logger
}

func NewPgConnector(dbConfig config.PostgresConfig, log logger.Logger) *PostgresDatabase {
	return &PostgresDatabase{PostgresConfig: dbConfig, log: log.WithPrefix("[Postgres]")}
}

func (pg *PostgresDatabase) Connect() (*sql.DB, error) {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	if pg.db != nil {
		return pg.db, nil
	}

	var err error
	conStr := pg.GetConnectionString()

	for i := 0; i < maxRetries; i++ {
		pg.db, err = sql.Open("postgres", conStr)
		if err != nil {
			pg.log.Log("failed to open Postgres (attempt %d/%d): %v", i+1, maxRetries, err)
			time.Sleep(retryDelay)
			continue
		}

		pg.db.SetMaxOpenConns(dbMaxOpenConns)

		if err = pg.db.Ping(); err != nil {
			pg.log.Log("failed to ping Postgres %s:%s (attempt %d/%d): %v", pg.Host, pg.Port, i+1, maxRetries, err)
			pg.db.Close()
			pg.db = nil
			time.Sleep(retryDelay)
			continue
		}

		pg.log.Log("connected to Postgres %s:%s/%s", pg.Host, pg.Port, pg.DBName)
		return pg.db, nil
	}
	return nil, errors.Wrapf(err, "connect after %d attempts", maxRetries)
}

func (pg *PostgresDatabase) Ping() error {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	if pg.db == nil {
		return errors.New("database connection is not established")
	}

	// The handle is shared with the repositories; database/sql redials on its own.
	if err := pg.db.Ping(); err != nil {
		return errors.Wrap(err, "ping failed")
	}
	return nil
}

// OpenPool opens the pgx pool the cache writer uses.
func (pg *PostgresDatabase) OpenPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(pg.URL())
	if err != nil {
		return nil, errors.Wrap(err, "parse pool config")
	}
	if pg.MaxConns > 0 {
		cfg.MaxConns = pg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "open pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping pool")
	}
	return pool, nil
}
