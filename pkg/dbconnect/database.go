package dbconnect

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Database interface {
	Connect() (*sql.DB, error)
	Ping() error
	OpenPool(ctx context.Context) (*pgxpool.Pool, error)
}
