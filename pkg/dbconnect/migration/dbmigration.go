package migration

import (
	"database/sql"

	"github.com/go-faster/errors"
)

type MigrationInterface interface {
	UpMigration(*sql.DB) error
}

// Apply runs migrations in order and stops at the first failure.
func Apply(db *sql.DB, migrations []MigrationInterface) error {
	for i, m := range migrations {
		if err := m.UpMigration(db); err != nil {
			return errors.Wrapf(err, "migration %d", i)
		}
	}
	return nil
}
