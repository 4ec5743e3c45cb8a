// Package migration applies the embedded postgres schema with goose.
package migration

import (
	"database/sql"
	"errors"
	"sync"

	"github.com/pressly/goose/v3"
)

const dialect = "postgres"

var gooseMu sync.Mutex

// RunMigrations applies every pending migration in version order.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(embeddedMigrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return goose.Up(db, migrationsDir)
}

