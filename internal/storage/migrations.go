package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/TomasBirkner/hostly-backend/internal/logging"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations creates the journal schema. Migrations are the embedded
// migrations/*.sql files, applied once each in file name order.
func RunMigrations(db *DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS _migrations (
			name TEXT PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("listing migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		var seen int
		if err := db.QueryRow("SELECT COUNT(*) FROM _migrations WHERE name = ?", name).Scan(&seen); err != nil {
			return fmt.Errorf("checking migration %s: %w", name, err)
		}
		if seen > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}

		if err := db.Transaction(func(tx *sql.Tx) error {
			if _, err := tx.Exec(string(content)); err != nil {
				return fmt.Errorf("executing SQL: %w", err)
			}
			_, err := tx.Exec("INSERT INTO _migrations (name) VALUES (?)", name)
			return err
		}); err != nil {
			return fmt.Errorf("applying migration %s: %w", name, err)
		}
		logging.Logger.Debugf("Migration applied: %s", name)
	}

	return nil
}
