package storage

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // SQLite driver
)

// NewSQLite creates and initializes a SQLite database connection.
func NewSQLite(path string, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)

	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// SQLite only handles a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set %s: %w", pragma, err)
		}
	}

	if err := createTables(db, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := createIndexes(db, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	logger.Info("initialized history database",
		"path", path,
	)

	return db, nil
}

func createTables(db *sql.DB, logger *slog.Logger) error {
	triggersTable := `
	CREATE TABLE IF NOT EXISTS triggers (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		job_name    TEXT NOT NULL,
		parameters  TEXT NOT NULL DEFAULT '[]',
		queued      INTEGER NOT NULL DEFAULT 0,
		queue_id    INTEGER NOT NULL DEFAULT 0,
		location    TEXT NOT NULL DEFAULT '',
		error_kind  TEXT NOT NULL DEFAULT '',
		message     TEXT NOT NULL DEFAULT '',
		created_at  INTEGER NOT NULL
	);`

	if _, err := db.Exec(triggersTable); err != nil {
		return fmt.Errorf("failed to create triggers table: %w", err)
	}

	logger.Debug("created history tables")
	return nil
}

func createIndexes(db *sql.DB, logger *slog.Logger) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_triggers_created_at ON triggers(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_triggers_job_created_at ON triggers(job_name, created_at)",
	}

	for _, index := range indexes {
		if _, err := db.Exec(index); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	logger.Debug("created history indexes")
	return nil
}
