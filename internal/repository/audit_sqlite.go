package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "modernc.org/sqlite"
)

var sqliteAuditSchema = []string{
	`CREATE TABLE IF NOT EXISTS audit_entries (
	id                TEXT PRIMARY KEY,
	actor_id          TEXT NOT NULL,
	action            TEXT NOT NULL,
	document_count    INTEGER NOT NULL,
	services_detected INTEGER NOT NULL,
	success           INTEGER NOT NULL,
	created_at        TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS audit_entries_created_at_idx ON audit_entries (created_at)`,
}

// OpenSQLiteAudit opens (and creates) the audit database. An empty path or ":memory:"
// gives a private in-memory database.
func OpenSQLiteAudit(ctx context.Context, path string, logger *slog.Logger) (*AuditStore, error) {
	dsn := path
	if path == "" || path == ":memory:" {
		dsn = ":memory:"
	} else if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create audit dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection keeps an in-memory database alive and serializes writers
	db.SetMaxOpenConns(1)

	drv := entsql.OpenDB(dialect.SQLite, db)
	store, err := newAuditStore(ctx, drv, sqliteAuditSchema, logger)
	if err != nil {
		_ = drv.Close()
		return nil, err
	}
	logger.Info("sqlite audit store ready", "path", dsn)
	return store, nil
}
