package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/subscriptions-tracker/internal/entity"
)

// AuditRepository is the append-only audit trail.
type AuditRepository interface {
	Append(ctx context.Context, e entity.AuditEntry) error
	Count(ctx context.Context) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]entity.AuditEntry, error)
}

const auditTable = "audit_entries"

var auditColumns = []string{"id", "actor_id", "action", "document_count", "services_detected", "success", "created_at"}

var pgAuditSchema = []string{
	`CREATE TABLE IF NOT EXISTS audit_entries (
	id                UUID PRIMARY KEY,
	actor_id          TEXT NOT NULL,
	action            TEXT NOT NULL,
	document_count    INTEGER NOT NULL,
	services_detected INTEGER NOT NULL,
	success           BOOLEAN NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS audit_entries_created_at_idx ON audit_entries (created_at DESC)`,
}

// sqliteTimeLayout is fixed width so TEXT ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// AuditStore keeps the audit trail behind an ent SQL driver, Postgres or SQLite.
// Queries are built with ent's dialect-aware builders.
type AuditStore struct {
	drv    *entsql.Driver
	logger *slog.Logger
}

// NewPostgresAuditRepository creates the audit table if needed and returns the store.
func NewPostgresAuditRepository(ctx context.Context, drv *entsql.Driver, logger *slog.Logger) (*AuditStore, error) {
	return newAuditStore(ctx, drv, pgAuditSchema, logger)
}

func newAuditStore(ctx context.Context, drv *entsql.Driver, schema []string, logger *slog.Logger) (*AuditStore, error) {
	for _, stmt := range schema {
		if err := drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			logger.Error("failed to create audit schema", "dialect", drv.Dialect(), "error", err)
			return nil, fmt.Errorf("create audit schema: %w", err)
		}
	}
	return &AuditStore{drv: drv, logger: logger}, nil
}

func (s *AuditStore) Append(ctx context.Context, e entity.AuditEntry) error {
	e = withDefaults(e)
	query, args := insertAuditQuery(s.drv.Dialect(), e)
	if err := s.drv.Exec(ctx, query, args, nil); err != nil {
		s.logger.Error("failed to append audit entry", "id", e.ID, "error", err)
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *AuditStore) Count(ctx context.Context) (int64, error) {
	query, args := countAuditQuery(s.drv.Dialect())
	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	defer rows.Close()
	n, err := entsql.ScanInt64(rows)
	if err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return n, nil
}

func (s *AuditStore) ListRecent(ctx context.Context, limit int) ([]entity.AuditEntry, error) {
	query, args := listAuditQuery(s.drv.Dialect(), clampLimit(limit))
	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []entity.AuditEntry
	for rows.Next() {
		var (
			e  entity.AuditEntry
			ts any
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.DocumentCount, &e.ServicesDetected, &e.Success, &ts); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		t, err := scanTime(ts)
		if err != nil {
			return nil, fmt.Errorf("parse audit timestamp: %w", err)
		}
		e.Timestamp = t
		out = append(out, e)
	}
	return out, rows.Err()
}

// Ping checks the underlying database handle.
func (s *AuditStore) Ping(ctx context.Context) error {
	return s.drv.DB().PingContext(ctx)
}

// Close closes the driver and its database handle.
func (s *AuditStore) Close() error {
	return s.drv.Close()
}

func insertAuditQuery(d string, e entity.AuditEntry) (string, []any) {
	var created any = e.Timestamp
	if d == dialect.SQLite {
		created = e.Timestamp.Format(sqliteTimeLayout)
	}
	return entsql.Dialect(d).
		Insert(auditTable).
		Columns(auditColumns...).
		Values(e.ID.String(), e.ActorID, e.Action, e.DocumentCount, e.ServicesDetected, e.Success, created).
		Query()
}

func countAuditQuery(d string) (string, []any) {
	b := entsql.Dialect(d)
	return b.Select(entsql.Count("*")).From(b.Table(auditTable)).Query()
}

func listAuditQuery(d string, limit int) (string, []any) {
	b := entsql.Dialect(d)
	return b.Select(auditColumns...).
		From(b.Table(auditTable)).
		OrderBy(entsql.Desc("created_at")).
		Limit(limit).
		Query()
}

// scanTime accepts TIMESTAMPTZ values and the TEXT layout SQLite stores.
func scanTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return time.Parse(sqliteTimeLayout, t)
	case []byte:
		return time.Parse(sqliteTimeLayout, string(t))
	case nil:
		return time.Time{}, errors.New("null timestamp")
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
}

func withDefaults(e entity.AuditEntry) entity.AuditEntry {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	e.Timestamp = e.Timestamp.UTC()
	return e
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return 50
	}
	return limit
}
