package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/subscriptions-tracker/internal/common"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/repository"
)

// AuditStore is the opened audit backend plus its health check and closer.
type AuditStore struct {
	Kind  string // postgres | sqlite
	Repo  repository.AuditRepository
	ping  func(ctx context.Context) error
	close func()
}

// Ping checks the backend within timeout.
func (s *AuditStore) Ping(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.ping(ctx)
}

func (s *AuditStore) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenAuditStore connects to Postgres when a DSN is configured and falls back to SQLite otherwise.
func OpenAuditStore(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*AuditStore, error) {
	if cfg.DSN == "" {
		return OpenSQLiteStore(ctx, cfg.SQLitePath, logger)
	}

	drv, pool, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.DSN,
		MaxConns:         cfg.MaxConns,
		MinConns:         cfg.MinConns,
		MaxConnLifetime:  cfg.MaxConnLifetime,
		MaxConnIdleTime:  cfg.MaxConnIdleTime,
		DialTimeout:      cfg.DialTimeout,
		StatementTimeout: cfg.StatementTimeout,
	}, logger)
	if err != nil {
		return nil, common.WrapError(err, "open audit database")
	}
	if err := repository.HealthCheck(ctx, pool, cfg.DialTimeout, logger); err != nil {
		repository.Close(drv, pool, logger)
		return nil, common.WrapError(err, "audit database health")
	}
	repo, err := repository.NewPostgresAuditRepository(ctx, drv, logger)
	if err != nil {
		repository.Close(drv, pool, logger)
		return nil, err
	}
	return &AuditStore{
		Kind:  "postgres",
		Repo:  repo,
		ping:  func(ctx context.Context) error { return repository.HealthCheck(ctx, pool, 0, logger) },
		close: func() { repository.Close(drv, pool, logger) },
	}, nil
}

// OpenSQLiteStore opens a SQLite audit store; ":memory:" keeps it in process.
func OpenSQLiteStore(ctx context.Context, path string, logger *slog.Logger) (*AuditStore, error) {
	repo, err := repository.OpenSQLiteAudit(ctx, path, logger)
	if err != nil {
		return nil, common.WrapError(err, "open sqlite audit store")
	}
	return &AuditStore{
		Kind: "sqlite",
		Repo: repo,
		ping: repo.Ping,
		close: func() {
			if err := repo.Close(); err != nil {
				logger.Error("failed to close sqlite audit store", "error", err)
			}
		},
	}, nil
}
