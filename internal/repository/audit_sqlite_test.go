package repository

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/subscriptions-tracker/internal/entity"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSQLiteAudit_AppendCountList(t *testing.T) {
	ctx := context.Background()
	repo, err := OpenSQLiteAudit(ctx, ":memory:", quietLogger())
	require.NoError(t, err)
	defer repo.Close()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Append(ctx, entity.AuditEntry{
			ActorID:          "alice",
			Action:           "analyze_documents",
			DocumentCount:    i + 1,
			ServicesDetected: i,
			Success:          i%2 == 0,
			Timestamp:        base.Add(time.Duration(i) * time.Minute),
		}))
	}

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	recent, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 3, recent[0].DocumentCount)
	assert.True(t, recent[0].Success)
	assert.NotEqual(t, uuid.Nil, recent[0].ID)
	assert.True(t, recent[0].Timestamp.Equal(base.Add(2*time.Minute)))
	require.NoError(t, repo.Ping(ctx))
}

func TestSQLiteAudit_DuplicateIDRejected(t *testing.T) {
	ctx := context.Background()
	repo, err := OpenSQLiteAudit(ctx, filepath.Join(t.TempDir(), "nested", "audit.db"), quietLogger())
	require.NoError(t, err)
	defer repo.Close()

	e := entity.AuditEntry{ID: uuid.New(), ActorID: "bob", Action: "fetch_invoices"}
	require.NoError(t, repo.Append(ctx, e))
	assert.Error(t, repo.Append(ctx, e))
}
