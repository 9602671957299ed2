package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/subscriptions-tracker/internal/common"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/entity"
)

func TestOpenAuditStore_FallsBackToSQLite(t *testing.T) {
	ctx := context.Background()
	store, err := OpenAuditStore(ctx, common.DatabaseConfig{SQLitePath: ":memory:"}, quietLogger())
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, "sqlite", store.Kind)
	require.NoError(t, store.Ping(ctx, time.Second))
	require.NoError(t, store.Repo.Append(ctx, entity.AuditEntry{ActorID: "alice", Action: "analyze_documents", Success: true}))

	n, err := store.Repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestOpenAuditStore_BadDSN(t *testing.T) {
	_, err := OpenAuditStore(context.Background(), common.DatabaseConfig{DSN: "postgres://%zz"}, quietLogger())
	assert.Error(t, err)
}
