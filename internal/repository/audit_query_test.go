package repository

import (
	"testing"
	"time"

	"entgo.io/ent/dialect"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/subscriptions-tracker/internal/entity"
)

func TestAuditQueries_Postgres(t *testing.T) {
	e := entity.AuditEntry{
		ID:               uuid.New(),
		Timestamp:        time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		ActorID:          "u1",
		Action:           "analyze_documents",
		DocumentCount:    2,
		ServicesDetected: 1,
		Success:          true,
	}

	query, args := insertAuditQuery(dialect.Postgres, e)
	assert.Contains(t, query, `INSERT INTO "audit_entries"`)
	assert.Contains(t, query, "$7")
	require.Len(t, args, 7)
	assert.Equal(t, e.ID.String(), args[0])
	assert.Equal(t, e.Timestamp, args[6])

	query, args = countAuditQuery(dialect.Postgres)
	assert.Contains(t, query, "COUNT(*)")
	assert.Contains(t, query, `FROM "audit_entries"`)
	assert.Empty(t, args)

	query, args = listAuditQuery(dialect.Postgres, 2)
	assert.Contains(t, query, "ORDER BY")
	assert.Contains(t, query, "created_at")
	assert.Contains(t, query, "DESC")
	assert.Contains(t, query, "LIMIT 2")
	assert.Empty(t, args)
}

func TestAuditQueries_SQLiteStoresFixedWidthText(t *testing.T) {
	e := withDefaults(entity.AuditEntry{ActorID: "u1", Action: "fetch_invoices"})

	query, args := insertAuditQuery(dialect.SQLite, e)
	assert.Contains(t, query, "INSERT INTO `audit_entries`")
	assert.NotContains(t, query, "$1")
	assert.Contains(t, query, "?")
	require.Len(t, args, 7)
	ts, ok := args[6].(string)
	require.True(t, ok, "created_at should be bound as text")
	assert.Len(t, ts, len(sqliteTimeLayout)-len("Z07:00")+len("Z"))

	parsed, err := scanTime(ts)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(e.Timestamp))
}

func TestScanTime(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 6, time.FixedZone("x", 3600))
	got, err := scanTime(now)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, got.Location())

	_, err = scanTime(nil)
	assert.Error(t, err)
	_, err = scanTime(42)
	assert.Error(t, err)
}
