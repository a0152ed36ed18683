package correlation

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/alert-bridge/internal/domain"
)

func TestMemoryStoreAbsentKey(t *testing.T) {
	store := NewMemoryStore()
	record, err := store.Get(context.Background(), "api:prod:42")
	require.NoError(t, err)
	require.Nil(t, record)
}

func TestMemoryStorePutGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	firstSeen := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Put(ctx, "api:prod:42", domain.CorrelationRecord{
		TaskID:    "99",
		Count:     1,
		FirstSeen: firstSeen,
	}))

	record, err := store.Get(ctx, "api:prod:42")
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Equal(t, "99", record.TaskID)
	require.Equal(t, 1, record.Count)
	require.Equal(t, firstSeen, record.FirstSeen)

	// Mutating the returned copy does not leak into the store.
	record.Count = 100
	again, err := store.Get(ctx, "api:prod:42")
	require.NoError(t, err)
	require.Equal(t, 1, again.Count)
}

func TestMemoryStoreLastWriteWins(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", domain.CorrelationRecord{Count: 1}))
	require.NoError(t, store.Put(ctx, "k", domain.CorrelationRecord{Count: 7, IssueIID: 3}))

	record, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, 7, record.Count)
	require.Equal(t, 3, record.IssueIID)
	require.Equal(t, 1, store.Len())
}

func TestRecordEncodingOmitsAbsentTicketIDs(t *testing.T) {
	raw, err := json.Marshal(domain.CorrelationRecord{Count: 1})
	require.NoError(t, err)
	require.NotContains(t, string(raw), "task_id")
	require.NotContains(t, string(raw), "issue_iid")
}

func TestRetentionTTL(t *testing.T) {
	require.Equal(t, 90*24*time.Hour, RetentionTTL)
}
