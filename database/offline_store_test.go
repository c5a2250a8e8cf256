package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-cart-service/apperrors"
)

func newTempStore(t *testing.T) (*OfflineStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "offline.db")
	store, err := OpenOfflineStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestOfflineStore_RoundTrip(t *testing.T) {
	store, _ := newTempStore(t)

	doc := map[string]any{
		"sessionId": "offline-cart-001-123",
		"status":    "active",
		"totalCost": 3.98,
		"itemCount": float64(2),
	}
	require.NoError(t, store.Write(NamespaceSessions, "offline-cart-001-123", doc))

	got, err := store.Read(NamespaceSessions, "offline-cart-001-123")
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestOfflineStore_ReadMissing(t *testing.T) {
	store, _ := newTempStore(t)

	_, err := store.Read(NamespaceSessions, "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOfflineStore_OverwriteLastWriteWins(t *testing.T) {
	store, _ := newTempStore(t)

	require.NoError(t, store.Write(NamespaceSessions, "s1", map[string]any{"status": "active"}))
	require.NoError(t, store.Write(NamespaceSessions, "s1", map[string]any{"status": "completed"}))

	got, err := store.Read(NamespaceSessions, "s1")
	require.NoError(t, err)
	assert.Equal(t, "completed", got["status"])

	records, err := store.ListRecent(NamespaceSessions, 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestOfflineStore_ListRecentOrderAndLimit(t *testing.T) {
	store, _ := newTempStore(t)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Write(NamespaceActivityQueue, id, map[string]any{"id": id}))
		time.Sleep(2 * time.Millisecond)
	}

	records, err := store.ListRecent(NamespaceActivityQueue, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "c", records[0].ID)
	assert.Equal(t, "b", records[1].ID)
	assert.Equal(t, "a", records[2].ID)
	assert.True(t, records[0].StoredAt.After(records[2].StoredAt))

	limited, err := store.ListRecent(NamespaceActivityQueue, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "c", limited[0].ID)
}

func TestOfflineStore_NamespacesAreIsolated(t *testing.T) {
	store, _ := newTempStore(t)

	require.NoError(t, store.Write(NamespaceSessions, "x", map[string]any{"kind": "session"}))
	require.NoError(t, store.Write(NamespaceActivityQueue, "x", map[string]any{"kind": "log"}))

	session, err := store.Read(NamespaceSessions, "x")
	require.NoError(t, err)
	assert.Equal(t, "session", session["kind"])

	logs, err := store.ListRecent(NamespaceActivityQueue, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "log", logs[0].Data["kind"])
}

func TestOfflineStore_DeleteIsIdempotent(t *testing.T) {
	store, _ := newTempStore(t)

	require.NoError(t, store.Write(NamespaceActivityQueue, "q1", map[string]any{"n": float64(1)}))
	require.NoError(t, store.Delete(NamespaceActivityQueue, "q1"))

	_, err := store.Read(NamespaceActivityQueue, "q1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// deleting again is fine
	assert.NoError(t, store.Delete(NamespaceActivityQueue, "q1"))
}

// Records must survive close and reopen; that is the point of the store.
func TestOfflineStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offline.db")

	store, err := OpenOfflineStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Write(NamespaceSessions, "s1", map[string]any{"status": "active"}))
	require.NoError(t, store.Close())

	reopened, err := OpenOfflineStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Read(NamespaceSessions, "s1")
	require.NoError(t, err)
	assert.Equal(t, "active", got["status"])
}
