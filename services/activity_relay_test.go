package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"smart-cart-service/apperrors"
	"smart-cart-service/database"
	"smart-cart-service/models"
	"smart-cart-service/services"
)

func newTestRelay(ledger *fakeLedger, store *fakeStore) *services.ActivityRelay {
	return services.NewActivityRelay(ledger, store, "cart-test", time.Hour, zap.NewNop())
}

func TestLog_OnlineGoesStraightRemote(t *testing.T) {
	ledger := newFakeLedger(true)
	store := newFakeStore()
	relay := newTestRelay(ledger, store)

	deferred := relay.Log(context.Background(), models.ActivityScan, map[string]any{"item_id": "milk"})

	assert.False(t, deferred)
	assert.Equal(t, 1, ledger.count("cartLogs"))
	assert.Equal(t, 0, store.count(database.NamespaceActivityQueue))
}

func TestLog_OfflineDefersToQueue(t *testing.T) {
	ledger := newFakeLedger(false)
	store := newFakeStore()
	relay := newTestRelay(ledger, store)

	deferred := relay.Log(context.Background(), models.ActivityScan, map[string]any{"item_id": "milk"})

	assert.True(t, deferred)
	assert.Equal(t, 0, ledger.count("cartLogs"))
	assert.Equal(t, 1, store.count(database.NamespaceActivityQueue))
}

func TestReplayQueued_SyncsEverythingInOrder(t *testing.T) {
	ledger := newFakeLedger(false)
	store := newFakeStore()
	relay := newTestRelay(ledger, store)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		relay.Log(ctx, models.ActivityScan, map[string]any{"n": i})
	}
	require.Equal(t, 3, store.count(database.NamespaceActivityQueue))

	var order []int
	ledger.createHook = func(_ string, data map[string]any) error {
		details := data["details"].(map[string]any)
		order = append(order, details["n"].(int))
		return nil
	}

	ledger.setOnline(true)
	synced, failed := relay.ReplayQueued(ctx)

	assert.Equal(t, 3, synced)
	assert.Equal(t, 0, failed)
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, 0, store.count(database.NamespaceActivityQueue))
	assert.Equal(t, 3, ledger.count("cartLogs"))
}

// A failure mid-replay keeps only the failed entry queued; the next replay
// picks it up.
func TestReplayQueued_PartialProgress(t *testing.T) {
	ledger := newFakeLedger(false)
	store := newFakeStore()
	relay := newTestRelay(ledger, store)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		relay.Log(ctx, models.ActivityScan, map[string]any{"n": i})
	}

	ledger.createHook = func(_ string, data map[string]any) error {
		details := data["details"].(map[string]any)
		if details["n"] == 2 {
			return apperrors.ErrRemoteUnavailable
		}
		return nil
	}

	ledger.setOnline(true)
	synced, failed := relay.ReplayQueued(ctx)
	assert.Equal(t, 2, synced)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, store.count(database.NamespaceActivityQueue))

	records, err := store.ListRecent(database.NamespaceActivityQueue, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	details := records[0].Data["details"].(map[string]any)
	assert.Equal(t, 2, details["n"])

	ledger.createHook = nil
	synced, failed = relay.ReplayQueued(ctx)
	assert.Equal(t, 1, synced)
	assert.Equal(t, 0, failed)
	assert.Equal(t, 0, store.count(database.NamespaceActivityQueue))
}

func TestRecentLogs_MergesQueuedEntries(t *testing.T) {
	ledger := newFakeLedger(true)
	store := newFakeStore()
	relay := newTestRelay(ledger, store)
	ctx := context.Background()

	relay.Log(ctx, models.ActivityScan, map[string]any{"item_id": "milk"})
	ledger.setOnline(false)
	relay.Log(ctx, models.ActivityRemove, map[string]any{"item_id": "milk"})
	ledger.setOnline(true)

	logs := relay.RecentLogs(ctx, 10, "")
	assert.Len(t, logs, 2)

	removes := relay.RecentLogs(ctx, 10, models.ActivityRemove)
	require.Len(t, removes, 1)
	assert.Equal(t, models.ActivityRemove, removes[0]["activity_type"])
}

// The watcher replays automatically on the Offline -> Online transition.
func TestWatcher_ReplaysOnTransition(t *testing.T) {
	ledger := newFakeLedger(false)
	store := newFakeStore()
	relay := services.NewActivityRelay(ledger, store, "cart-test", 10*time.Millisecond, zap.NewNop())
	ctx := context.Background()

	relay.Log(ctx, models.ActivityScan, map[string]any{"n": 1})
	require.Equal(t, 1, store.count(database.NamespaceActivityQueue))

	reconciled := make(chan struct{}, 1)
	relay.OnOnline(func(context.Context) {
		select {
		case reconciled <- struct{}{}:
		default:
		}
	})

	relay.Start()
	defer relay.Stop()

	ledger.setOnline(true)
	select {
	case <-reconciled:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never fired on the offline->online transition")
	}
	assert.Equal(t, 0, store.count(database.NamespaceActivityQueue))
	assert.Equal(t, 1, ledger.count("cartLogs"))
}

func TestRelay_StopIdempotent(t *testing.T) {
	relay := newTestRelay(newFakeLedger(false), newFakeStore())
	relay.Stop() // never started
	relay.Start()
	relay.Start() // second start is a no-op
	relay.Stop()
	relay.Stop()
}
