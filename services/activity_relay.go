package services

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"smart-cart-service/database"
	"smart-cart-service/models"
)

const activityCollection = "cartLogs"

// ActivityRelay records cart activity best effort: entries go straight to
// the remote ledger when it is reachable, otherwise each one is parked as
// its own durable record in the replay queue. A background watcher probes
// connectivity and replays the queue on every Offline -> Online transition.
//
// Logging never fails the caller's primary operation; the worst case for an
// entry is staying queued until the next replay.
type ActivityRelay struct {
	ledger        Ledger
	store         OfflineStore
	cartID        string
	probeInterval time.Duration
	log           *zap.Logger

	// onOnline is an extra reconciliation hook (session sync) fired after
	// a successful replay. Set before Start.
	onOnline func(context.Context)

	running atomic.Bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

func NewActivityRelay(ledger Ledger, store OfflineStore, cartID string, probeInterval time.Duration, log *zap.Logger) *ActivityRelay {
	if probeInterval <= 0 {
		probeInterval = 30 * time.Second
	}
	return &ActivityRelay{
		ledger:        ledger,
		store:         store,
		cartID:        cartID,
		probeInterval: probeInterval,
		log:           log,
	}
}

// OnOnline registers a hook invoked after connectivity returns and the
// queue has been replayed. Must be called before Start.
func (r *ActivityRelay) OnOnline(fn func(context.Context)) {
	r.onOnline = fn
}

// Log timestamps and records one activity entry. Returns true when the
// entry was deferred to the replay queue instead of reaching the remote
// ledger. Never returns an error: a lost log line must not fail a scan or
// a checkout.
func (r *ActivityRelay) Log(ctx context.Context, activityType string, details map[string]any) bool {
	entry := models.ActivityLogEntry{
		Timestamp:    time.Now(),
		CartID:       r.cartID,
		ActivityType: activityType,
		Details:      details,
	}
	doc := entry.Document()

	if _, err := r.ledger.CreateDocument(ctx, activityCollection, doc); err == nil {
		return false
	}

	queueID := uuid.NewString()
	if err := r.store.Write(database.NamespaceActivityQueue, queueID, doc); err != nil {
		// Both stores refused the entry. Activity logging is best effort,
		// so the entry is dropped rather than failing the caller.
		r.log.Error("activity entry lost",
			zap.String("activity_type", activityType), zap.Error(err))
		return true
	}
	return true
}

// ReplayQueued pushes queued entries to the remote ledger in arrival order.
// An entry is deleted only once its remote append succeeded; failures are
// skipped and retried on the next replay, so progress is resumable after a
// crash at any point.
func (r *ActivityRelay) ReplayQueued(ctx context.Context) (synced, failed int) {
	records, err := r.store.ListRecent(database.NamespaceActivityQueue, 0)
	if err != nil {
		r.log.Warn("failed to list activity queue", zap.Error(err))
		return 0, 0
	}

	// ListRecent is newest-first; replay oldest-first
	sort.Slice(records, func(i, j int) bool {
		return records[i].StoredAt.Before(records[j].StoredAt)
	})

	for _, rec := range records {
		if _, err := r.ledger.CreateDocument(ctx, activityCollection, rec.Data); err != nil {
			failed++
			continue
		}
		if err := r.store.Delete(database.NamespaceActivityQueue, rec.ID); err != nil {
			// Synced remotely but still queued; the next replay will
			// append a duplicate, which the audit trail tolerates.
			r.log.Warn("failed to dequeue replayed entry",
				zap.String("id", rec.ID), zap.Error(err))
		}
		synced++
	}

	if synced > 0 || failed > 0 {
		r.log.Info("activity queue replayed",
			zap.Int("synced", synced), zap.Int("failed", failed))
	}
	return synced, failed
}

// RecentLogs merges remote and still-queued activity entries, newest first,
// optionally filtered by activity type.
func (r *ActivityRelay) RecentLogs(ctx context.Context, limit int, activityType string) []map[string]any {
	if limit <= 0 {
		limit = 50
	}

	var logs []map[string]any

	remote, err := r.ledger.QueryByField(ctx, activityCollection, filterField(activityType), activityType, "timestamp", int64(limit))
	if err == nil {
		logs = append(logs, remote...)
	}

	queued, err := r.store.ListRecent(database.NamespaceActivityQueue, 0)
	if err == nil {
		for _, rec := range queued {
			if activityType != "" && rec.Data["activity_type"] != activityType {
				continue
			}
			logs = append(logs, rec.Data)
		}
	}

	// RFC3339 timestamps sort lexically
	sort.Slice(logs, func(i, j int) bool {
		ti, _ := logs[i]["timestamp"].(string)
		tj, _ := logs[j]["timestamp"].(string)
		return ti > tj
	})
	if len(logs) > limit {
		logs = logs[:limit]
	}
	return logs
}

func filterField(activityType string) string {
	if activityType == "" {
		return ""
	}
	return "activity_type"
}

// Start launches the connectivity watcher.
func (r *ActivityRelay) Start() {
	if !r.running.CompareAndSwap(false, true) {
		return
	}
	r.stop = make(chan struct{})
	r.wg.Add(1)
	go r.watch()
}

// Stop halts the watcher and waits for it. Safe to call repeatedly or when
// the watcher never started.
func (r *ActivityRelay) Stop() {
	if !r.running.CompareAndSwap(true, false) {
		return
	}
	close(r.stop)
	r.wg.Wait()
}

// watch probes connectivity on an interval and fires a replay on each
// Offline -> Online transition. wasOnline starts false so queued entries
// from before a restart replay on the first successful probe.
func (r *ActivityRelay) watch() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.probeInterval)
	defer ticker.Stop()

	wasOnline := false
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			ctx := context.Background()
			online := r.ledger.ProbeConnectivity(ctx)
			if online && !wasOnline {
				r.ReplayQueued(ctx)
				if r.onOnline != nil {
					r.onOnline(ctx)
				}
			}
			wasOnline = online
		}
	}
}
