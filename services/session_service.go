package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"smart-cart-service/apperrors"
	"smart-cart-service/database"
	"smart-cart-service/models"
)

const sessionCollection = "sessions"

const offlineIDPrefix = "offline-"

// SessionService owns the per-cart session state machine
// (NoSession -> Active -> Completed/Abandoned) and the offline-first write
// policy: every mutation lands in memory first, then is written through to
// the remote ledger when reachable and always mirrored to the offline
// store. A mutation is durable once either store has it; only a double
// failure surfaces as ErrPersistenceFailure.
//
// All mutation entry points are serialized under one mutex, so the service
// is safe for multi-caller hosts.
type SessionService struct {
	cartID    string
	ledger    Ledger
	store     OfflineStore
	catalog   Catalog
	activity  ActivityLogger
	verifier  WeightVerifier    // optional
	publisher CheckoutPublisher // optional
	log       *zap.Logger

	mu              sync.Mutex
	active          *models.CartSession
	lastOfflineNano int64
}

func NewSessionService(
	cartID string,
	ledger Ledger,
	store OfflineStore,
	catalog Catalog,
	activity ActivityLogger,
	verifier WeightVerifier,
	publisher CheckoutPublisher,
	log *zap.Logger,
) *SessionService {
	return &SessionService{
		cartID:    cartID,
		ledger:    ledger,
		store:     store,
		catalog:   catalog,
		activity:  activity,
		verifier:  verifier,
		publisher: publisher,
		log:       log,
	}
}

// StartSession opens a new shopping session for the cart. The session id
// comes from the remote store when reachable; otherwise a locally unique
// offline id is synthesized. Either way a copy is mirrored to the offline
// store, and the same id is reused for every subsequent write.
func (s *SessionService) StartSession(ctx context.Context) (*models.CartSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		return nil, apperrors.ErrSessionAlreadyActive
	}

	session := &models.CartSession{
		CartID:    s.cartID,
		Status:    models.StatusActive,
		StartedAt: time.Now(),
		Items:     map[string]*models.LineItem{},
	}

	id, remoteErr := s.ledger.CreateDocument(ctx, sessionCollection, session.Document())
	if remoteErr != nil {
		id = s.offlineSessionID()
		session.PendingSync = true
	}
	session.SessionID = id

	offErr := s.store.Write(database.NamespaceSessions, id, session.Document())
	if remoteErr != nil && offErr != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistenceFailure, offErr)
	}
	if offErr != nil {
		s.log.Warn("offline mirror of new session failed",
			zap.String("session_id", id), zap.Error(offErr))
	}

	s.active = session
	s.log.Info("session started",
		zap.String("session_id", id),
		zap.Bool("offline", remoteErr != nil),
	)
	return session.Clone(), nil
}

// AddItem resolves an item through the catalog and merges it into the
// active session, recomputing the total. Requires an active session.
func (s *SessionService) AddItem(ctx context.Context, itemID string, quantity int) (*models.CartSession, error) {
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return nil, apperrors.ErrNoActiveSession
	}

	entry, err := s.catalog.Resolve(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if item, ok := s.active.Items[itemID]; ok {
		item.Quantity += quantity
	} else {
		s.active.Items[itemID] = &models.LineItem{
			ItemID:       entry.ID,
			Name:         entry.Name,
			Quantity:     quantity,
			UnitPrice:    entry.Price,
			UnitWeightKg: entry.WeightKg,
			Category:     entry.Category,
		}
	}
	s.active.RecomputeTotals()

	if err := s.persistActiveLocked(ctx); err != nil {
		return nil, err
	}

	s.activity.Log(ctx, models.ActivityScan, map[string]any{
		"item_id":  itemID,
		"name":     entry.Name,
		"price":    entry.Price,
		"quantity": quantity,
	})
	if s.verifier != nil && entry.WeightKg > 0 {
		s.verifier.VerifyDelta(itemID, entry.WeightKg*1000*float64(quantity))
	}

	return s.active.Clone(), nil
}

// RemoveItem decrements an item's quantity, dropping the line item once it
// reaches zero. Requires an active session holding the item.
func (s *SessionService) RemoveItem(ctx context.Context, itemID string, quantity int) (*models.CartSession, error) {
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return nil, apperrors.ErrNoActiveSession
	}
	item, ok := s.active.Items[itemID]
	if !ok {
		return nil, apperrors.ErrItemNotInSession
	}

	removed := quantity
	if removed > item.Quantity {
		removed = item.Quantity
	}
	unitWeight := item.UnitWeightKg

	item.Quantity -= quantity
	if item.Quantity <= 0 {
		delete(s.active.Items, itemID)
	}
	s.active.RecomputeTotals()

	if err := s.persistActiveLocked(ctx); err != nil {
		return nil, err
	}

	s.activity.Log(ctx, models.ActivityRemove, map[string]any{
		"item_id":  itemID,
		"name":     item.Name,
		"quantity": removed,
	})
	if s.verifier != nil && unitWeight > 0 {
		s.verifier.VerifyDelta(itemID, -unitWeight*1000*float64(removed))
	}

	return s.active.Clone(), nil
}

// CompleteSession terminates the active session as completed and returns
// the final snapshot for receipt generation. The checkout event and
// activity record are best effort.
func (s *SessionService) CompleteSession(ctx context.Context) (*models.CartSession, error) {
	snapshot, err := s.endSession(ctx, models.StatusCompleted)
	if err != nil {
		return nil, err
	}

	s.activity.Log(ctx, models.ActivityCheckout, map[string]any{
		"session_id":   snapshot.SessionID,
		"total_amount": snapshot.TotalCost,
		"item_count":   snapshot.ItemCount,
	})
	if s.publisher != nil {
		event := models.CheckoutEvent{
			Event:     "checkout.completed",
			SessionID: snapshot.SessionID,
			CartID:    snapshot.CartID,
			Items:     snapshot.Items,
			Total:     snapshot.TotalCost,
			Timestamp: time.Now(),
		}
		if err := s.publisher.Publish(event); err != nil {
			s.log.Warn("checkout event publish failed",
				zap.String("session_id", snapshot.SessionID), zap.Error(err))
		}
	}
	return snapshot, nil
}

// AbandonSession terminates the active session as abandoned.
func (s *SessionService) AbandonSession(ctx context.Context) (*models.CartSession, error) {
	return s.endSession(ctx, models.StatusAbandoned)
}

func (s *SessionService) endSession(ctx context.Context, status models.SessionStatus) (*models.CartSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return nil, apperrors.ErrNoActiveSession
	}

	now := time.Now()
	s.active.EndedAt = &now
	s.active.Status = status

	if err := s.persistActiveLocked(ctx); err != nil {
		// The terminated state has no durable record; keep it active in
		// memory so the caller can retry.
		s.active.EndedAt = nil
		s.active.Status = models.StatusActive
		return nil, err
	}

	snapshot := s.active.Clone()
	s.active = nil
	s.log.Info("session ended",
		zap.String("session_id", snapshot.SessionID),
		zap.String("status", string(status)),
		zap.Float64("total", snapshot.TotalCost),
	)
	return snapshot, nil
}

// GetActiveSession returns a snapshot of the in-memory session, or nil.
// Never touches storage.
func (s *SessionService) GetActiveSession() *models.CartSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil
	}
	return s.active.Clone()
}

// persistActiveLocked writes the in-memory session through: a partial
// upsert to the remote ledger when reachable, and always a full mirror to
// the offline store. The in-memory mutation is never rolled back here; a
// remote failure only flags the session for later reconciliation.
func (s *SessionService) persistActiveLocked(ctx context.Context) error {
	doc := s.active.Document()
	partial := map[string]any{
		"sessionId": doc["sessionId"],
		"status":    doc["status"],
		"endedAt":   doc["endedAt"],
		"items":     doc["items"],
		"totalCost": doc["totalCost"],
		"itemCount": doc["itemCount"],
		"cartId":    doc["cartId"],
		"startedAt": doc["startedAt"],
	}

	remoteErr := s.ledger.UpdateDocument(ctx, sessionCollection, s.active.SessionID, partial)
	if remoteErr == nil {
		s.active.PendingSync = false
	} else {
		s.active.PendingSync = true
	}

	offErr := s.store.Write(database.NamespaceSessions, s.active.SessionID, s.active.Document())
	if remoteErr != nil && offErr != nil {
		return apperrors.Wrap(apperrors.ErrPersistenceFailure, offErr)
	}
	if offErr != nil {
		s.log.Warn("offline mirror failed",
			zap.String("session_id", s.active.SessionID), zap.Error(offErr))
	}
	return nil
}

// SyncOffline pushes sessions whose only durable copy is local up to the
// remote ledger. Invoked when connectivity returns; partial progress is
// fine, remaining sessions are retried on the next transition.
func (s *SessionService) SyncOffline(ctx context.Context) (int, error) {
	records, err := s.store.ListRecent(database.NamespaceSessions, 0)
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, rec := range records {
		session := models.SessionFromDocument(rec.Data)
		if !session.PendingSync {
			continue
		}

		doc := rec.Data
		delete(doc, "pendingSync")
		if err := s.ledger.UpdateDocument(ctx, sessionCollection, rec.ID, doc); err != nil {
			s.log.Warn("session sync failed",
				zap.String("session_id", rec.ID), zap.Error(err))
			continue
		}

		session.PendingSync = false
		if err := s.store.Write(database.NamespaceSessions, rec.ID, session.Document()); err != nil {
			s.log.Warn("failed to clear pending-sync flag",
				zap.String("session_id", rec.ID), zap.Error(err))
		}

		s.mu.Lock()
		if s.active != nil && s.active.SessionID == rec.ID {
			s.active.PendingSync = false
		}
		s.mu.Unlock()
		synced++
	}

	if synced > 0 {
		s.log.Info("offline sessions reconciled", zap.Int("synced", synced))
	}
	return synced, nil
}

// offlineSessionID synthesizes a session id for offline starts: a fixed
// prefix plus a strictly increasing nanosecond timestamp, unique within
// this cart's offline history even across rapid restarts of the state
// machine.
func (s *SessionService) offlineSessionID() string {
	nano := time.Now().UnixNano()
	if nano <= s.lastOfflineNano {
		nano = s.lastOfflineNano + 1
	}
	s.lastOfflineNano = nano
	return fmt.Sprintf("%s%s-%d", offlineIDPrefix, s.cartID, nano)
}

// IsOfflineSessionID reports whether an id was synthesized locally.
func IsOfflineSessionID(id string) bool {
	return strings.HasPrefix(id, offlineIDPrefix)
}
