package services

import (
	"context"

	"smart-cart-service/database"
	"smart-cart-service/models"
)

// Collaborator interfaces are defined here, by the consumers, so the
// services can be exercised against fakes without a live store or sensor.

// Ledger is the remote document store. Operations fail fast with
// ErrRemoteUnavailable on any transport problem; fallback policy lives in
// the callers, never in the ledger.
type Ledger interface {
	Online() bool
	ProbeConnectivity(ctx context.Context) bool
	CreateDocument(ctx context.Context, collection string, data map[string]any) (string, error)
	GetDocument(ctx context.Context, collection, id string) (map[string]any, error)
	UpdateDocument(ctx context.Context, collection, id string, partial map[string]any) error
	QueryByField(ctx context.Context, collection, field string, value any, orderBy string, limit int64) ([]map[string]any, error)
}

// OfflineStore is the durable local fallback keyed by (namespace, id).
type OfflineStore interface {
	Write(namespace, id string, data map[string]any) error
	Read(namespace, id string) (map[string]any, error)
	ListRecent(namespace string, limit int) ([]database.Record, error)
	Delete(namespace, id string) error
}

// Catalog resolves scanned item identifiers to catalog entries.
type Catalog interface {
	Resolve(ctx context.Context, itemID string) (*models.CatalogEntry, error)
}

// ActivityLogger records session activity best-effort. The bool reports
// whether the entry was deferred to the replay queue; it is never an error.
type ActivityLogger interface {
	Log(ctx context.Context, activityType string, details map[string]any) bool
}

// WeightVerifier schedules a fire-and-forget discrepancy check for an
// expected signed weight change in grams.
type WeightVerifier interface {
	VerifyDelta(itemID string, expectedGrams float64)
}

// CheckoutPublisher announces a completed session downstream.
type CheckoutPublisher interface {
	Publish(event models.CheckoutEvent) error
}
