package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"smart-cart-service/apperrors"
)

// An offline ledger and a cold cache: resolution falls through to the
// built-in sample table.
func offlineCatalog() *CatalogRepository {
	ledger := NewMongoLedger(nil, time.Second, zap.NewNop())
	return NewCatalogRepository(ledger, nil, zap.NewNop())
}

func TestResolve_SampleCatalogWhileOffline(t *testing.T) {
	catalog := offlineCatalog()

	entry, err := catalog.Resolve(context.Background(), "1234567890128")
	require.NoError(t, err)
	assert.Equal(t, "Milk 1L", entry.Name)
	assert.InDelta(t, 1.99, entry.Price, 1e-9)
	assert.InDelta(t, 1.04, entry.WeightKg, 1e-9)
	assert.Equal(t, "dairy", entry.Category)
}

func TestResolve_SynthesizesNumericBarcode(t *testing.T) {
	catalog := offlineCatalog()

	entry, err := catalog.Resolve(context.Background(), "7312345678924")
	require.NoError(t, err)
	assert.Equal(t, "7312345678924", entry.ID)
	assert.Equal(t, "Unknown Item (7312345678924)", entry.Name)
	assert.Equal(t, "unknown", entry.Category)
	// price from the full code mod 100, weight from the last two digits mod 50
	assert.InDelta(t, 2.4, entry.Price, 1e-9)
	assert.InDelta(t, 2.4, entry.WeightKg, 1e-9)
	assert.Greater(t, entry.Price, 0.0)
}

func TestResolve_NonNumericBarcodeFails(t *testing.T) {
	catalog := offlineCatalog()

	_, err := catalog.Resolve(context.Background(), "not-a-barcode")
	assert.ErrorIs(t, err, apperrors.ErrItemNotFound)
}

func TestResolve_ImplausibleLengthFails(t *testing.T) {
	catalog := offlineCatalog()

	_, err := catalog.Resolve(context.Background(), "1")
	assert.ErrorIs(t, err, apperrors.ErrItemNotFound)

	_, err = catalog.Resolve(context.Background(), "1234567890123456789")
	assert.ErrorIs(t, err, apperrors.ErrItemNotFound)
}

func TestSynthesizeEntry_DeterministicPerBarcode(t *testing.T) {
	first := synthesizeEntry("5555555555")
	second := synthesizeEntry("5555555555")
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)
}
