package services_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"smart-cart-service/apperrors"
	"smart-cart-service/database"
	"smart-cart-service/models"
)

// ---- fake remote ledger ----

type fakeLedger struct {
	mu     sync.Mutex
	online bool
	docs   map[string]map[string]map[string]any // collection -> id -> doc
	seq    int

	// createHook lets a test fail specific appends
	createHook func(collection string, data map[string]any) error
}

func newFakeLedger(online bool) *fakeLedger {
	return &fakeLedger{
		online: online,
		docs:   map[string]map[string]map[string]any{},
	}
}

func (f *fakeLedger) setOnline(online bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online = online
}

func (f *fakeLedger) Online() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online
}

func (f *fakeLedger) ProbeConnectivity(_ context.Context) bool {
	return f.Online()
}

func (f *fakeLedger) CreateDocument(_ context.Context, collection string, data map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.online {
		return "", apperrors.ErrRemoteUnavailable
	}
	if f.createHook != nil {
		if err := f.createHook(collection, data); err != nil {
			return "", err
		}
	}
	f.seq++
	id := fmt.Sprintf("remote-%d", f.seq)
	f.put(collection, id, data)
	return id, nil
}

func (f *fakeLedger) GetDocument(_ context.Context, collection, id string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.online {
		return nil, apperrors.ErrRemoteUnavailable
	}
	doc, ok := f.docs[collection][id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return doc, nil
}

func (f *fakeLedger) UpdateDocument(_ context.Context, collection, id string, partial map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.online {
		return apperrors.ErrRemoteUnavailable
	}
	doc, ok := f.docs[collection][id]
	if !ok {
		// upsert, matching the production ledger's session write-through
		doc = map[string]any{}
	}
	for k, v := range partial {
		doc[k] = v
	}
	f.put(collection, id, doc)
	return nil
}

func (f *fakeLedger) QueryByField(_ context.Context, collection, field string, value any, _ string, limit int64) ([]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.online {
		return nil, apperrors.ErrRemoteUnavailable
	}
	var out []map[string]any
	for _, doc := range f.docs[collection] {
		if field != "" && doc[field] != value {
			continue
		}
		out = append(out, doc)
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeLedger) put(collection, id string, doc map[string]any) {
	if f.docs[collection] == nil {
		f.docs[collection] = map[string]map[string]any{}
	}
	cp := make(map[string]any, len(doc))
	for k, v := range doc {
		cp[k] = v
	}
	f.docs[collection][id] = cp
}

func (f *fakeLedger) count(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs[collection])
}

// ---- fake offline store ----

type fakeStore struct {
	mu       sync.Mutex
	records  map[string]map[string]database.Record
	clock    int64
	writeErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]map[string]database.Record{}}
}

func (f *fakeStore) Write(namespace, id string, data map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	if f.records[namespace] == nil {
		f.records[namespace] = map[string]database.Record{}
	}
	cp := make(map[string]any, len(data))
	for k, v := range data {
		cp[k] = v
	}
	f.clock++
	f.records[namespace][id] = database.Record{
		ID:       id,
		Data:     cp,
		StoredAt: time.Unix(0, f.clock),
	}
	return nil
}

func (f *fakeStore) Read(namespace, id string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[namespace][id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return rec.Data, nil
}

func (f *fakeStore) ListRecent(namespace string, limit int) ([]database.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []database.Record
	for _, rec := range f.records[namespace] {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StoredAt.After(out[j].StoredAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) Delete(namespace, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records[namespace], id)
	return nil
}

func (f *fakeStore) count(namespace string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records[namespace])
}

// ---- fake catalog ----

type fakeCatalog struct {
	entries map[string]models.CatalogEntry
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{entries: map[string]models.CatalogEntry{
		"milk":  {ID: "milk", Name: "Milk 1L", Price: 1.99, WeightKg: 1.04, Category: "dairy"},
		"bread": {ID: "bread", Name: "Bread", Price: 2.49, WeightKg: 0.5, Category: "bakery"},
		"soap":  {ID: "soap", Name: "Soap", Price: 1.29, WeightKg: 0.15, Category: "personal care"},
	}}
}

func (f *fakeCatalog) Resolve(_ context.Context, itemID string) (*models.CatalogEntry, error) {
	entry, ok := f.entries[itemID]
	if !ok {
		return nil, apperrors.ErrItemNotFound
	}
	return &entry, nil
}

// ---- fake weight verifier ----

type verifyCall struct {
	itemID        string
	expectedGrams float64
}

type fakeVerifier struct {
	mu    sync.Mutex
	calls []verifyCall
}

func (f *fakeVerifier) VerifyDelta(itemID string, expectedGrams float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, verifyCall{itemID: itemID, expectedGrams: expectedGrams})
}

// ---- no-op activity logger for session tests that don't care ----

type nopActivity struct{}

func (nopActivity) Log(_ context.Context, _ string, _ map[string]any) bool { return false }
