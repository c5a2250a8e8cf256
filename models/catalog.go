package models

// CatalogEntry is a read-only product record sourced from the catalog.
// The core never mutates it. Weight is in kilograms, matching the product
// documents in the remote store.
type CatalogEntry struct {
	ID       string  `json:"id" bson:"_id"`
	Name     string  `json:"name" bson:"name"`
	Price    float64 `json:"price" bson:"price"`
	WeightKg float64 `json:"weight" bson:"weight"`
	Category string  `json:"category" bson:"category"`
}
