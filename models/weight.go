package models

import "time"

type WeightEventType string

const (
	WeightItemAdded   WeightEventType = "item_added"
	WeightItemRemoved WeightEventType = "item_removed"
)

// WeightEvent is a diagnostic signal from the scale monitor: the stable
// weight moved by more than the item-detection threshold. It never mutates
// the session.
type WeightEvent struct {
	Type       WeightEventType `json:"type"`
	DeltaGrams float64         `json:"delta_grams"`
	At         time.Time       `json:"at"`
}

// WeightMismatch is an anomaly, not a failure: the measured weight change
// after a session mutation disagreed with the catalog's expected delta.
// Reported asynchronously; the originating mutation stands.
type WeightMismatch struct {
	ItemID        string    `json:"item_id"`
	ExpectedGrams float64   `json:"expected_grams"`
	ActualGrams   float64   `json:"actual_grams"`
	At            time.Time `json:"at"`
}
