package models

import "time"

// Activity types recorded against a cart.
const (
	ActivityScan         = "scan"
	ActivityWeightChange = "weight_change"
	ActivityRemove       = "remove"
	ActivityCheckout     = "checkout"
)

// ActivityLogEntry is a write-once audit record. Entries that could not be
// appended remotely sit in the offline replay queue until a replay confirms
// the remote write, and only then are deleted.
type ActivityLogEntry struct {
	Timestamp    time.Time      `json:"timestamp"`
	CartID       string         `json:"cart_id"`
	ActivityType string         `json:"activity_type"`
	Details      map[string]any `json:"details"`
}

// Document flattens the entry into the portable form shared by the remote
// ledger and the replay queue.
func (e *ActivityLogEntry) Document() map[string]any {
	return map[string]any{
		"timestamp":     e.Timestamp.UTC().Format(time.RFC3339Nano),
		"cart_id":       e.CartID,
		"activity_type": e.ActivityType,
		"details":       e.Details,
	}
}
