package models

import "time"

// CheckoutEvent is the payload published to the checkout topic when a
// session completes. Best effort: publication failure never fails checkout.
type CheckoutEvent struct {
	Event     string               `json:"event"`
	SessionID string               `json:"session_id"`
	CartID    string               `json:"cart_id"`
	Items     map[string]*LineItem `json:"items"`
	Total     float64              `json:"total"`
	Timestamp time.Time            `json:"timestamp"`
}
