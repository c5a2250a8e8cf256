package models

import "time"

type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
	StatusAbandoned SessionStatus = "abandoned"
)

// LineItem is a catalog item plus quantity held within a session. Name,
// unit price and unit weight are captured at scan time so receipts and
// weight verification keep working when the catalog is unreachable.
type LineItem struct {
	ItemID       string  `json:"item_id"`
	Name         string  `json:"name"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	UnitWeightKg float64 `json:"unit_weight_kg"`
	Category     string  `json:"category"`
}

// CartSession is one shopping interaction from cart pickup to checkout or
// abandonment. At most one session per cart is active at a time; once
// completed or abandoned it is immutable and kept only for read-back.
type CartSession struct {
	SessionID   string               `json:"session_id"`
	CartID      string               `json:"cart_id"`
	Status      SessionStatus        `json:"status"`
	StartedAt   time.Time            `json:"started_at"`
	EndedAt     *time.Time           `json:"ended_at,omitempty"`
	Items       map[string]*LineItem `json:"items"`
	TotalCost   float64              `json:"total_cost"`
	ItemCount   int                  `json:"item_count"`
	PendingSync bool                 `json:"pending_sync,omitempty"`
}

// RecomputeTotals rederives TotalCost and ItemCount from the line items.
// Called after every mutation so the invariant holds at all times.
func (s *CartSession) RecomputeTotals() {
	total := 0.0
	count := 0
	for _, item := range s.Items {
		total += item.UnitPrice * float64(item.Quantity)
		count += item.Quantity
	}
	s.TotalCost = total
	s.ItemCount = count
}

// Clone returns a deep copy so callers can hold a snapshot without
// observing later mutations.
func (s *CartSession) Clone() *CartSession {
	cp := *s
	cp.Items = make(map[string]*LineItem, len(s.Items))
	for id, item := range s.Items {
		itemCopy := *item
		cp.Items[id] = &itemCopy
	}
	if s.EndedAt != nil {
		ended := *s.EndedAt
		cp.EndedAt = &ended
	}
	return &cp
}

// Document flattens the session into the portable form written to both the
// remote ledger and the offline store. Timestamps are RFC3339 strings.
func (s *CartSession) Document() map[string]any {
	items := make(map[string]any, len(s.Items))
	for id, item := range s.Items {
		items[id] = map[string]any{
			"itemId":       item.ItemID,
			"name":         item.Name,
			"quantity":     item.Quantity,
			"unitPrice":    item.UnitPrice,
			"unitWeightKg": item.UnitWeightKg,
			"category":     item.Category,
		}
	}

	doc := map[string]any{
		"sessionId":   s.SessionID,
		"cartId":      s.CartID,
		"status":      string(s.Status),
		"startedAt":   s.StartedAt.UTC().Format(time.RFC3339),
		"endedAt":     "",
		"items":       items,
		"totalCost":   s.TotalCost,
		"itemCount":   s.ItemCount,
		"pendingSync": s.PendingSync,
	}
	if s.EndedAt != nil {
		doc["endedAt"] = s.EndedAt.UTC().Format(time.RFC3339)
	}
	return doc
}

// SessionFromDocument rebuilds a session from its portable form. Unknown or
// malformed fields fall back to zero values rather than failing the read.
func SessionFromDocument(doc map[string]any) *CartSession {
	s := &CartSession{
		SessionID:   asString(doc["sessionId"]),
		CartID:      asString(doc["cartId"]),
		Status:      SessionStatus(asString(doc["status"])),
		TotalCost:   asFloat(doc["totalCost"]),
		ItemCount:   asInt(doc["itemCount"]),
		PendingSync: asBool(doc["pendingSync"]),
		Items:       map[string]*LineItem{},
	}
	if t, err := time.Parse(time.RFC3339, asString(doc["startedAt"])); err == nil {
		s.StartedAt = t
	}
	if raw := asString(doc["endedAt"]); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			s.EndedAt = &t
		}
	}
	if items, ok := doc["items"].(map[string]any); ok {
		for id, raw := range items {
			entry, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			s.Items[id] = &LineItem{
				ItemID:       asString(entry["itemId"]),
				Name:         asString(entry["name"]),
				Quantity:     asInt(entry["quantity"]),
				UnitPrice:    asFloat(entry["unitPrice"]),
				UnitWeightKg: asFloat(entry["unitWeightKg"]),
				Category:     asString(entry["category"]),
			}
		}
	}
	return s
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asFloat(v any) float64 {
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

func asInt(v any) int {
	return int(asFloat(v))
}
