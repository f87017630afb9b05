package domain

import "encoding/json"

// Wire event names pushed to dashboard sessions.
const (
	EventOrderCreated       = "order:created"
	EventOrderUpdated       = "order:updated"
	EventOrderStatusChanged = "order:status_changed"
	EventOrdersRefresh      = "orders:refresh"
)

// Event is the envelope published on the orders fanout exchange and relayed
// verbatim to WebSocket clients.
type Event struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// StatusChange is the payload of an order:status_changed event.
type StatusChange struct {
	OrderID int64  `json:"order_id"`
	Status  Status `json:"status"`
}
