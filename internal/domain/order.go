package domain

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusServed    Status = "served"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPreparing, StatusReady, StatusServed, StatusCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentRefunded  PaymentStatus = "refunded"
	PaymentFailed    PaymentStatus = "failed"
)

type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine_in"
	OrderTypeTakeaway OrderType = "takeaway"
	OrderTypeDelivery OrderType = "delivery"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeDineIn, OrderTypeTakeaway, OrderTypeDelivery:
		return true
	}
	return false
}

// CategoryKind is stamped on each order item at creation time from the
// product's category, so the dashboard never has to re-derive it from
// free-text category names.
type CategoryKind string

const (
	CategoryEntree  CategoryKind = "entree"
	CategoryPlat    CategoryKind = "plat"
	CategoryDessert CategoryKind = "dessert"
)

type PaymentMethod string

const (
	MethodCash  PaymentMethod = "cash"
	MethodCard  PaymentMethod = "card"
	MethodOther PaymentMethod = "other"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodOther:
		return true
	}
	return false
}

// Order is a single customer transaction. Version is bumped on every write
// and checked by status updates so a stale operator write is rejected
// instead of silently winning.
type Order struct {
	ID            int64          `json:"id"`
	Number        string         `json:"order_number"`
	Type          OrderType      `json:"order_type"`
	Status        Status         `json:"status"`
	PaymentStatus PaymentStatus  `json:"payment_status"`
	TotalAmount   float64        `json:"total_amount"`
	TableNumber   *string        `json:"table_number,omitempty"`
	Version       int64          `json:"version"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	Items         []OrderItem    `json:"items"`
	Payments      []OrderPayment `json:"payments"`
}

// OrderItem is an immutable line-item snapshot taken at order creation.
type OrderItem struct {
	ID           int64        `json:"id"`
	OrderID      int64        `json:"order_id"`
	ProductID    int64        `json:"product_id"`
	ProductName  string       `json:"product_name"`
	Quantity     int          `json:"quantity"`
	UnitPrice    float64      `json:"unit_price"`
	Subtotal     float64      `json:"subtotal"`
	CategoryKind CategoryKind `json:"category_kind"`
}

type OrderPayment struct {
	ID        int64         `json:"id"`
	OrderID   int64         `json:"order_id"`
	Method    PaymentMethod `json:"method"`
	Amount    float64       `json:"amount"`
	Reference *string       `json:"reference,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// StatusLog is one row of the order status audit trail.
type StatusLog struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	Status    Status    `json:"status"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}
