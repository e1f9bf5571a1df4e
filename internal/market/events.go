package market

import (
	"context"
	"encoding/json"
	"time"
)

const (
	EventUserRegistered     = "UserRegistered"
	EventUserStatusToggled  = "UserStatusToggled"
	EventProductAdded       = "ProductAdded"
	EventProductUpdated     = "ProductUpdated"
	EventProductDeleted     = "ProductDeleted"
	EventProductReviewed    = "ProductReviewed"
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventFeedbackAdded      = "FeedbackAdded"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // id of the entity the event is about
	Payload       json.RawMessage `json:"payload"`
}

// EventSink receives envelopes after a mutation has been committed.
// Implementations must not block for long; delivery is best effort.
type EventSink interface {
	Publish(ctx context.Context, ev Envelope)
}

// ---- payloads ----

type UserRegisteredPayload struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
	Name   string `json:"name"`
}

type UserStatusToggledPayload struct {
	UserID string     `json:"user_id"`
	Status UserStatus `json:"status"`
}

type ProductPayload struct {
	ProductID string        `json:"product_id"`
	FarmerID  string        `json:"farmer_id"`
	Name      string        `json:"name"`
	Status    ProductStatus `json:"status"`
	Stock     int           `json:"stock"`
}

type ProductDeletedPayload struct {
	ProductID       string   `json:"product_id"`
	FarmerID        string   `json:"farmer_id"`
	RemovedOrderIDs []string `json:"removed_order_ids,omitempty"`
}

type OrderPlacedPayload struct {
	OrderID        string  `json:"order_id"`
	BuyerID        string  `json:"buyer_id"`
	FarmerID       string  `json:"farmer_id"`
	ProductID      string  `json:"product_id"`
	Quantity       int     `json:"quantity"`
	TotalPrice     float64 `json:"total_price"`
	RemainingStock int     `json:"remaining_stock"`
}

type OrderStatusChangedPayload struct {
	OrderID  string      `json:"order_id"`
	BuyerID  string      `json:"buyer_id"`
	FarmerID string      `json:"farmer_id"`
	From     OrderStatus `json:"from"`
	To       OrderStatus `json:"to"`
}

type FeedbackAddedPayload struct {
	FeedbackID string `json:"feedback_id"`
	OrderID    string `json:"order_id"`
	BuyerID    string `json:"buyer_id"`
	FarmerID   string `json:"farmer_id"`
	Rating     int    `json:"rating"`
}
