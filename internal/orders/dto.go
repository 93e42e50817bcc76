package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercaline/marketplace-backend/pkg/enums"
)

// Actor identifies who is performing an operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.ActorRole
}

// ConfirmInput confirms a pending order.
type ConfirmInput struct {
	OrderID uuid.UUID
	Actor   Actor
	Comment *string
}

// StartProcessingInput moves a confirmed order into fulfillment.
type StartProcessingInput struct {
	OrderID uuid.UUID
	Actor   Actor
}

// MarkOutForDeliveryInput hands the order to a delivery person.
type MarkOutForDeliveryInput struct {
	OrderID          uuid.UUID
	DeliveryPersonID uuid.UUID
	Actor            Actor
}

// ConfirmDeliveryInput records the delivery hand-off, including COD collection.
type ConfirmDeliveryInput struct {
	OrderID              uuid.UUID
	AmountCollectedCents *int
	CollectedByUserID    *uuid.UUID
	Actor                Actor
}

// DeliveryFailureInput records a failed delivery attempt.
type DeliveryFailureInput struct {
	OrderID    uuid.UUID
	Reason     string
	Reschedule bool
	Actor      Actor
}

// VerifyCODInput resolves a flagged cash collection after manual
// reconciliation.
type VerifyCODInput struct {
	OrderID uuid.UUID
	Note    *string
	Actor   Actor
}

// CompleteInput finalizes a delivered order after the holding period.
type CompleteInput struct {
	OrderID uuid.UUID
	Actor   Actor
}

// CancelInput cancels an order before the delivery hand-off.
type CancelInput struct {
	OrderID uuid.UUID
	Reason  string
	Actor   Actor
}

// UpdateItemStatusInput advances one vendor's item sub-status.
type UpdateItemStatusInput struct {
	OrderID        uuid.UUID
	ItemID         uuid.UUID
	Status         enums.OrderItemStatus
	TrackingNumber *string
	Carrier        *enums.Carrier
	Version        int
	Actor          Actor
}

// OrderFilters describe the inputs supported by the order list.
type OrderFilters struct {
	Status        *enums.OrderStatus
	PaymentMethod *enums.PaymentMethod
	CustomerID    *uuid.UUID
	VendorID      *uuid.UUID
	DateFrom      *time.Time
	DateTo        *time.Time
	Query         string
}

// OrderSummary exposes the aggregated fields returned in the order list.
type OrderSummary struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   string              `json:"order_number"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	TotalCents    int                 `json:"total_cents"`
	TotalItems    int                 `json:"total_items"`
	CreatedAt     time.Time           `json:"created_at"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrderStatusEvent is the outbox payload for order lifecycle events.
type OrderStatusEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	CustomerID  uuid.UUID         `json:"customer_id"`
	Status      enums.OrderStatus `json:"status"`
	VendorIDs   []uuid.UUID       `json:"vendor_ids,omitempty"`
	Reason      *string           `json:"reason,omitempty"`
}
