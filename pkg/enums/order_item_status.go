package enums

import "fmt"

// OrderItemStatus is the per-vendor fulfillment state of a single order line.
// It advances independently of the order-level status because one order may
// span multiple vendors.
type OrderItemStatus string

const (
	OrderItemStatusPending    OrderItemStatus = "pending"
	OrderItemStatusProcessing OrderItemStatus = "processing"
	OrderItemStatusShipped    OrderItemStatus = "shipped"
	OrderItemStatusDelivered  OrderItemStatus = "delivered"
	OrderItemStatusCancelled  OrderItemStatus = "cancelled"
)

var validOrderItemStatuses = []OrderItemStatus{
	OrderItemStatusPending,
	OrderItemStatusProcessing,
	OrderItemStatusShipped,
	OrderItemStatusDelivered,
	OrderItemStatusCancelled,
}

// orderItemStatusRank defines the total ordering used when computing the
// order-level aggregate. Cancelled items carry no rank and are excluded.
var orderItemStatusRank = map[OrderItemStatus]int{
	OrderItemStatusPending:    0,
	OrderItemStatusProcessing: 1,
	OrderItemStatusShipped:    2,
	OrderItemStatusDelivered:  3,
}

// String implements fmt.Stringer.
func (s OrderItemStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderItemStatus.
func (s OrderItemStatus) IsValid() bool {
	for _, candidate := range validOrderItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Rank returns the aggregate-ordering rank and whether the status participates
// in the order-level aggregate.
func (s OrderItemStatus) Rank() (int, bool) {
	rank, ok := orderItemStatusRank[s]
	return rank, ok
}

// ParseOrderItemStatus converts raw input into an OrderItemStatus.
func ParseOrderItemStatus(value string) (OrderItemStatus, error) {
	for _, candidate := range validOrderItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order item status %q", value)
}
