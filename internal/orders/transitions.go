package orders

import (
	"github.com/mercaline/marketplace-backend/pkg/db/models"
	"github.com/mercaline/marketplace-backend/pkg/enums"
)

// orderTransitions defines the legal order-level state machine. A delivery
// retry is not listed because it keeps the order in out_for_delivery.
var orderTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:         {enums.OrderStatusConfirmed, enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed:       {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing:      {enums.OrderStatusOutForDelivery, enums.OrderStatusCancelled},
	enums.OrderStatusOutForDelivery:  {enums.OrderStatusDelivered, enums.OrderStatusFailed},
	enums.OrderStatusDelivered:       {enums.OrderStatusCompleted, enums.OrderStatusReturnRequested},
	enums.OrderStatusReturnRequested: {enums.OrderStatusRefunded},
}

// itemTransitions defines the per-vendor item sub-status machine. Items move
// strictly forward; cancellation is only possible before shipment.
var itemTransitions = map[enums.OrderItemStatus][]enums.OrderItemStatus{
	enums.OrderItemStatusPending:    {enums.OrderItemStatusProcessing, enums.OrderItemStatusCancelled},
	enums.OrderItemStatusProcessing: {enums.OrderItemStatusShipped, enums.OrderItemStatusCancelled},
	enums.OrderItemStatusShipped:    {enums.OrderItemStatusDelivered},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range orderTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// CanTransitionItem reports whether an order item may move between sub-statuses.
func CanTransitionItem(from, to enums.OrderItemStatus) bool {
	for _, candidate := range itemTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// AggregateItemStatus derives the order-level floor status from item
// sub-statuses: the minimum rank across non-cancelled items. Cancelled items
// are excluded; an order whose items are all cancelled aggregates to
// cancelled. The result is a floor, not a command: callers only upgrade the
// order when the floor outranks its current state, never downgrade.
func AggregateItemStatus(items []models.OrderItem) enums.OrderStatus {
	minRank := -1
	for _, item := range items {
		rank, ok := item.VendorStatus.Rank()
		if !ok {
			continue
		}
		if minRank == -1 || rank < minRank {
			minRank = rank
		}
	}

	switch minRank {
	case -1:
		return enums.OrderStatusCancelled
	case 0:
		return enums.OrderStatusPending
	case 1, 2:
		// shipped has no order-level analog before the delivery hand-off
		return enums.OrderStatusProcessing
	default:
		return enums.OrderStatusDelivered
	}
}
