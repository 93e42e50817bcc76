package orders

import (
	"testing"

	"github.com/google/uuid"

	"github.com/mercaline/marketplace-backend/pkg/db/models"
	"github.com/mercaline/marketplace-backend/pkg/enums"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from    enums.OrderStatus
		to      enums.OrderStatus
		allowed bool
	}{
		{enums.OrderStatusPending, enums.OrderStatusConfirmed, true},
		{enums.OrderStatusPending, enums.OrderStatusCancelled, true},
		{enums.OrderStatusPending, enums.OrderStatusDelivered, false},
		{enums.OrderStatusConfirmed, enums.OrderStatusProcessing, true},
		{enums.OrderStatusConfirmed, enums.OrderStatusCancelled, true},
		{enums.OrderStatusConfirmed, enums.OrderStatusOutForDelivery, false},
		{enums.OrderStatusProcessing, enums.OrderStatusOutForDelivery, true},
		{enums.OrderStatusProcessing, enums.OrderStatusCancelled, true},
		{enums.OrderStatusOutForDelivery, enums.OrderStatusDelivered, true},
		{enums.OrderStatusOutForDelivery, enums.OrderStatusFailed, true},
		{enums.OrderStatusOutForDelivery, enums.OrderStatusCancelled, false},
		{enums.OrderStatusDelivered, enums.OrderStatusCompleted, true},
		{enums.OrderStatusDelivered, enums.OrderStatusReturnRequested, true},
		{enums.OrderStatusReturnRequested, enums.OrderStatusRefunded, true},
		{enums.OrderStatusCompleted, enums.OrderStatusCancelled, false},
		{enums.OrderStatusCancelled, enums.OrderStatusConfirmed, false},
		{enums.OrderStatusRefunded, enums.OrderStatusCompleted, false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.allowed {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestCanTransitionItem(t *testing.T) {
	cases := []struct {
		from    enums.OrderItemStatus
		to      enums.OrderItemStatus
		allowed bool
	}{
		{enums.OrderItemStatusPending, enums.OrderItemStatusProcessing, true},
		{enums.OrderItemStatusPending, enums.OrderItemStatusCancelled, true},
		{enums.OrderItemStatusPending, enums.OrderItemStatusShipped, false},
		{enums.OrderItemStatusProcessing, enums.OrderItemStatusShipped, true},
		{enums.OrderItemStatusProcessing, enums.OrderItemStatusCancelled, true},
		{enums.OrderItemStatusShipped, enums.OrderItemStatusDelivered, true},
		{enums.OrderItemStatusShipped, enums.OrderItemStatusCancelled, false},
		{enums.OrderItemStatusDelivered, enums.OrderItemStatusShipped, false},
		{enums.OrderItemStatusCancelled, enums.OrderItemStatusPending, false},
	}

	for _, tc := range cases {
		if got := CanTransitionItem(tc.from, tc.to); got != tc.allowed {
			t.Errorf("CanTransitionItem(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func itemWithStatus(status enums.OrderItemStatus) models.OrderItem {
	return models.OrderItem{ID: uuid.New(), VendorStatus: status}
}

func TestAggregateItemStatus(t *testing.T) {
	cases := []struct {
		name     string
		statuses []enums.OrderItemStatus
		want     enums.OrderStatus
	}{
		{
			name:     "all pending",
			statuses: []enums.OrderItemStatus{enums.OrderItemStatusPending, enums.OrderItemStatusPending},
			want:     enums.OrderStatusPending,
		},
		{
			name:     "mixed floor is the slowest item",
			statuses: []enums.OrderItemStatus{enums.OrderItemStatusShipped, enums.OrderItemStatusPending},
			want:     enums.OrderStatusPending,
		},
		{
			name:     "all at least processing",
			statuses: []enums.OrderItemStatus{enums.OrderItemStatusProcessing, enums.OrderItemStatusShipped},
			want:     enums.OrderStatusProcessing,
		},
		{
			name:     "cancelled items are ignored for the floor",
			statuses: []enums.OrderItemStatus{enums.OrderItemStatusCancelled, enums.OrderItemStatusShipped},
			want:     enums.OrderStatusProcessing,
		},
		{
			name:     "all delivered",
			statuses: []enums.OrderItemStatus{enums.OrderItemStatusDelivered, enums.OrderItemStatusDelivered},
			want:     enums.OrderStatusDelivered,
		},
		{
			name:     "all cancelled",
			statuses: []enums.OrderItemStatus{enums.OrderItemStatusCancelled, enums.OrderItemStatusCancelled},
			want:     enums.OrderStatusCancelled,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items := make([]models.OrderItem, 0, len(tc.statuses))
			for _, status := range tc.statuses {
				items = append(items, itemWithStatus(status))
			}
			if got := AggregateItemStatus(items); got != tc.want {
				t.Fatalf("AggregateItemStatus = %s, want %s", got, tc.want)
			}
		})
	}
}
