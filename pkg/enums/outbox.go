package enums

import "fmt"

// OutboxEventType names a domain event written to the outbox table.
type OutboxEventType string

const (
	EventOrderConfirmed  OutboxEventType = "order.confirmed"
	EventOrderDelivered  OutboxEventType = "order.delivered"
	EventOrderCancelled  OutboxEventType = "order.cancelled"
	EventOrderFailed     OutboxEventType = "order.failed"
	EventPayoutRequested OutboxEventType = "payout.requested"
	EventPayoutCompleted OutboxEventType = "payout.completed"
	EventPayoutReleased  OutboxEventType = "payout.released"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderConfirmed,
	EventOrderDelivered,
	EventOrderCancelled,
	EventOrderFailed,
	EventPayoutRequested,
	EventPayoutCompleted,
	EventPayoutReleased,
}

// IsValid reports whether the value is a known OutboxEventType.
func (t OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxAggregateType names the aggregate an outbox event refers to.
type OutboxAggregateType string

const (
	AggregateOrder  OutboxAggregateType = "order"
	AggregatePayout OutboxAggregateType = "payout"
)

// IsValid reports whether the value is a known OutboxAggregateType.
func (t OutboxAggregateType) IsValid() bool {
	switch t {
	case AggregateOrder, AggregatePayout:
		return true
	default:
		return false
	}
}
