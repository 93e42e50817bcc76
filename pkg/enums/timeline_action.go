package enums

import "fmt"

// TimelineAction names an entry appended to an order's event log.
type TimelineAction string

const (
	TimelineActionPlaced           TimelineAction = "placed"
	TimelineActionConfirmed        TimelineAction = "confirmed"
	TimelineActionProcessing       TimelineAction = "processing"
	TimelineActionOutForDelivery   TimelineAction = "out_for_delivery"
	TimelineActionDeliveryFailed   TimelineAction = "delivery_failed"
	TimelineActionDelivered        TimelineAction = "delivered"
	TimelineActionCompleted        TimelineAction = "completed"
	TimelineActionCancelled        TimelineAction = "cancelled"
	TimelineActionFailed           TimelineAction = "failed"
	TimelineActionItemStatusChange TimelineAction = "item_status_change"
	TimelineActionCODFlagged       TimelineAction = "cod_flagged"
	TimelineActionCODVerified      TimelineAction = "cod_verified"
)

var validTimelineActions = []TimelineAction{
	TimelineActionPlaced,
	TimelineActionConfirmed,
	TimelineActionProcessing,
	TimelineActionOutForDelivery,
	TimelineActionDeliveryFailed,
	TimelineActionDelivered,
	TimelineActionCompleted,
	TimelineActionCancelled,
	TimelineActionFailed,
	TimelineActionItemStatusChange,
	TimelineActionCODFlagged,
	TimelineActionCODVerified,
}

// IsValid reports whether the value is a known TimelineAction.
func (a TimelineAction) IsValid() bool {
	for _, candidate := range validTimelineActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseTimelineAction converts raw input into a TimelineAction.
func ParseTimelineAction(value string) (TimelineAction, error) {
	for _, candidate := range validTimelineActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid timeline action %q", value)
}
