package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeOrderConfirmed  NotificationType = "order_confirmed"
	NotificationTypeOrderDelivered  NotificationType = "order_delivered"
	NotificationTypeOrderCancelled  NotificationType = "order_cancelled"
	NotificationTypeDeliveryFailed  NotificationType = "delivery_failed"
	NotificationTypeCODMismatch     NotificationType = "cod_mismatch"
	NotificationTypePayoutRequested NotificationType = "payout_requested"
	NotificationTypePayoutCompleted NotificationType = "payout_completed"
	NotificationTypePayoutReleased  NotificationType = "payout_released"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderConfirmed,
	NotificationTypeOrderDelivered,
	NotificationTypeOrderCancelled,
	NotificationTypeDeliveryFailed,
	NotificationTypeCODMismatch,
	NotificationTypePayoutRequested,
	NotificationTypePayoutCompleted,
	NotificationTypePayoutReleased,
}

// IsValid reports whether the value is a known NotificationType.
func (t NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
