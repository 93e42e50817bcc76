package enums

import "fmt"

// CommissionStatus maps to the commission_status enum in Postgres.
type CommissionStatus string

const (
	CommissionStatusPending   CommissionStatus = "pending"
	CommissionStatusConfirmed CommissionStatus = "confirmed"
	CommissionStatusPaid      CommissionStatus = "paid"
	CommissionStatusReversed  CommissionStatus = "reversed"
)

var validCommissionStatuses = []CommissionStatus{
	CommissionStatusPending,
	CommissionStatusConfirmed,
	CommissionStatusPaid,
	CommissionStatusReversed,
}

// IsValid reports whether the value matches the canonical commission enum.
func (s CommissionStatus) IsValid() bool {
	for _, candidate := range validCommissionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCommissionStatus converts raw input into a CommissionStatus.
func ParseCommissionStatus(value string) (CommissionStatus, error) {
	for _, candidate := range validCommissionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission status %q", value)
}
