package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mercaline/marketplace-backend/pkg/enums"
)

// VendorProfile stores per-vendor payout settings and platform controls.
// CommissionRateBps overrides the platform default when set.
type VendorProfile struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID            uuid.UUID           `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	DisplayName       string              `gorm:"column:display_name;not null"`
	CommissionRateBps *int                `gorm:"column:commission_rate_bps"`
	PayoutMethod      *enums.PayoutMethod `gorm:"column:payout_method;type:payout_method"`
	PayoutDetails     json.RawMessage     `gorm:"column:payout_details;type:jsonb"`
	UnderReview       bool                `gorm:"column:under_review;not null;default:false"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// HasPayoutDetails reports whether the vendor can receive payouts.
func (v VendorProfile) HasPayoutDetails() bool {
	return v.PayoutMethod != nil && len(v.PayoutDetails) > 0
}
