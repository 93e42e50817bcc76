package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercaline/marketplace-backend/pkg/enums"
)

// Commission is the immutable ledger entry splitting one order item's value
// between its vendor and the platform. Rows are never deleted; cancellations
// and refunds transition the status to reversed. vendor_amount_cents +
// platform_amount_cents always equals the order item total.
type Commission struct {
	ID                  uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderItemID         uuid.UUID              `gorm:"column:order_item_id;type:uuid;not null;uniqueIndex"`
	OrderID             uuid.UUID              `gorm:"column:order_id;type:uuid;not null"`
	VendorID            uuid.UUID              `gorm:"column:vendor_id;type:uuid;not null"`
	RateBps             int                    `gorm:"column:rate_bps;not null"`
	VendorAmountCents   int                    `gorm:"column:vendor_amount_cents;not null"`
	PlatformAmountCents int                    `gorm:"column:platform_amount_cents;not null"`
	Status              enums.CommissionStatus `gorm:"column:status;type:commission_status;not null;default:'pending'"`
	Withheld            bool                   `gorm:"column:withheld;not null;default:false"`
	WithheldReason      *string                `gorm:"column:withheld_reason"`
	PayoutID            *uuid.UUID             `gorm:"column:payout_id;type:uuid"`
	ConfirmedAt         *time.Time             `gorm:"column:confirmed_at"`
	ReversedAt          *time.Time             `gorm:"column:reversed_at"`
	CreatedAt           time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
