package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mercaline/marketplace-backend/pkg/enums"
)

// Payout is a batched withdrawal request by a vendor against confirmed
// commissions. Immutable once completed.
type Payout struct {
	ID                  uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PayoutNumber        string             `gorm:"column:payout_number;not null;uniqueIndex"`
	VendorID            uuid.UUID          `gorm:"column:vendor_id;type:uuid;not null"`
	AmountCents         int                `gorm:"column:amount_cents;not null"`
	ProcessingFeeCents  int                `gorm:"column:processing_fee_cents;not null;default:0"`
	NetAmountCents      int                `gorm:"column:net_amount_cents;not null"`
	Status              enums.PayoutStatus `gorm:"column:status;type:payout_status;not null;default:'pending'"`
	Method              enums.PayoutMethod `gorm:"column:method;type:payout_method;not null"`
	Details             json.RawMessage    `gorm:"column:details;type:jsonb"`
	PeriodStart         *time.Time         `gorm:"column:period_start"`
	PeriodEnd           *time.Time         `gorm:"column:period_end"`
	ItemsCount          int                `gorm:"column:items_count;not null;default:0"`
	TransactionID       *string            `gorm:"column:transaction_id"`
	Notes               *string            `gorm:"column:notes"`
	CancellationReason  *string            `gorm:"column:cancellation_reason"`
	ProcessedAt         *time.Time         `gorm:"column:processed_at"`
	ProcessedByUserID   *uuid.UUID         `gorm:"column:processed_by_user_id;type:uuid"`
	CreatedAt           time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
