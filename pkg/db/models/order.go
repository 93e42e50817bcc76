package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercaline/marketplace-backend/pkg/enums"
)

// Order is the aggregate root for a purchase. Monetary fields are integer
// cents; total = subtotal + shipping + tax + cod_fee - discount.
type Order struct {
	ID                      uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber             string              `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerID              uuid.UUID           `gorm:"column:customer_id;type:uuid;not null"`
	Status                  enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentMethod           enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null;default:'cod'"`
	PaymentStatus           enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'unpaid'"`
	SubtotalCents           int                 `gorm:"column:subtotal_cents;not null"`
	ShippingCents           int                 `gorm:"column:shipping_cents;not null;default:0"`
	TaxCents                int                 `gorm:"column:tax_cents;not null;default:0"`
	DiscountCents           int                 `gorm:"column:discount_cents;not null;default:0"`
	CODFeeCents             int                 `gorm:"column:cod_fee_cents;not null;default:0"`
	TotalCents              int                 `gorm:"column:total_cents;not null"`
	ShippingAddressID       *uuid.UUID          `gorm:"column:shipping_address_id;type:uuid"`
	BillingAddressID        *uuid.UUID          `gorm:"column:billing_address_id;type:uuid"`
	DeliveryPersonID        *uuid.UUID          `gorm:"column:delivery_person_id;type:uuid"`
	DeliveryAttempts        int                 `gorm:"column:delivery_attempts;not null;default:0"`
	CODVerificationRequired bool                `gorm:"column:cod_verification_required;not null;default:false"`
	CODAmountCollectedCents *int                `gorm:"column:cod_amount_collected_cents"`
	CODCollectedAt          *time.Time          `gorm:"column:cod_collected_at"`
	CODCollectorID          *uuid.UUID          `gorm:"column:cod_collector_id;type:uuid"`
	CancellationReason      *string             `gorm:"column:cancellation_reason"`
	DeliveredAt             *time.Time          `gorm:"column:delivered_at"`
	CompletedAt             *time.Time          `gorm:"column:completed_at"`
	CancelledAt             *time.Time          `gorm:"column:cancelled_at"`
	Items                   []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Timeline                []OrderTimelineEntry `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt               time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time           `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt               gorm.DeletedAt      `gorm:"column:deleted_at;index"`
}

// IsCOD reports whether the order is paid by cash on delivery.
func (o Order) IsCOD() bool {
	return o.PaymentMethod == enums.PaymentMethodCOD
}
