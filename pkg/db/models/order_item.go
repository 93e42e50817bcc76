package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercaline/marketplace-backend/pkg/enums"
)

// OrderItem is one product line owned by exactly one vendor within an order.
// The sum of item total_cents across an order equals the order subtotal.
type OrderItem struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID             `gorm:"column:order_id;type:uuid;not null"`
	ProductID      uuid.UUID             `gorm:"column:product_id;type:uuid;not null"`
	VendorID       uuid.UUID             `gorm:"column:vendor_id;type:uuid;not null"`
	Qty            int                   `gorm:"column:qty;not null"`
	UnitPriceCents int                   `gorm:"column:unit_price_cents;not null"`
	TotalCents     int                   `gorm:"column:total_cents;not null"`
	VendorStatus   enums.OrderItemStatus `gorm:"column:vendor_status;type:order_item_status;not null;default:'pending'"`
	TrackingNumber *string               `gorm:"column:tracking_number"`
	Carrier        *enums.Carrier        `gorm:"column:carrier;type:carrier"`
	DeliveredAt    *time.Time            `gorm:"column:delivered_at"`
	Version        int                   `gorm:"column:version;not null;default:0"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
