package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercaline/marketplace-backend/pkg/db/models"
	"github.com/mercaline/marketplace-backend/pkg/enums"
	"github.com/mercaline/marketplace-backend/pkg/outbox"
	"github.com/mercaline/marketplace-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error)
	FindItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	UpdateItemVersioned(ctx context.Context, itemID uuid.UUID, version int, updates map[string]any) (int64, error)
	CascadeItemStatus(ctx context.Context, orderID uuid.UUID, from []enums.OrderItemStatus, to enums.OrderItemStatus, at time.Time) (int64, error)
	AppendTimeline(ctx context.Context, entry *models.OrderTimelineEntry) error
	ListTimeline(ctx context.Context, orderID uuid.UUID) ([]models.OrderTimelineEntry, error)
	List(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error)
	FindUnverifiedCODBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// LedgerHooks is the slice of the commission ledger the order machine drives.
type LedgerHooks interface {
	CreateForOrderItems(ctx context.Context, tx *gorm.DB, order *models.Order, items []models.OrderItem) ([]*models.Commission, error)
	ConfirmForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	ReverseForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	ReverseForOrderItem(ctx context.Context, tx *gorm.DB, orderItemID uuid.UUID) error
	WithholdForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) error
	ReleaseWithholdingForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}

// Notifier dispatches fire-and-forget user notifications. Implementations must
// never fail the caller.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, notifType enums.NotificationType, payload map[string]any)
}

// UserDirectory resolves users for delivery-person validation.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}
