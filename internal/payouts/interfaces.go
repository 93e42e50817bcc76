package payouts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercaline/marketplace-backend/pkg/db/models"
	"github.com/mercaline/marketplace-backend/pkg/enums"
	"github.com/mercaline/marketplace-backend/pkg/outbox"
	"github.com/mercaline/marketplace-backend/pkg/pagination"
)

// Repository persists payouts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payout *models.Payout) (*models.Payout, error)
	FindByID(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error)
	FindByIDForUpdate(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error)
	UpdateStatus(ctx context.Context, payoutID uuid.UUID, from, to enums.PayoutStatus, updates map[string]any) (int64, error)
	List(ctx context.Context, params pagination.Params, filters PayoutFilters) (*PayoutList, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CommissionLedger claims, pays, and releases commission rows on behalf of a
// payout inside its transaction.
type CommissionLedger interface {
	AvailableForPayout(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) ([]models.Commission, error)
	AssignToPayout(ctx context.Context, tx *gorm.DB, commissionIDs []uuid.UUID, payoutID uuid.UUID) (int64, error)
	MarkPaidForPayout(ctx context.Context, tx *gorm.DB, payoutID uuid.UUID) error
	ReleaseForPayout(ctx context.Context, tx *gorm.DB, payoutID uuid.UUID) error
}

// VendorProfiles resolves the vendor's payout settings.
type VendorProfiles interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.VendorProfile, error)
}

// Notifier delivers in-app notifications without blocking the flow.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, notifType enums.NotificationType, payload map[string]any)
}
