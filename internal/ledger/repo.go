package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mercaline/marketplace-backend/pkg/db/models"
	"github.com/mercaline/marketplace-backend/pkg/enums"
)

// Repository manages persistence for commission rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, commissions []*models.Commission) error
	GetByOrderItemID(ctx context.Context, orderItemID uuid.UUID) (*models.Commission, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.Commission, error)
	ListByPayoutID(ctx context.Context, payoutID uuid.UUID) ([]models.Commission, error)
	ConfirmByOrderID(ctx context.Context, orderID uuid.UUID, at time.Time) (int64, error)
	ReverseByOrderID(ctx context.Context, orderID uuid.UUID, at time.Time) (int64, error)
	ReverseByOrderItemID(ctx context.Context, orderItemID uuid.UUID, at time.Time) (int64, error)
	SetWithheldByOrderID(ctx context.Context, orderID uuid.UUID, withheld bool, reason *string) (int64, error)
	VendorBalance(ctx context.Context, vendorID uuid.UUID, availableCutoff time.Time) (*Balance, error)
	ListAvailableForUpdate(ctx context.Context, vendorID uuid.UUID, availableCutoff time.Time) ([]models.Commission, error)
	AssignPayout(ctx context.Context, commissionIDs []uuid.UUID, payoutID uuid.UUID) (int64, error)
	MarkPaidByPayoutID(ctx context.Context, payoutID uuid.UUID) (int64, error)
	ReleaseByPayoutID(ctx context.Context, payoutID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a commission repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateBatch(ctx context.Context, commissions []*models.Commission) error {
	if len(commissions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(commissions).Error
}

func (r *repository) GetByOrderItemID(ctx context.Context, orderItemID uuid.UUID) (*models.Commission, error) {
	var commission models.Commission
	if err := r.db.WithContext(ctx).
		Where("order_item_id = ?", orderItemID).
		First(&commission).Error; err != nil {
		return nil, err
	}
	return &commission, nil
}

func (r *repository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.Commission, error) {
	var commissions []models.Commission
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&commissions).Error; err != nil {
		return nil, err
	}
	return commissions, nil
}

func (r *repository) ListByPayoutID(ctx context.Context, payoutID uuid.UUID) ([]models.Commission, error) {
	var commissions []models.Commission
	if err := r.db.WithContext(ctx).
		Where("payout_id = ?", payoutID).
		Order("created_at ASC").
		Find(&commissions).Error; err != nil {
		return nil, err
	}
	return commissions, nil
}

func (r *repository) ConfirmByOrderID(ctx context.Context, orderID uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Commission{}).
		Where("order_id = ? AND status = ?", orderID, enums.CommissionStatusPending).
		Updates(map[string]any{
			"status":       enums.CommissionStatusConfirmed,
			"confirmed_at": at,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) ReverseByOrderID(ctx context.Context, orderID uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Commission{}).
		Where("order_id = ? AND status IN ?", orderID, []enums.CommissionStatus{
			enums.CommissionStatusPending,
			enums.CommissionStatusConfirmed,
		}).
		Where("payout_id IS NULL").
		Updates(map[string]any{
			"status":      enums.CommissionStatusReversed,
			"reversed_at": at,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) ReverseByOrderItemID(ctx context.Context, orderItemID uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Commission{}).
		Where("order_item_id = ? AND status IN ?", orderItemID, []enums.CommissionStatus{
			enums.CommissionStatusPending,
			enums.CommissionStatusConfirmed,
		}).
		Where("payout_id IS NULL").
		Updates(map[string]any{
			"status":      enums.CommissionStatusReversed,
			"reversed_at": at,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) SetWithheldByOrderID(ctx context.Context, orderID uuid.UUID, withheld bool, reason *string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Commission{}).
		Where("order_id = ? AND status IN ?", orderID, []enums.CommissionStatus{
			enums.CommissionStatusPending,
			enums.CommissionStatusConfirmed,
		}).
		Updates(map[string]any{
			"withheld":        withheld,
			"withheld_reason": reason,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) VendorBalance(ctx context.Context, vendorID uuid.UUID, availableCutoff time.Time) (*Balance, error) {
	var row struct {
		PendingCents   int
		AvailableCents int
		WithheldCents  int
	}
	err := r.db.WithContext(ctx).
		Model(&models.Commission{}).
		Select(`
			COALESCE(SUM(CASE WHEN withheld = ? AND payout_id IS NULL AND (status = ? OR (status = ? AND confirmed_at > ?)) THEN vendor_amount_cents ELSE 0 END), 0) AS pending_cents,
			COALESCE(SUM(CASE WHEN withheld = ? AND payout_id IS NULL AND status = ? AND confirmed_at <= ? THEN vendor_amount_cents ELSE 0 END), 0) AS available_cents,
			COALESCE(SUM(CASE WHEN withheld = ? THEN vendor_amount_cents ELSE 0 END), 0) AS withheld_cents`,
			false, enums.CommissionStatusPending, enums.CommissionStatusConfirmed, availableCutoff,
			false, enums.CommissionStatusConfirmed, availableCutoff,
			true,
		).
		Where("vendor_id = ?", vendorID).
		Where("status IN ?", []enums.CommissionStatus{
			enums.CommissionStatusPending,
			enums.CommissionStatusConfirmed,
		}).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &Balance{
		VendorID:       vendorID,
		PendingCents:   row.PendingCents,
		AvailableCents: row.AvailableCents,
		WithheldCents:  row.WithheldCents,
		TotalCents:     row.PendingCents + row.AvailableCents + row.WithheldCents,
	}, nil
}

// ListAvailableForUpdate locks the vendor's payable commission rows oldest
// first so a payout claim cannot race a concurrent request for the same rows.
func (r *repository) ListAvailableForUpdate(ctx context.Context, vendorID uuid.UUID, availableCutoff time.Time) ([]models.Commission, error) {
	var commissions []models.Commission
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("vendor_id = ? AND status = ? AND withheld = ? AND payout_id IS NULL AND confirmed_at <= ?",
			vendorID, enums.CommissionStatusConfirmed, false, availableCutoff).
		Order("confirmed_at ASC").
		Order("id ASC").
		Find(&commissions).Error
	if err != nil {
		return nil, err
	}
	return commissions, nil
}

// AssignPayout claims rows for a payout. The guard clauses make the update a
// no-op for rows another payout claimed in between, so callers must compare
// RowsAffected against the expected count.
func (r *repository) AssignPayout(ctx context.Context, commissionIDs []uuid.UUID, payoutID uuid.UUID) (int64, error) {
	if len(commissionIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Commission{}).
		Where("id IN ? AND status = ? AND payout_id IS NULL", commissionIDs, enums.CommissionStatusConfirmed).
		Update("payout_id", payoutID)
	return result.RowsAffected, result.Error
}

func (r *repository) MarkPaidByPayoutID(ctx context.Context, payoutID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Commission{}).
		Where("payout_id = ? AND status = ?", payoutID, enums.CommissionStatusConfirmed).
		Update("status", enums.CommissionStatusPaid)
	return result.RowsAffected, result.Error
}

func (r *repository) ReleaseByPayoutID(ctx context.Context, payoutID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Commission{}).
		Where("payout_id = ? AND status = ?", payoutID, enums.CommissionStatusConfirmed).
		Update("payout_id", nil)
	return result.RowsAffected, result.Error
}
