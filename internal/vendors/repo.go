package vendors

import (
	"context"
	"encoding/json"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercaline/marketplace-backend/pkg/db/models"
	"github.com/mercaline/marketplace-backend/pkg/enums"
	"github.com/mercaline/marketplace-backend/pkg/errors"
)

// Repository manages persistence for vendor profiles.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, profile *models.VendorProfile) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.VendorProfile, error)
	UpdatePayoutSettings(ctx context.Context, userID uuid.UUID, method enums.PayoutMethod, details json.RawMessage) error
	SetUnderReview(ctx context.Context, userID uuid.UUID, underReview bool) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a vendor profile repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, profile *models.VendorProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *repository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.VendorProfile, error) {
	var profile models.VendorProfile
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&profile).Error; err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "vendor profile not found")
		}
		return nil, err
	}
	return &profile, nil
}

func (r *repository) UpdatePayoutSettings(ctx context.Context, userID uuid.UUID, method enums.PayoutMethod, details json.RawMessage) error {
	result := r.db.WithContext(ctx).
		Model(&models.VendorProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"payout_method":  method,
			"payout_details": details,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.CodeNotFound, "vendor profile not found")
	}
	return nil
}

func (r *repository) SetUnderReview(ctx context.Context, userID uuid.UUID, underReview bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.VendorProfile{}).
		Where("user_id = ?", userID).
		Update("under_review", underReview)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.CodeNotFound, "vendor profile not found")
	}
	return nil
}
