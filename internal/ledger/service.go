package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercaline/marketplace-backend/pkg/clock"
	"github.com/mercaline/marketplace-backend/pkg/config"
	"github.com/mercaline/marketplace-backend/pkg/db/models"
	"github.com/mercaline/marketplace-backend/pkg/enums"
	"github.com/mercaline/marketplace-backend/pkg/errors"
	"github.com/mercaline/marketplace-backend/pkg/logger"
)

// VendorProfiles resolves vendor payout settings and rate overrides.
type VendorProfiles interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.VendorProfile, error)
}

// Service defines the commission ledger operations.
type Service interface {
	CreateForOrderItems(ctx context.Context, tx *gorm.DB, order *models.Order, items []models.OrderItem) ([]*models.Commission, error)
	ConfirmForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	ReverseForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	ReverseForOrderItem(ctx context.Context, tx *gorm.DB, orderItemID uuid.UUID) error
	WithholdForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) error
	ReleaseWithholdingForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	VendorBalance(ctx context.Context, vendorID uuid.UUID) (*Balance, error)
	ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.Commission, error)
	AvailableForPayout(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) ([]models.Commission, error)
	AssignToPayout(ctx context.Context, tx *gorm.DB, commissionIDs []uuid.UUID, payoutID uuid.UUID) (int64, error)
	MarkPaidForPayout(ctx context.Context, tx *gorm.DB, payoutID uuid.UUID) error
	ReleaseForPayout(ctx context.Context, tx *gorm.DB, payoutID uuid.UUID) error
}

type service struct {
	repo     Repository
	profiles VendorProfiles
	cfg      config.MarketplaceConfig
	clk      clock.Clock
	logg     *logger.Logger
}

// NewService wires the commission ledger with its repository and collaborators.
func NewService(repo Repository, profiles VendorProfiles, cfg config.MarketplaceConfig, clk clock.Clock, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("vendor profiles required")
	}
	if clk == nil {
		clk = clock.System()
	}
	return &service{repo: repo, profiles: profiles, cfg: cfg, clk: clk, logg: logg}, nil
}

// SplitCents divides an item total between vendor and platform at the given
// rate in basis points. The platform share rounds up, so the two parts always
// sum exactly to the total and the remainder cent goes to the platform.
func SplitCents(totalCents, rateBps int) (vendorCents, platformCents int) {
	platformCents = (totalCents*rateBps + 9999) / 10000
	vendorCents = totalCents - platformCents
	return vendorCents, platformCents
}

func (s *service) CreateForOrderItems(ctx context.Context, tx *gorm.DB, order *models.Order, items []models.OrderItem) ([]*models.Commission, error) {
	if order == nil {
		return nil, errors.New(errors.CodeValidation, "order is required")
	}
	if len(items) == 0 {
		return nil, errors.New(errors.CodeValidation, "order has no items")
	}

	repo := s.repo.WithTx(tx)
	rates := map[uuid.UUID]int{}
	commissions := make([]*models.Commission, 0, len(items))
	for i := range items {
		item := items[i]
		if item.TotalCents < 0 {
			return nil, errors.New(errors.CodeValidation, "item total must not be negative")
		}
		rate, ok := rates[item.VendorID]
		if !ok {
			resolved, err := s.rateFor(ctx, item.VendorID)
			if err != nil {
				return nil, err
			}
			rates[item.VendorID] = resolved
			rate = resolved
		}
		vendorCents, platformCents := SplitCents(item.TotalCents, rate)
		commissions = append(commissions, &models.Commission{
			OrderItemID:         item.ID,
			OrderID:             order.ID,
			VendorID:            item.VendorID,
			RateBps:             rate,
			VendorAmountCents:   vendorCents,
			PlatformAmountCents: platformCents,
			Status:              enums.CommissionStatusPending,
		})
	}

	if err := repo.CreateBatch(ctx, commissions); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "creating commissions")
	}
	return commissions, nil
}

func (s *service) rateFor(ctx context.Context, vendorID uuid.UUID) (int, error) {
	profile, err := s.profiles.GetByUserID(ctx, vendorID)
	if err != nil {
		if errors.HasCode(err, errors.CodeNotFound) {
			return s.cfg.DefaultCommissionBps, nil
		}
		return 0, err
	}
	if profile != nil && profile.CommissionRateBps != nil {
		rate := *profile.CommissionRateBps
		if rate < 0 || rate > 10000 {
			return 0, errors.New(errors.CodeValidation, "vendor commission rate out of range")
		}
		return rate, nil
	}
	return s.cfg.DefaultCommissionBps, nil
}

func (s *service) ConfirmForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return errors.New(errors.CodeValidation, "order id is required")
	}
	_, err := s.repo.WithTx(tx).ConfirmByOrderID(ctx, orderID, s.clk.Now())
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "confirming commissions")
	}
	return nil
}

func (s *service) ReverseForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return errors.New(errors.CodeValidation, "order id is required")
	}
	_, err := s.repo.WithTx(tx).ReverseByOrderID(ctx, orderID, s.clk.Now())
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "reversing commissions")
	}
	return nil
}

func (s *service) ReverseForOrderItem(ctx context.Context, tx *gorm.DB, orderItemID uuid.UUID) error {
	if orderItemID == uuid.Nil {
		return errors.New(errors.CodeValidation, "order item id is required")
	}
	_, err := s.repo.WithTx(tx).ReverseByOrderItemID(ctx, orderItemID, s.clk.Now())
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "reversing item commission")
	}
	return nil
}

func (s *service) WithholdForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) error {
	if orderID == uuid.Nil {
		return errors.New(errors.CodeValidation, "order id is required")
	}
	_, err := s.repo.WithTx(tx).SetWithheldByOrderID(ctx, orderID, true, &reason)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "withholding commissions")
	}
	return nil
}

func (s *service) ReleaseWithholdingForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return errors.New(errors.CodeValidation, "order id is required")
	}
	_, err := s.repo.WithTx(tx).SetWithheldByOrderID(ctx, orderID, false, nil)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "releasing withheld commissions")
	}
	return nil
}

func (s *service) VendorBalance(ctx context.Context, vendorID uuid.UUID) (*Balance, error) {
	if vendorID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "vendor id is required")
	}

	cutoff := s.clk.Now().Add(-s.cfg.HoldingPeriod())
	balance, err := s.repo.VendorBalance(ctx, vendorID, cutoff)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "computing vendor balance")
	}

	// A vendor under review has every cent withheld regardless of maturity.
	profile, err := s.profiles.GetByUserID(ctx, vendorID)
	if err != nil && !errors.HasCode(err, errors.CodeNotFound) {
		return nil, err
	}
	if profile != nil && profile.UnderReview {
		balance.WithheldCents += balance.PendingCents + balance.AvailableCents
		balance.PendingCents = 0
		balance.AvailableCents = 0
	}
	return balance, nil
}

func (s *service) ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.Commission, error) {
	if orderID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "order id is required")
	}
	return s.repo.ListByOrderID(ctx, orderID)
}

// AvailableForPayout locks and returns the vendor's matured commissions,
// oldest first, so a payout claim can pick from them inside the transaction.
func (s *service) AvailableForPayout(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) ([]models.Commission, error) {
	if vendorID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "vendor id is required")
	}
	cutoff := s.clk.Now().Add(-s.cfg.HoldingPeriod())
	rows, err := s.repo.WithTx(tx).ListAvailableForUpdate(ctx, vendorID, cutoff)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing available commissions")
	}
	return rows, nil
}

func (s *service) AssignToPayout(ctx context.Context, tx *gorm.DB, commissionIDs []uuid.UUID, payoutID uuid.UUID) (int64, error) {
	if len(commissionIDs) == 0 {
		return 0, errors.New(errors.CodeValidation, "commission ids are required")
	}
	if payoutID == uuid.Nil {
		return 0, errors.New(errors.CodeValidation, "payout id is required")
	}
	affected, err := s.repo.WithTx(tx).AssignPayout(ctx, commissionIDs, payoutID)
	if err != nil {
		return 0, errors.Wrap(errors.CodeInternal, err, "assigning commissions to payout")
	}
	return affected, nil
}

func (s *service) MarkPaidForPayout(ctx context.Context, tx *gorm.DB, payoutID uuid.UUID) error {
	if payoutID == uuid.Nil {
		return errors.New(errors.CodeValidation, "payout id is required")
	}
	if _, err := s.repo.WithTx(tx).MarkPaidByPayoutID(ctx, payoutID); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "marking commissions paid")
	}
	return nil
}

func (s *service) ReleaseForPayout(ctx context.Context, tx *gorm.DB, payoutID uuid.UUID) error {
	if payoutID == uuid.Nil {
		return errors.New(errors.CodeValidation, "payout id is required")
	}
	if _, err := s.repo.WithTx(tx).ReleaseByPayoutID(ctx, payoutID); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "releasing claimed commissions")
	}
	return nil
}
