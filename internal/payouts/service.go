package payouts

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercaline/marketplace-backend/pkg/clock"
	"github.com/mercaline/marketplace-backend/pkg/config"
	"github.com/mercaline/marketplace-backend/pkg/db"
	"github.com/mercaline/marketplace-backend/pkg/db/models"
	"github.com/mercaline/marketplace-backend/pkg/enums"
	pkgerrors "github.com/mercaline/marketplace-backend/pkg/errors"
	"github.com/mercaline/marketplace-backend/pkg/logger"
	"github.com/mercaline/marketplace-backend/pkg/outbox"
	"github.com/mercaline/marketplace-backend/pkg/pagination"
)

// Service defines the payout lifecycle operations.
type Service interface {
	Request(ctx context.Context, input RequestInput) (*models.Payout, error)
	Approve(ctx context.Context, input ApproveInput) (*models.Payout, error)
	Reject(ctx context.Context, input RejectInput) (*models.Payout, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Payout, error)
	Get(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error)
	List(ctx context.Context, params pagination.Params, filters PayoutFilters) (*PayoutList, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	ledger   CommissionLedger
	profiles VendorProfiles
	notifier Notifier
	outbox   outboxPublisher
	cfg      config.MarketplaceConfig
	clk      clock.Clock
	logg     *logger.Logger
}

// NewService wires the payout engine with its collaborators.
func NewService(
	repo Repository,
	tx txRunner,
	ledger CommissionLedger,
	profiles VendorProfiles,
	notifier Notifier,
	outboxSvc outboxPublisher,
	cfg config.MarketplaceConfig,
	clk clock.Clock,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("commission ledger required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("vendor profiles required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if clk == nil {
		clk = clock.System()
	}
	return &service{
		repo:     repo,
		tx:       tx,
		ledger:   ledger,
		profiles: profiles,
		notifier: notifier,
		outbox:   outboxSvc,
		cfg:      cfg,
		clk:      clk,
		logg:     logg,
	}, nil
}

// ProcessingFeeCents computes the flat plus proportional fee for a payout of
// the given size. The proportional part rounds up.
func ProcessingFeeCents(amountCents int, cfg config.MarketplaceConfig) int {
	return cfg.PayoutFeeFlatCents + (amountCents*cfg.PayoutFeeBps+9999)/10000
}

// errClaimLost signals that another transaction claimed one of the selected
// commission rows between the read and the assignment.
var errClaimLost = stdErrors.New("payout claim lost")

func (s *service) Request(ctx context.Context, input RequestInput) (*models.Payout, error) {
	if err := validateActor(input.Actor); err != nil {
		return nil, err
	}
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	if input.Actor.Role == enums.ActorRoleVendor && input.Actor.UserID != input.VendorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendors can only request their own payouts")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.AmountCents < s.cfg.MinPayoutCents {
		return nil, pkgerrors.New(pkgerrors.CodeBelowMinimum, "requested amount is below the minimum payout").
			WithDetails(map[string]any{"minimum_cents": s.cfg.MinPayoutCents})
	}

	profile, err := s.profiles.GetByUserID(ctx, input.VendorID)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeMissingPayoutDetails, "vendor has no payout settings")
		}
		return nil, err
	}
	if !profile.HasPayoutDetails() {
		return nil, pkgerrors.New(pkgerrors.CodeMissingPayoutDetails, "payout method and details must be configured")
	}
	if profile.UnderReview {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientBalance, "balance is withheld while the account is under review")
	}

	retries := s.cfg.PayoutClaimRetries
	if retries < 1 {
		retries = 1
	}
	var payout *models.Payout
	for attempt := 1; attempt <= retries; attempt++ {
		payout, err = s.claimAndCreate(ctx, input, profile)
		if err == nil {
			break
		}
		if stdErrors.Is(err, errClaimLost) || db.IsLockConflict(err) {
			if s.logg != nil {
				logCtx := s.logg.WithFields(ctx, map[string]any{
					"vendor_id": input.VendorID.String(),
					"attempt":   attempt,
				})
				s.logg.Warn(logCtx, "payout claim contention, retrying")
			}
			continue
		}
		return nil, err
	}
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "could not claim commissions for payout").
			WithDetails(map[string]any{"vendor_id": input.VendorID.String()})
	}

	s.notifier.Notify(ctx, input.VendorID, enums.NotificationTypePayoutRequested, map[string]any{
		"payout_id":     payout.ID.String(),
		"payout_number": payout.PayoutNumber,
		"amount_cents":  payout.AmountCents,
	})
	return payout, nil
}

// claimAndCreate runs one attempt at claiming matured commissions and writing
// the payout row. Rows are taken oldest first until they cover the requested
// amount; rows are never split, so the payout total can exceed the request by
// at most one commission.
func (s *service) claimAndCreate(ctx context.Context, input RequestInput, profile *models.VendorProfile) (*models.Payout, error) {
	now := s.clk.Now()
	var payout *models.Payout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		available, err := s.ledger.AvailableForPayout(ctx, tx, input.VendorID)
		if err != nil {
			return err
		}

		totalAvailable := 0
		for _, row := range available {
			totalAvailable += row.VendorAmountCents
		}
		if totalAvailable < input.AmountCents {
			return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "available balance does not cover the requested amount").
				WithDetails(map[string]any{
					"available_cents": totalAvailable,
					"requested_cents": input.AmountCents,
				})
		}

		claimed := make([]models.Commission, 0, len(available))
		claimedCents := 0
		for _, row := range available {
			claimed = append(claimed, row)
			claimedCents += row.VendorAmountCents
			if claimedCents >= input.AmountCents {
				break
			}
		}

		fee := ProcessingFeeCents(claimedCents, s.cfg)
		net := claimedCents - fee
		if net <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "processing fee exceeds the payout amount").
				WithDetails(map[string]any{"fee_cents": fee})
		}

		periodStart := claimed[0].ConfirmedAt
		periodEnd := claimed[len(claimed)-1].ConfirmedAt
		row := &models.Payout{
			ID:                 uuid.New(),
			PayoutNumber:       newPayoutNumber(now),
			VendorID:           input.VendorID,
			AmountCents:        claimedCents,
			ProcessingFeeCents: fee,
			NetAmountCents:     net,
			Status:             enums.PayoutStatusPending,
			Method:             *profile.PayoutMethod,
			Details:            profile.PayoutDetails,
			PeriodStart:        periodStart,
			PeriodEnd:          periodEnd,
			ItemsCount:         len(claimed),
		}
		if _, err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout")
		}

		ids := make([]uuid.UUID, 0, len(claimed))
		for _, c := range claimed {
			ids = append(ids, c.ID)
		}
		affected, err := s.ledger.AssignToPayout(ctx, tx, ids, row.ID)
		if err != nil {
			return err
		}
		if affected != int64(len(ids)) {
			return errClaimLost
		}

		payout = row
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutRequested,
			AggregateType: enums.AggregatePayout,
			AggregateID:   row.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: PayoutEvent{
				PayoutID:     row.ID,
				PayoutNumber: row.PayoutNumber,
				VendorID:     row.VendorID,
				AmountCents:  row.AmountCents,
				NetCents:     row.NetAmountCents,
				Status:       row.Status,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return payout, nil
}

func (s *service) Approve(ctx context.Context, input ApproveInput) (*models.Payout, error) {
	if err := validateActor(input.Actor); err != nil {
		return nil, err
	}
	if input.Actor.Role != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can approve payouts")
	}
	if strings.TrimSpace(input.TransactionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}

	now := s.clk.Now()
	var approved *models.Payout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payout, err := s.lockPayout(ctx, repo, input.PayoutID)
		if err != nil {
			return err
		}
		if payout.Status != enums.PayoutStatusPending {
			return pkgerrors.InvalidTransition(payout.Status, "approve")
		}

		updates := map[string]any{
			"transaction_id":       input.TransactionID,
			"processed_at":         now,
			"processed_by_user_id": input.Actor.UserID,
		}
		if input.Notes != nil {
			updates["notes"] = *input.Notes
		}
		affected, err := repo.UpdateStatus(ctx, payout.ID, enums.PayoutStatusPending, enums.PayoutStatusCompleted, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete payout")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "payout was modified concurrently")
		}

		if err := s.ledger.MarkPaidForPayout(ctx, tx, payout.ID); err != nil {
			return err
		}

		payout.Status = enums.PayoutStatusCompleted
		payout.TransactionID = &input.TransactionID
		payout.ProcessedAt = &now
		payout.ProcessedByUserID = &input.Actor.UserID
		approved = payout
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutCompleted,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payout.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: PayoutEvent{
				PayoutID:     payout.ID,
				PayoutNumber: payout.PayoutNumber,
				VendorID:     payout.VendorID,
				AmountCents:  payout.AmountCents,
				NetCents:     payout.NetAmountCents,
				Status:       payout.Status,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, approved.VendorID, enums.NotificationTypePayoutCompleted, map[string]any{
		"payout_id":     approved.ID.String(),
		"payout_number": approved.PayoutNumber,
		"net_cents":     approved.NetAmountCents,
	})
	return approved, nil
}

func (s *service) Reject(ctx context.Context, input RejectInput) (*models.Payout, error) {
	if err := validateActor(input.Actor); err != nil {
		return nil, err
	}
	if input.Actor.Role != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can reject payouts")
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason is required")
	}
	return s.release(ctx, input.PayoutID, enums.PayoutStatusFailed, input.Reason, input.Actor)
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Payout, error) {
	if err := validateActor(input.Actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason is required")
	}

	payout, err := s.Get(ctx, input.PayoutID)
	if err != nil {
		return nil, err
	}
	isOwner := input.Actor.Role == enums.ActorRoleVendor && input.Actor.UserID == payout.VendorID
	if !isOwner && input.Actor.Role != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payout can only be cancelled by its vendor or an admin")
	}
	return s.release(ctx, input.PayoutID, enums.PayoutStatusCancelled, input.Reason, input.Actor)
}

// release moves a pending payout to a terminal non-paid state and returns its
// claimed commissions to the vendor's available balance.
func (s *service) release(ctx context.Context, payoutID uuid.UUID, to enums.PayoutStatus, reason string, actor Actor) (*models.Payout, error) {
	now := s.clk.Now()
	var released *models.Payout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payout, err := s.lockPayout(ctx, repo, payoutID)
		if err != nil {
			return err
		}
		if payout.Status != enums.PayoutStatusPending {
			return pkgerrors.InvalidTransition(payout.Status, strings.ToLower(string(to)))
		}

		updates := map[string]any{
			"cancellation_reason":  reason,
			"processed_at":         now,
			"processed_by_user_id": actor.UserID,
		}
		affected, err := repo.UpdateStatus(ctx, payout.ID, enums.PayoutStatusPending, to, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release payout")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "payout was modified concurrently")
		}

		if err := s.ledger.ReleaseForPayout(ctx, tx, payout.ID); err != nil {
			return err
		}

		payout.Status = to
		payout.CancellationReason = &reason
		payout.ProcessedAt = &now
		released = payout
		eventReason := reason
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutReleased,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payout.ID,
			Version:       1,
			Actor:         buildActor(actor),
			Data: PayoutEvent{
				PayoutID:     payout.ID,
				PayoutNumber: payout.PayoutNumber,
				VendorID:     payout.VendorID,
				AmountCents:  payout.AmountCents,
				NetCents:     payout.NetAmountCents,
				Status:       payout.Status,
				Reason:       &eventReason,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, released.VendorID, enums.NotificationTypePayoutReleased, map[string]any{
		"payout_id":     released.ID.String(),
		"payout_number": released.PayoutNumber,
		"status":        string(released.Status),
		"reason":        reason,
	})
	return released, nil
}

func (s *service) Get(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error) {
	if payoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id is required")
	}
	payout, err := s.repo.FindByID(ctx, payoutID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
	}
	return payout, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters PayoutFilters) (*PayoutList, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payouts")
	}
	return list, nil
}

func (s *service) lockPayout(ctx context.Context, repo Repository, payoutID uuid.UUID) (*models.Payout, error) {
	if payoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id is required")
	}
	payout, err := repo.FindByIDForUpdate(ctx, payoutID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
	}
	return payout, nil
}

func validateActor(actor Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !actor.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor role missing")
	}
	return nil
}

func buildActor(actor Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role}
}

func newPayoutNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:8]
	return fmt.Sprintf("PO-%s-%s", now.Format("20060102"), suffix)
}
