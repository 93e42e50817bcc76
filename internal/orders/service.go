package orders

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercaline/marketplace-backend/pkg/clock"
	"github.com/mercaline/marketplace-backend/pkg/config"
	"github.com/mercaline/marketplace-backend/pkg/db/models"
	"github.com/mercaline/marketplace-backend/pkg/enums"
	pkgerrors "github.com/mercaline/marketplace-backend/pkg/errors"
	"github.com/mercaline/marketplace-backend/pkg/logger"
	"github.com/mercaline/marketplace-backend/pkg/outbox"
	"github.com/mercaline/marketplace-backend/pkg/pagination"
)

// Service defines the order state machine's operations.
type Service interface {
	Confirm(ctx context.Context, input ConfirmInput) (*models.Order, error)
	StartProcessing(ctx context.Context, input StartProcessingInput) (*models.Order, error)
	MarkOutForDelivery(ctx context.Context, input MarkOutForDeliveryInput) (*models.Order, error)
	ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (*models.Order, error)
	HandleDeliveryFailure(ctx context.Context, input DeliveryFailureInput) (*models.Order, error)
	VerifyCODCollection(ctx context.Context, input VerifyCODInput) (*models.Order, error)
	Complete(ctx context.Context, input CompleteInput) (*models.Order, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
	UpdateItemStatus(ctx context.Context, input UpdateItemStatusInput) (*models.OrderItem, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error)
	Timeline(ctx context.Context, orderID uuid.UUID) ([]models.OrderTimelineEntry, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	ledger   LedgerHooks
	users    UserDirectory
	notifier Notifier
	outbox   outboxPublisher
	cfg      config.MarketplaceConfig
	clk      clock.Clock
	logg     *logger.Logger
}

// NewService builds the order service with the required collaborators.
func NewService(
	repo Repository,
	tx txRunner,
	ledger LedgerHooks,
	users UserDirectory,
	notifier Notifier,
	outboxSvc outboxPublisher,
	cfg config.MarketplaceConfig,
	clk clock.Clock,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger hooks required")
	}
	if users == nil {
		return nil, fmt.Errorf("user directory required")
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
		users:    users,
		notifier: notifier,
		outbox:   outboxSvc,
		cfg:      cfg,
		clk:      clk,
		logg:     logg,
	}, nil
}

func (s *service) Confirm(ctx context.Context, input ConfirmInput) (*models.Order, error) {
	if err := validateActor(input.Actor); err != nil {
		return nil, err
	}

	var confirmed *models.Order
	var vendorIDs []uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if !CanTransition(order.Status, enums.OrderStatusConfirmed) {
			return pkgerrors.InvalidTransition(order.Status, "confirm")
		}

		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status": enums.OrderStatusConfirmed,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = enums.OrderStatusConfirmed

		// Commission rows become determinable at confirmation time.
		if _, err := s.ledger.CreateForOrderItems(ctx, tx, order, order.Items); err != nil {
			return err
		}

		if err := s.appendTimeline(ctx, repo, order.ID, enums.TimelineActionConfirmed, input.Actor, input.Comment, nil); err != nil {
			return err
		}

		vendorIDs = vendorSet(order.Items)
		confirmed = order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderConfirmed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: OrderStatusEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CustomerID:  order.CustomerID,
				Status:      order.Status,
				VendorIDs:   vendorIDs,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	for _, vendorID := range vendorIDs {
		s.notifier.Notify(ctx, vendorID, enums.NotificationTypeOrderConfirmed, map[string]any{
			"order_id":     confirmed.ID.String(),
			"order_number": confirmed.OrderNumber,
		})
	}
	return confirmed, nil
}

func (s *service) StartProcessing(ctx context.Context, input StartProcessingInput) (*models.Order, error) {
	if err := validateActor(input.Actor); err != nil {
		return nil, err
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if !CanTransition(order.Status, enums.OrderStatusProcessing) {
			return pkgerrors.InvalidTransition(order.Status, "start_processing")
		}

		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status": enums.OrderStatusProcessing,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = enums.OrderStatusProcessing
		updated = order
		return s.appendTimeline(ctx, repo, order.ID, enums.TimelineActionProcessing, input.Actor, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) MarkOutForDelivery(ctx context.Context, input MarkOutForDeliveryInput) (*models.Order, error) {
	if err := validateActor(input.Actor); err != nil {
		return nil, err
	}
	if input.DeliveryPersonID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery person is required")
	}

	person, err := s.users.GetByID(ctx, input.DeliveryPersonID)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery person not found")
		}
		return nil, err
	}
	if !person.Active || person.Role != enums.ActorRoleDelivery {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery person must be an active delivery user")
	}

	var updated *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if !CanTransition(order.Status, enums.OrderStatusOutForDelivery) {
			return pkgerrors.InvalidTransition(order.Status, "mark_out_for_delivery")
		}

		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":             enums.OrderStatusOutForDelivery,
			"delivery_person_id": input.DeliveryPersonID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = enums.OrderStatusOutForDelivery
		order.DeliveryPersonID = &input.DeliveryPersonID
		updated = order

		metadata := mustJSON(map[string]any{"delivery_person_id": input.DeliveryPersonID.String()})
		return s.appendTimeline(ctx, repo, order.ID, enums.TimelineActionOutForDelivery, input.Actor, nil, metadata)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (*models.Order, error) {
	if err := validateActor(input.Actor); err != nil {
		return nil, err
	}

	now := s.clk.Now()
	var delivered *models.Order
	var mismatch bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if !CanTransition(order.Status, enums.OrderStatusDelivered) {
			return pkgerrors.InvalidTransition(order.Status, "confirm_delivery")
		}
		if order.DeliveryPersonID == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no delivery person assigned")
		}

		updates := map[string]any{
			"status":       enums.OrderStatusDelivered,
			"delivered_at": now,
		}

		if order.IsCOD() {
			if input.AmountCollectedCents == nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "collected amount is required for cod orders")
			}
			collected := *input.AmountCollectedCents
			if collected < 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "collected amount must not be negative")
			}
			updates["cod_amount_collected_cents"] = collected
			updates["cod_collected_at"] = now
			updates["payment_status"] = enums.PaymentStatusPaid
			if input.CollectedByUserID != nil {
				updates["cod_collector_id"] = *input.CollectedByUserID
			} else {
				updates["cod_collector_id"] = *order.DeliveryPersonID
			}

			// Delivery already happened; a mismatch flags the order for
			// reconciliation instead of failing.
			diff := collected - order.TotalCents
			if diff < 0 {
				diff = -diff
			}
			if diff > s.cfg.CODMismatchToleranceCent {
				mismatch = true
				updates["cod_verification_required"] = true
			}
		}

		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = enums.OrderStatusDelivered
		order.DeliveredAt = &now
		order.CODVerificationRequired = order.CODVerificationRequired || mismatch

		// Order-level delivery implies every outstanding item is delivered.
		if _, err := repo.CascadeItemStatus(ctx, order.ID, []enums.OrderItemStatus{
			enums.OrderItemStatusPending,
			enums.OrderItemStatusProcessing,
			enums.OrderItemStatusShipped,
		}, enums.OrderItemStatusDelivered, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cascade item delivery")
		}

		// Delivery starts the holding clock on the order's commissions.
		if err := s.ledger.ConfirmForOrder(ctx, tx, order.ID); err != nil {
			return err
		}
		if mismatch {
			if err := s.ledger.WithholdForOrder(ctx, tx, order.ID, "cod verification pending"); err != nil {
				return err
			}
			expected := order.TotalCents
			metadata := mustJSON(map[string]any{
				"expected_cents":  expected,
				"collected_cents": *input.AmountCollectedCents,
			})
			if err := s.appendTimeline(ctx, repo, order.ID, enums.TimelineActionCODFlagged, input.Actor, nil, metadata); err != nil {
				return err
			}
		}

		if err := s.appendTimeline(ctx, repo, order.ID, enums.TimelineActionDelivered, input.Actor, nil, nil); err != nil {
			return err
		}

		delivered = order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDelivered,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: OrderStatusEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CustomerID:  order.CustomerID,
				Status:      order.Status,
				VendorIDs:   vendorSet(order.Items),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, delivered.CustomerID, enums.NotificationTypeOrderDelivered, map[string]any{
		"order_id":     delivered.ID.String(),
		"order_number": delivered.OrderNumber,
	})
	return delivered, nil
}

func (s *service) HandleDeliveryFailure(ctx context.Context, input DeliveryFailureInput) (*models.Order, error) {
	if err := validateActor(input.Actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "failure reason is required")
	}

	var updated *models.Order
	var terminal bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusOutForDelivery {
			return pkgerrors.InvalidTransition(order.Status, "handle_delivery_failure")
		}

		attempt := order.DeliveryAttempts + 1
		updates := map[string]any{"delivery_attempts": attempt}
		action := enums.TimelineActionDeliveryFailed
		if attempt >= s.cfg.MaxDeliveryAttempts {
			terminal = true
			updates["status"] = enums.OrderStatusFailed
			action = enums.TimelineActionFailed
		}

		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update delivery attempts")
		}
		order.DeliveryAttempts = attempt
		if terminal {
			order.Status = enums.OrderStatusFailed
		}
		updated = order

		metadata := mustJSON(map[string]any{
			"attempt":    attempt,
			"reschedule": input.Reschedule,
		})
		reason := input.Reason
		if err := s.appendTimeline(ctx, repo, order.ID, action, input.Actor, &reason, metadata); err != nil {
			return err
		}

		if !terminal {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: OrderStatusEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CustomerID:  order.CustomerID,
				Status:      order.Status,
				Reason:      &reason,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if terminal {
		s.notifier.Notify(ctx, updated.CustomerID, enums.NotificationTypeDeliveryFailed, map[string]any{
			"order_id":     updated.ID.String(),
			"order_number": updated.OrderNumber,
			"reason":       input.Reason,
		})
	}
	return updated, nil
}

// VerifyCODCollection closes out a flagged cash collection once an admin has
// reconciled it: the verification flag is cleared and the order's withheld
// commissions rejoin the normal balance buckets, so Complete becomes reachable
// again.
func (s *service) VerifyCODCollection(ctx context.Context, input VerifyCODInput) (*models.Order, error) {
	if err := validateActor(input.Actor); err != nil {
		return nil, err
	}
	if input.Actor.Role != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can verify cod collections")
	}

	var verified *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if !order.CODVerificationRequired {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no cod verification pending")
		}

		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"cod_verification_required": false,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cod verification flag")
		}
		order.CODVerificationRequired = false

		if err := s.ledger.ReleaseWithholdingForOrder(ctx, tx, order.ID); err != nil {
			return err
		}

		metadata := map[string]any{"expected_cents": order.TotalCents}
		if order.CODAmountCollectedCents != nil {
			metadata["collected_cents"] = *order.CODAmountCollectedCents
		}
		if err := s.appendTimeline(ctx, repo, order.ID, enums.TimelineActionCODVerified, input.Actor, input.Note, mustJSON(metadata)); err != nil {
			return err
		}

		verified = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return verified, nil
}

func (s *service) Complete(ctx context.Context, input CompleteInput) (*models.Order, error) {
	if err := validateActor(input.Actor); err != nil {
		return nil, err
	}

	now := s.clk.Now()
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if !CanTransition(order.Status, enums.OrderStatusCompleted) {
			return pkgerrors.InvalidTransition(order.Status, "complete")
		}
		if order.CODVerificationRequired {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cod verification is still pending").
				WithDetails(map[string]any{"order_id": order.ID.String()})
		}
		if order.DeliveredAt == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no delivery timestamp")
		}
		releaseAt := order.DeliveredAt.Add(s.cfg.HoldingPeriod())
		if now.Before(releaseAt) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "holding period has not elapsed").
				WithDetails(map[string]any{
					"delivered_at": order.DeliveredAt,
					"release_at":   releaseAt,
				})
		}

		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":       enums.OrderStatusCompleted,
			"completed_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = enums.OrderStatusCompleted
		order.CompletedAt = &now
		updated = order
		return s.appendTimeline(ctx, repo, order.ID, enums.TimelineActionCompleted, input.Actor, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	if err := validateActor(input.Actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason is required")
	}

	now := s.clk.Now()
	var cancelled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if !CanTransition(order.Status, enums.OrderStatusCancelled) {
			return pkgerrors.InvalidTransition(order.Status, "cancel")
		}

		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":              enums.OrderStatusCancelled,
			"cancelled_at":        now,
			"cancellation_reason": input.Reason,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = enums.OrderStatusCancelled
		order.CancelledAt = &now

		if _, err := repo.CascadeItemStatus(ctx, order.ID, []enums.OrderItemStatus{
			enums.OrderItemStatusPending,
			enums.OrderItemStatusProcessing,
			enums.OrderItemStatusShipped,
		}, enums.OrderItemStatusCancelled, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order items")
		}

		// Cancellation releases the order's commissions from every balance.
		if err := s.ledger.ReverseForOrder(ctx, tx, order.ID); err != nil {
			return err
		}

		reason := input.Reason
		if err := s.appendTimeline(ctx, repo, order.ID, enums.TimelineActionCancelled, input.Actor, &reason, nil); err != nil {
			return err
		}

		cancelled = order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: OrderStatusEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CustomerID:  order.CustomerID,
				Status:      order.Status,
				VendorIDs:   vendorSet(order.Items),
				Reason:      &reason,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, cancelled.CustomerID, enums.NotificationTypeOrderCancelled, map[string]any{
		"order_id":     cancelled.ID.String(),
		"order_number": cancelled.OrderNumber,
		"reason":       input.Reason,
	})
	return cancelled, nil
}

func (s *service) UpdateItemStatus(ctx context.Context, input UpdateItemStatusInput) (*models.OrderItem, error) {
	if err := validateActor(input.Actor); err != nil {
		return nil, err
	}
	if input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid item status")
	}

	now := s.clk.Now()
	var updated *models.OrderItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.Status.IsTerminal() || order.Status == enums.OrderStatusFailed {
			return pkgerrors.InvalidTransition(order.Status, "update_item_status")
		}

		item, err := repo.FindItem(ctx, input.ItemID)
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order item")
		}
		if item.OrderID != order.ID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "item does not belong to order")
		}
		if !CanTransitionItem(item.VendorStatus, input.Status) {
			return pkgerrors.InvalidTransition(item.VendorStatus, string(input.Status))
		}

		updates := map[string]any{"vendor_status": input.Status}
		switch input.Status {
		case enums.OrderItemStatusShipped:
			if input.TrackingNumber != nil {
				updates["tracking_number"] = *input.TrackingNumber
			}
			if input.Carrier != nil {
				if !input.Carrier.IsValid() {
					return pkgerrors.New(pkgerrors.CodeValidation, "invalid carrier")
				}
				updates["carrier"] = *input.Carrier
			}
		case enums.OrderItemStatusDelivered:
			updates["delivered_at"] = now
		}

		affected, err := repo.UpdateItemVersioned(ctx, item.ID, input.Version, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item status")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "item was modified concurrently").
				WithDetails(map[string]any{"item_id": item.ID.String()})
		}

		if input.Status == enums.OrderItemStatusCancelled {
			if err := s.ledger.ReverseForOrderItem(ctx, tx, item.ID); err != nil {
				return err
			}
		}

		metadata := mustJSON(map[string]any{
			"item_id": item.ID.String(),
			"from":    item.VendorStatus,
			"to":      input.Status,
		})
		if err := s.appendTimeline(ctx, repo, order.ID, enums.TimelineActionItemStatusChange, input.Actor, nil, metadata); err != nil {
			return err
		}

		// Re-read siblings and recompute the order-level aggregate.
		items, err := repo.FindItemsByOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order items")
		}
		if err := s.applyAggregate(ctx, tx, repo, order, items, input.Actor); err != nil {
			return err
		}

		item.VendorStatus = input.Status
		item.Version++
		if input.Status == enums.OrderItemStatusDelivered {
			item.DeliveredAt = &now
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// applyAggregate upgrades the order-level status when the item floor outranks
// it, and cancels the order when every item has been cancelled.
func (s *service) applyAggregate(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, items []models.OrderItem, actor Actor) error {
	floor := AggregateItemStatus(items)

	switch floor {
	case enums.OrderStatusCancelled:
		if !CanTransition(order.Status, enums.OrderStatusCancelled) {
			return nil
		}
		now := s.clk.Now()
		reason := "all items cancelled"
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":              enums.OrderStatusCancelled,
			"cancelled_at":        now,
			"cancellation_reason": reason,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel aggregated order")
		}
		order.Status = enums.OrderStatusCancelled
		if err := s.ledger.ReverseForOrder(ctx, tx, order.ID); err != nil {
			return err
		}
		return s.appendTimeline(ctx, repo, order.ID, enums.TimelineActionCancelled, actor, &reason, nil)
	case enums.OrderStatusProcessing:
		if order.Status != enums.OrderStatusConfirmed {
			return nil
		}
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status": enums.OrderStatusProcessing,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upgrade aggregated order")
		}
		order.Status = enums.OrderStatusProcessing
		return s.appendTimeline(ctx, repo, order.ID, enums.TimelineActionProcessing, actor, nil, nil)
	default:
		return nil
	}
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) Timeline(ctx context.Context, orderID uuid.UUID) ([]models.OrderTimelineEntry, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	entries, err := s.repo.ListTimeline(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order timeline")
	}
	return entries, nil
}

func (s *service) lockOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := repo.FindByIDForUpdate(ctx, orderID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) appendTimeline(ctx context.Context, repo Repository, orderID uuid.UUID, action enums.TimelineAction, actor Actor, comment *string, metadata json.RawMessage) error {
	entry := &models.OrderTimelineEntry{
		OrderID:     orderID,
		Action:      action,
		ActorUserID: actor.UserID,
		ActorRole:   actor.Role,
		Comment:     comment,
		Metadata:    metadata,
	}
	if err := repo.AppendTimeline(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append timeline entry")
	}
	return nil
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
	return &outbox.ActorRef{
		UserID: actor.UserID,
		Role:   actor.Role,
	}
}

func vendorSet(items []models.OrderItem) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{}
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.VendorID]; ok {
			continue
		}
		seen[item.VendorID] = struct{}{}
		ids = append(ids, item.VendorID)
	}
	return ids
}

func mustJSON(payload map[string]any) json.RawMessage {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return raw
}
