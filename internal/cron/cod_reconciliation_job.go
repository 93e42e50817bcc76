package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mercaline/marketplace-backend/pkg/db/models"
	"github.com/mercaline/marketplace-backend/pkg/enums"
	"github.com/mercaline/marketplace-backend/pkg/logger"
)

const codReconcileAfterDays = 3

// CODReconciliationJobParams configure the stale COD escalation job.
type CODReconciliationJobParams struct {
	Logger    *logger.Logger
	Orders    codOrderReader
	Users     adminDirectory
	Notifier  codNotifier
	AfterDays int
}

type codOrderReader interface {
	FindUnverifiedCODBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

type adminDirectory interface {
	ListActiveByRole(ctx context.Context, role enums.ActorRole) ([]models.User, error)
}

type codNotifier interface {
	Notify(ctx context.Context, userID uuid.UUID, notifType enums.NotificationType, payload map[string]any)
}

// NewCODReconciliationJob builds the cron job that escalates COD orders whose
// collected amount has been flagged for longer than the reconciliation window.
func NewCODReconciliationJob(params CODReconciliationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders reader required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	afterDays := params.AfterDays
	if afterDays <= 0 {
		afterDays = codReconcileAfterDays
	}
	return &codReconciliationJob{
		logg:      params.Logger,
		orders:    params.Orders,
		users:     params.Users,
		notifier:  params.Notifier,
		afterDays: afterDays,
		now:       time.Now,
	}, nil
}

type codReconciliationJob struct {
	logg      *logger.Logger
	orders    codOrderReader
	users     adminDirectory
	notifier  codNotifier
	afterDays int
	now       func() time.Time
}

func (j *codReconciliationJob) Name() string { return "cod-reconciliation" }

func (j *codReconciliationJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.afterDays) * 24 * time.Hour)
	stale, err := j.orders.FindUnverifiedCODBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query unverified cod orders: %w", err)
	}
	if len(stale) == 0 {
		j.logg.Info(ctx, "no stale cod orders to reconcile")
		return nil
	}

	admins, err := j.users.ListActiveByRole(ctx, enums.ActorRoleAdmin)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	if len(admins) == 0 {
		j.logg.Warn(ctx, "stale cod orders found but no active admins")
		return nil
	}

	for _, order := range stale {
		payload := map[string]any{
			"order_id":       order.ID.String(),
			"order_number":   order.OrderNumber,
			"expected_cents": order.TotalCents,
		}
		if order.CODAmountCollectedCents != nil {
			payload["collected_cents"] = *order.CODAmountCollectedCents
		}
		if order.DeliveredAt != nil {
			payload["delivered_at"] = order.DeliveredAt.UTC().Format(time.RFC3339)
		}
		for _, admin := range admins {
			j.notifier.Notify(ctx, admin.ID, enums.NotificationTypeCODMismatch, payload)
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff": cutoff,
		"count":  len(stale),
	})
	j.logg.Info(logCtx, "cod reconciliation escalations sent")
	return nil
}
