package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/mercaline/marketplace-backend/pkg/db/models"
	"github.com/mercaline/marketplace-backend/pkg/enums"
	"github.com/mercaline/marketplace-backend/pkg/logger"
	"github.com/mercaline/marketplace-backend/pkg/outbox"
	"github.com/mercaline/marketplace-backend/pkg/outbox/idempotency"
)

const payoutNotificationConsumer = "payout-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type adminDirectory interface {
	ListActiveByRole(ctx context.Context, role enums.ActorRole) ([]models.User, error)
}

// Consumer watches domain events and fans payout requests out to admin notifications.
type Consumer struct {
	repo         repository
	users        adminDirectory
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a payout notification consumer.
func NewConsumer(repo repository, users adminDirectory, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		users:        users,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventPayoutRequested) {
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, payoutNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var payload payoutRequestedPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, payoutNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"payout_id": payload.PayoutID.String(),
		"vendor_id": payload.VendorID.String(),
	})

	if err := c.notifyAdmins(ctx, payload, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, payoutNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) notifyAdmins(ctx context.Context, payload payoutRequestedPayload, logCtx context.Context) error {
	if payload.PayoutID == uuid.Nil {
		return fmt.Errorf("payout id missing")
	}

	admins, err := c.users.ListActiveByRole(ctx, enums.ActorRoleAdmin)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	if len(admins) == 0 {
		c.logg.Warn(logCtx, "no active admins to notify")
		return nil
	}

	raw, err := json.Marshal(map[string]any{
		"payout_id":     payload.PayoutID.String(),
		"payout_number": payload.PayoutNumber,
		"vendor_id":     payload.VendorID.String(),
		"amount_cents":  payload.AmountCents,
		"net_cents":     payload.NetCents,
	})
	if err != nil {
		return fmt.Errorf("encode notification payload: %w", err)
	}

	for _, admin := range admins {
		notification := &models.Notification{
			ID:      uuid.New(),
			UserID:  admin.ID,
			Type:    enums.NotificationTypePayoutRequested,
			Payload: raw,
		}
		if err := c.repo.Create(ctx, notification); err != nil {
			return fmt.Errorf("create admin notification: %w", err)
		}
	}

	c.logg.Info(logCtx, "admins notified of payout request")
	return nil
}

type payoutRequestedPayload struct {
	PayoutID     uuid.UUID `json:"payout_id"`
	PayoutNumber string    `json:"payout_number"`
	VendorID     uuid.UUID `json:"vendor_id"`
	AmountCents  int       `json:"amount_cents"`
	NetCents     int       `json:"net_cents"`
}
