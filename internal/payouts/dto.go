package payouts

import (
	"github.com/google/uuid"

	"github.com/mercaline/marketplace-backend/pkg/db/models"
	"github.com/mercaline/marketplace-backend/pkg/enums"
)

// Actor identifies the authenticated user driving a payout operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.ActorRole
}

// RequestInput asks for a withdrawal of at least AmountCents from the
// vendor's available balance.
type RequestInput struct {
	VendorID    uuid.UUID
	AmountCents int
	Actor       Actor
}

type ApproveInput struct {
	PayoutID      uuid.UUID
	TransactionID string
	Notes         *string
	Actor         Actor
}

type RejectInput struct {
	PayoutID uuid.UUID
	Reason   string
	Actor    Actor
}

type CancelInput struct {
	PayoutID uuid.UUID
	Reason   string
	Actor    Actor
}

// PayoutFilters narrows payout listings.
type PayoutFilters struct {
	VendorID *uuid.UUID
	Status   *enums.PayoutStatus
}

type PayoutList struct {
	Payouts    []models.Payout `json:"payouts"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// PayoutEvent is the outbox payload for payout lifecycle events.
type PayoutEvent struct {
	PayoutID     uuid.UUID          `json:"payout_id"`
	PayoutNumber string             `json:"payout_number"`
	VendorID     uuid.UUID          `json:"vendor_id"`
	AmountCents  int                `json:"amount_cents"`
	NetCents     int                `json:"net_cents"`
	Status       enums.PayoutStatus `json:"status"`
	Reason       *string            `json:"reason,omitempty"`
}
