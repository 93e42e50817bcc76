package ledger

import "github.com/google/uuid"

// Balance is a vendor's commission position derived at read time. Buckets are
// disjoint: a cent is pending, available, or withheld, never more than one.
// Reversed and paid rows carry no balance, and rows claimed by an open payout
// are excluded until the payout completes or releases them.
type Balance struct {
	VendorID       uuid.UUID `json:"vendor_id"`
	PendingCents   int       `json:"pending_cents"`
	AvailableCents int       `json:"available_cents"`
	WithheldCents  int       `json:"withheld_cents"`
	TotalCents     int       `json:"total_cents"`
}
