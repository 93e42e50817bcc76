package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mercaline/marketplace-backend/pkg/db/models"
	"github.com/mercaline/marketplace-backend/pkg/enums"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	commissions := `
CREATE TABLE IF NOT EXISTS commissions (
  id TEXT PRIMARY KEY,
  order_item_id TEXT NOT NULL UNIQUE,
  order_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  rate_bps INTEGER NOT NULL,
  vendor_amount_cents INTEGER NOT NULL,
  platform_amount_cents INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  withheld INTEGER NOT NULL DEFAULT 0,
  withheld_reason TEXT,
  payout_id TEXT,
  confirmed_at DATETIME,
  reversed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(commissions).Error)
	return db
}

type commissionSeed struct {
	orderID     uuid.UUID
	vendorID    uuid.UUID
	amountCents int
	status      enums.CommissionStatus
	withheld    bool
	payoutID    *uuid.UUID
	confirmedAt *time.Time
}

func seedCommission(t *testing.T, db *gorm.DB, seed commissionSeed) *models.Commission {
	t.Helper()

	vendorCents, platformCents := SplitCents(seed.amountCents, 1500)
	row := &models.Commission{
		ID:                  uuid.New(),
		OrderItemID:         uuid.New(),
		OrderID:             seed.orderID,
		VendorID:            seed.vendorID,
		RateBps:             1500,
		VendorAmountCents:   vendorCents,
		PlatformAmountCents: platformCents,
		Status:              seed.status,
		Withheld:            seed.withheld,
		PayoutID:            seed.payoutID,
		ConfirmedAt:         seed.confirmedAt,
	}
	require.NoError(t, db.Create(row).Error)
	return row
}

func TestRepository_ConfirmByOrderID(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	orderID := uuid.New()
	vendorID := uuid.New()
	seedCommission(t, db, commissionSeed{orderID: orderID, vendorID: vendorID, amountCents: 10000, status: enums.CommissionStatusPending})
	seedCommission(t, db, commissionSeed{orderID: orderID, vendorID: vendorID, amountCents: 5000, status: enums.CommissionStatusPending})
	reversed := seedCommission(t, db, commissionSeed{orderID: orderID, vendorID: vendorID, amountCents: 2000, status: enums.CommissionStatusReversed})

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	affected, err := repo.ConfirmByOrderID(ctx, orderID, at)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	rows, err := repo.ListByOrderID(ctx, orderID)
	require.NoError(t, err)
	for _, row := range rows {
		if row.ID == reversed.ID {
			assert.Equal(t, enums.CommissionStatusReversed, row.Status)
			continue
		}
		assert.Equal(t, enums.CommissionStatusConfirmed, row.Status)
		require.NotNil(t, row.ConfirmedAt)
	}
}

func TestRepository_ReverseByOrderIDSkipsClaimedRows(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	orderID := uuid.New()
	vendorID := uuid.New()
	payoutID := uuid.New()
	now := time.Now().UTC()

	free := seedCommission(t, db, commissionSeed{orderID: orderID, vendorID: vendorID, amountCents: 10000, status: enums.CommissionStatusConfirmed, confirmedAt: &now})
	claimed := seedCommission(t, db, commissionSeed{orderID: orderID, vendorID: vendorID, amountCents: 5000, status: enums.CommissionStatusConfirmed, payoutID: &payoutID, confirmedAt: &now})

	affected, err := repo.ReverseByOrderID(ctx, orderID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	freshFree, err := repo.GetByOrderItemID(ctx, free.OrderItemID)
	require.NoError(t, err)
	assert.Equal(t, enums.CommissionStatusReversed, freshFree.Status)
	require.NotNil(t, freshFree.ReversedAt)

	freshClaimed, err := repo.GetByOrderItemID(ctx, claimed.OrderItemID)
	require.NoError(t, err)
	assert.Equal(t, enums.CommissionStatusConfirmed, freshClaimed.Status)
}

func TestRepository_VendorBalanceBuckets(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	vendorID := uuid.New()
	otherVendor := uuid.New()
	payoutID := uuid.New()
	cutoff := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	mature := cutoff.Add(-48 * time.Hour)
	immature := cutoff.Add(48 * time.Hour)
	atCutoff := cutoff
	justPastCutoff := cutoff.Add(time.Second)

	// pending bucket: unconfirmed, confirmed-but-immature, confirmed one second
	// past the cutoff
	seedCommission(t, db, commissionSeed{orderID: uuid.New(), vendorID: vendorID, amountCents: 1000, status: enums.CommissionStatusPending})
	seedCommission(t, db, commissionSeed{orderID: uuid.New(), vendorID: vendorID, amountCents: 2000, status: enums.CommissionStatusConfirmed, confirmedAt: &immature})
	seedCommission(t, db, commissionSeed{orderID: uuid.New(), vendorID: vendorID, amountCents: 900, status: enums.CommissionStatusConfirmed, confirmedAt: &justPastCutoff})
	// available bucket: the cutoff itself is inclusive
	seedCommission(t, db, commissionSeed{orderID: uuid.New(), vendorID: vendorID, amountCents: 4000, status: enums.CommissionStatusConfirmed, confirmedAt: &mature})
	seedCommission(t, db, commissionSeed{orderID: uuid.New(), vendorID: vendorID, amountCents: 800, status: enums.CommissionStatusConfirmed, confirmedAt: &atCutoff})
	// withheld bucket
	seedCommission(t, db, commissionSeed{orderID: uuid.New(), vendorID: vendorID, amountCents: 3000, status: enums.CommissionStatusConfirmed, withheld: true, confirmedAt: &mature})
	// excluded: claimed by an open payout, reversed, other vendor
	seedCommission(t, db, commissionSeed{orderID: uuid.New(), vendorID: vendorID, amountCents: 5000, status: enums.CommissionStatusConfirmed, payoutID: &payoutID, confirmedAt: &mature})
	seedCommission(t, db, commissionSeed{orderID: uuid.New(), vendorID: vendorID, amountCents: 6000, status: enums.CommissionStatusReversed})
	seedCommission(t, db, commissionSeed{orderID: uuid.New(), vendorID: otherVendor, amountCents: 7000, status: enums.CommissionStatusConfirmed, confirmedAt: &mature})

	balance, err := repo.VendorBalance(ctx, vendorID, cutoff)
	require.NoError(t, err)

	pendingWant := vendorShare(1000) + vendorShare(2000) + vendorShare(900)
	availableWant := vendorShare(4000) + vendorShare(800)
	withheldWant := vendorShare(3000)
	assert.Equal(t, pendingWant, balance.PendingCents)
	assert.Equal(t, availableWant, balance.AvailableCents)
	assert.Equal(t, withheldWant, balance.WithheldCents)
	assert.Equal(t, pendingWant+availableWant+withheldWant, balance.TotalCents)
}

func vendorShare(totalCents int) int {
	vendor, _ := SplitCents(totalCents, 1500)
	return vendor
}

func TestRepository_AssignPayoutGuard(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	vendorID := uuid.New()
	now := time.Now().UTC()
	otherPayout := uuid.New()

	free := seedCommission(t, db, commissionSeed{orderID: uuid.New(), vendorID: vendorID, amountCents: 10000, status: enums.CommissionStatusConfirmed, confirmedAt: &now})
	taken := seedCommission(t, db, commissionSeed{orderID: uuid.New(), vendorID: vendorID, amountCents: 5000, status: enums.CommissionStatusConfirmed, payoutID: &otherPayout, confirmedAt: &now})

	payoutID := uuid.New()
	affected, err := repo.AssignPayout(ctx, []uuid.UUID{free.ID, taken.ID}, payoutID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected, "already-claimed row must not be reassigned")
}

func TestRepository_MarkPaidAndRelease(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	vendorID := uuid.New()
	now := time.Now().UTC()

	paidPayout := uuid.New()
	releasedPayout := uuid.New()
	paidRow := seedCommission(t, db, commissionSeed{orderID: uuid.New(), vendorID: vendorID, amountCents: 10000, status: enums.CommissionStatusConfirmed, payoutID: &paidPayout, confirmedAt: &now})
	releasedRow := seedCommission(t, db, commissionSeed{orderID: uuid.New(), vendorID: vendorID, amountCents: 5000, status: enums.CommissionStatusConfirmed, payoutID: &releasedPayout, confirmedAt: &now})

	affected, err := repo.MarkPaidByPayoutID(ctx, paidPayout)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	freshPaid, err := repo.GetByOrderItemID(ctx, paidRow.OrderItemID)
	require.NoError(t, err)
	assert.Equal(t, enums.CommissionStatusPaid, freshPaid.Status)
	require.NotNil(t, freshPaid.PayoutID)

	affected, err = repo.ReleaseByPayoutID(ctx, releasedPayout)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	freshReleased, err := repo.GetByOrderItemID(ctx, releasedRow.OrderItemID)
	require.NoError(t, err)
	assert.Equal(t, enums.CommissionStatusConfirmed, freshReleased.Status)
	assert.Nil(t, freshReleased.PayoutID)

	// a released row is payable again
	balance, err := repo.VendorBalance(ctx, vendorID, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, vendorShare(5000), balance.AvailableCents)
}
