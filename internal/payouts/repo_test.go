package payouts

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
	"github.com/mercaline/marketplace-backend/pkg/pagination"
)

func setupPayoutsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS payouts (
  id TEXT PRIMARY KEY,
  payout_number TEXT NOT NULL UNIQUE,
  vendor_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  processing_fee_cents INTEGER NOT NULL DEFAULT 0,
  net_amount_cents INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  method TEXT NOT NULL,
  details TEXT,
  period_start DATETIME,
  period_end DATETIME,
  items_count INTEGER NOT NULL DEFAULT 0,
  transaction_id TEXT,
  notes TEXT,
  cancellation_reason TEXT,
  processed_at DATETIME,
  processed_by_user_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedPayout(t *testing.T, db *gorm.DB, vendorID uuid.UUID, status enums.PayoutStatus, createdAt time.Time) *models.Payout {
	t.Helper()

	row := &models.Payout{
		ID:             uuid.New(),
		PayoutNumber:   "PO-" + uuid.New().String()[:13],
		VendorID:       vendorID,
		AmountCents:    8000,
		NetAmountCents: 7860,
		Status:         status,
		Method:         enums.PayoutMethodBankTransfer,
		CreatedAt:      createdAt,
	}
	require.NoError(t, db.Create(row).Error)
	return row
}

func TestRepository_UpdateStatusGuard(t *testing.T) {
	db := setupPayoutsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	payout := seedPayout(t, db, uuid.New(), enums.PayoutStatusPending, time.Now().UTC())

	processedAt := time.Now().UTC()
	affected, err := repo.UpdateStatus(ctx, payout.ID, enums.PayoutStatusPending, enums.PayoutStatusCompleted, map[string]any{
		"transaction_id": "bank-tx-1",
		"processed_at":   processedAt,
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	reloaded, err := repo.FindByID(ctx, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusCompleted, reloaded.Status)
	require.NotNil(t, reloaded.TransactionID)
	assert.Equal(t, "bank-tx-1", *reloaded.TransactionID)

	// a second transition from pending finds nothing to update
	affected, err = repo.UpdateStatus(ctx, payout.ID, enums.PayoutStatusPending, enums.PayoutStatusFailed, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0, affected)

	reloaded, err = repo.FindByID(ctx, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusCompleted, reloaded.Status)
}

func TestRepository_ListByVendorAndStatus(t *testing.T) {
	db := setupPayoutsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	vendorID := uuid.New()
	base := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

	first := seedPayout(t, db, vendorID, enums.PayoutStatusCompleted, base)
	second := seedPayout(t, db, vendorID, enums.PayoutStatusPending, base.Add(time.Hour))
	third := seedPayout(t, db, vendorID, enums.PayoutStatusPending, base.Add(2*time.Hour))
	seedPayout(t, db, uuid.New(), enums.PayoutStatusPending, base.Add(3*time.Hour))

	page, err := repo.List(ctx, pagination.Params{Limit: 2}, PayoutFilters{VendorID: &vendorID})
	require.NoError(t, err)
	require.Len(t, page.Payouts, 2)
	assert.Equal(t, third.ID, page.Payouts[0].ID)
	assert.Equal(t, second.ID, page.Payouts[1].ID)
	require.NotEmpty(t, page.NextCursor)

	rest, err := repo.List(ctx, pagination.Params{Limit: 2, Cursor: page.NextCursor}, PayoutFilters{VendorID: &vendorID})
	require.NoError(t, err)
	require.Len(t, rest.Payouts, 1)
	assert.Equal(t, first.ID, rest.Payouts[0].ID)
	assert.Empty(t, rest.NextCursor)

	pending := enums.PayoutStatusPending
	byStatus, err := repo.List(ctx, pagination.Params{Limit: 10}, PayoutFilters{VendorID: &vendorID, Status: &pending})
	require.NoError(t, err)
	assert.Len(t, byStatus.Payouts, 2)
}
