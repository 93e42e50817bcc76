package notifications

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

func setupNotificationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  payload TEXT,
  read_at DATETIME,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedNotification(t *testing.T, db *gorm.DB, userID uuid.UUID, createdAt time.Time, readAt *time.Time) *models.Notification {
	t.Helper()

	row := &models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      enums.NotificationTypeOrderConfirmed,
		Payload:   []byte(`{"order_number":"ORD-1"}`),
		ReadAt:    readAt,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(row).Error)
	return row
}

func TestRepository_ListByUser(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	base := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	readAt := base.Add(30 * time.Minute)

	oldest := seedNotification(t, db, userID, base, &readAt)
	middle := seedNotification(t, db, userID, base.Add(time.Hour), nil)
	newest := seedNotification(t, db, userID, base.Add(2*time.Hour), nil)
	seedNotification(t, db, uuid.New(), base.Add(3*time.Hour), nil)

	rows, next, err := repo.List(ctx, listNotificationsParams{UserID: userID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newest.ID, rows[0].ID)
	assert.Equal(t, middle.ID, rows[1].ID)
	require.NotNil(t, next)

	rest, last, err := repo.List(ctx, listNotificationsParams{UserID: userID, Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, oldest.ID, rest[0].ID)
	assert.Nil(t, last)

	unread, _, err := repo.List(ctx, listNotificationsParams{UserID: userID, Limit: 10, UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, unread, 2)
}

func TestRepository_MarkRead(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	now := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	row := seedNotification(t, db, userID, now.Add(-time.Hour), nil)

	mark, err := repo.MarkRead(ctx, userID, row.ID, now)
	require.NoError(t, err)
	assert.True(t, mark.Found)
	assert.True(t, mark.Updated)

	// already read, still found
	mark, err = repo.MarkRead(ctx, userID, row.ID, now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, mark.Found)
	assert.False(t, mark.Updated)

	// wrong owner sees nothing
	mark, err = repo.MarkRead(ctx, uuid.New(), row.ID, now)
	require.NoError(t, err)
	assert.False(t, mark.Found)
}

func TestRepository_MarkAllRead(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	now := time.Date(2026, 4, 3, 10, 0, 0, 0, time.UTC)
	readAt := now.Add(-time.Hour)

	seedNotification(t, db, userID, now.Add(-3*time.Hour), nil)
	seedNotification(t, db, userID, now.Add(-2*time.Hour), nil)
	seedNotification(t, db, userID, now.Add(-4*time.Hour), &readAt)

	count, err := repo.MarkAllRead(ctx, userID, now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	unread, _, err := repo.List(ctx, listNotificationsParams{UserID: userID, Limit: 10, UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestRepository_DeleteOlderThan(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	now := time.Date(2026, 4, 4, 11, 0, 0, 0, time.UTC)
	cutoff := now.AddDate(0, 0, -30)
	oldRead := cutoff.AddDate(0, 0, -10)

	stale := seedNotification(t, db, userID, oldRead, &oldRead)
	unreadOld := seedNotification(t, db, userID, oldRead, nil)
	recent := seedNotification(t, db, userID, now.Add(-time.Hour), &now)

	count, err := repo.DeleteOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	var remaining []models.Notification
	require.NoError(t, db.Where("user_id = ?", userID).Find(&remaining).Error)
	require.Len(t, remaining, 2)
	ids := map[uuid.UUID]bool{remaining[0].ID: true, remaining[1].ID: true}
	assert.True(t, ids[unreadOld.ID])
	assert.True(t, ids[recent.ID])
	assert.False(t, ids[stale.ID])
}
