package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mercaline/marketplace-backend/pkg/db/models"
	"github.com/mercaline/marketplace-backend/pkg/enums"
	"github.com/mercaline/marketplace-backend/pkg/logger"
)

func TestCODReconciliationJobNotifiesAdmins(t *testing.T) {
	now := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	collected := 9500
	deliveredAt := now.Add(-5 * 24 * time.Hour)
	reader := &fakeCODOrderReader{orders: []models.Order{{
		ID:                      uuid.New(),
		OrderNumber:             "ORD-1001",
		TotalCents:              10000,
		CODAmountCollectedCents: &collected,
		DeliveredAt:             &deliveredAt,
	}}}
	adminA := models.User{ID: uuid.New()}
	adminB := models.User{ID: uuid.New()}
	users := &fakeAdminDirectory{admins: []models.User{adminA, adminB}}
	notifier := &fakeCODNotifier{}

	job := newCODReconciliationJob(t, reader, users, notifier)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	expectedCutoff := now.UTC().Add(-codReconcileAfterDays * 24 * time.Hour)
	if !reader.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, reader.lastCutoff)
	}
	if len(notifier.sent) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notifier.sent))
	}
	for _, sent := range notifier.sent {
		if sent.notifType != enums.NotificationTypeCODMismatch {
			t.Fatalf("unexpected notification type %s", sent.notifType)
		}
		if sent.payload["order_number"] != "ORD-1001" {
			t.Fatalf("unexpected payload %v", sent.payload)
		}
		if sent.payload["collected_cents"] != collected {
			t.Fatalf("expected collected cents in payload, got %v", sent.payload)
		}
	}
	if notifier.sent[0].userID != adminA.ID || notifier.sent[1].userID != adminB.ID {
		t.Fatalf("notifications did not reach both admins")
	}
}

func TestCODReconciliationJobNoStaleOrders(t *testing.T) {
	reader := &fakeCODOrderReader{}
	users := &fakeAdminDirectory{admins: []models.User{{ID: uuid.New()}}}
	notifier := &fakeCODNotifier{}

	job := newCODReconciliationJob(t, reader, users, notifier)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if users.called {
		t.Fatal("should not list admins when nothing is stale")
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("expected no notifications, got %d", len(notifier.sent))
	}
}

func TestCODReconciliationJobPropagatesReaderError(t *testing.T) {
	reader := &fakeCODOrderReader{err: errors.New("boom")}
	job := newCODReconciliationJob(t, reader, &fakeAdminDirectory{}, &fakeCODNotifier{})

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newCODReconciliationJob(t *testing.T, reader *fakeCODOrderReader, users *fakeAdminDirectory, notifier *fakeCODNotifier) *codReconciliationJob {
	t.Helper()
	jobIface, err := NewCODReconciliationJob(CODReconciliationJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Orders:   reader,
		Users:    users,
		Notifier: notifier,
	})
	if err != nil {
		t.Fatalf("NewCODReconciliationJob: %v", err)
	}
	job, ok := jobIface.(*codReconciliationJob)
	if !ok {
		t.Fatalf("expected codReconciliationJob, got %T", jobIface)
	}
	return job
}

type fakeCODOrderReader struct {
	orders     []models.Order
	err        error
	lastCutoff time.Time
}

func (f *fakeCODOrderReader) FindUnverifiedCODBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	f.lastCutoff = cutoff
	if f.err != nil {
		return nil, f.err
	}
	return f.orders, nil
}

type fakeAdminDirectory struct {
	admins []models.User
	called bool
}

func (f *fakeAdminDirectory) ListActiveByRole(ctx context.Context, role enums.ActorRole) ([]models.User, error) {
	f.called = true
	return f.admins, nil
}

type sentNotification struct {
	userID    uuid.UUID
	notifType enums.NotificationType
	payload   map[string]any
}

type fakeCODNotifier struct {
	sent []sentNotification
}

func (f *fakeCODNotifier) Notify(ctx context.Context, userID uuid.UUID, notifType enums.NotificationType, payload map[string]any) {
	f.sent = append(f.sent, sentNotification{userID: userID, notifType: notifType, payload: payload})
}
