package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercaline/marketplace-backend/internal/notifications"
	"github.com/mercaline/marketplace-backend/pkg/enums"
)

type fakeNotificationService struct {
	listFn        func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error)
	markReadFn    func(ctx context.Context, userID, notificationID uuid.UUID) error
	markAllReadFn func(ctx context.Context, userID uuid.UUID) (int64, error)
}

func (f *fakeNotificationService) Notify(ctx context.Context, userID uuid.UUID, notifType enums.NotificationType, payload map[string]any) {
}

func (f *fakeNotificationService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return f.listFn(ctx, params)
}

func (f *fakeNotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return f.markReadFn(ctx, userID, notificationID)
}

func (f *fakeNotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return f.markAllReadFn(ctx, userID)
}

func TestListNotificationsScopesToCaller(t *testing.T) {
	userID := uuid.New()
	var captured notifications.ListParams
	svc := &fakeNotificationService{
		listFn: func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
			captured = params
			return &notifications.ListResult{}, nil
		},
	}
	handler := ListNotifications(svc, newTestLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/notifications?limit=5&unread_only=true", nil)
	req = asActor(req, userID, enums.ActorRoleVendor, nil)
	resp := httptest.NewRecorder()

	handler(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, userID, captured.UserID)
	assert.Equal(t, 5, captured.Limit)
	assert.True(t, captured.UnreadOnly)
}

func TestListNotificationsRejectsBadUnreadFlag(t *testing.T) {
	handler := ListNotifications(&fakeNotificationService{}, newTestLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/notifications?unread_only=maybe", nil)
	req = asActor(req, uuid.New(), enums.ActorRoleVendor, nil)
	resp := httptest.NewRecorder()

	handler(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestMarkNotificationRead(t *testing.T) {
	userID := uuid.New()
	notificationID := uuid.New()
	var capturedUser, capturedNotification uuid.UUID
	svc := &fakeNotificationService{
		markReadFn: func(ctx context.Context, user, notification uuid.UUID) error {
			capturedUser = user
			capturedNotification = notification
			return nil
		},
	}
	handler := MarkNotificationRead(svc, newTestLogger(t))

	req := httptest.NewRequest(http.MethodPost, "/notifications/"+notificationID.String()+"/read", nil)
	req = addRouteParam(req, "notificationID", notificationID.String())
	req = asActor(req, userID, enums.ActorRoleCustomer, nil)
	resp := httptest.NewRecorder()

	handler(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, userID, capturedUser)
	assert.Equal(t, notificationID, capturedNotification)
}

func TestMarkNotificationReadRejectsInvalidID(t *testing.T) {
	handler := MarkNotificationRead(&fakeNotificationService{}, newTestLogger(t))

	req := httptest.NewRequest(http.MethodPost, "/notifications/nope/read", nil)
	req = addRouteParam(req, "notificationID", "nope")
	req = asActor(req, uuid.New(), enums.ActorRoleCustomer, nil)
	resp := httptest.NewRecorder()

	handler(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestMarkAllNotificationsRead(t *testing.T) {
	userID := uuid.New()
	svc := &fakeNotificationService{
		markAllReadFn: func(ctx context.Context, user uuid.UUID) (int64, error) {
			assert.Equal(t, userID, user)
			return 4, nil
		},
	}
	handler := MarkAllNotificationsRead(svc, newTestLogger(t))

	req := httptest.NewRequest(http.MethodPost, "/notifications/read-all", nil)
	req = asActor(req, userID, enums.ActorRoleVendor, nil)
	resp := httptest.NewRecorder()

	handler(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"updated":4`)
}
