package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mercaline/marketplace-backend/internal/carriers"
	"github.com/mercaline/marketplace-backend/internal/ledger"
	"github.com/mercaline/marketplace-backend/internal/notifications"
	"github.com/mercaline/marketplace-backend/internal/orders"
	"github.com/mercaline/marketplace-backend/internal/payouts"
	pkgauth "github.com/mercaline/marketplace-backend/pkg/auth"
	"github.com/mercaline/marketplace-backend/pkg/clock"
	"github.com/mercaline/marketplace-backend/pkg/config"
	"github.com/mercaline/marketplace-backend/pkg/db/models"
	"github.com/mercaline/marketplace-backend/pkg/enums"
	"github.com/mercaline/marketplace-backend/pkg/logger"
	"github.com/mercaline/marketplace-backend/pkg/pagination"
)

type stubOrdersService struct{}

func (stubOrdersService) Confirm(ctx context.Context, input orders.ConfirmInput) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) StartProcessing(ctx context.Context, input orders.StartProcessingInput) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) MarkOutForDelivery(ctx context.Context, input orders.MarkOutForDeliveryInput) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) ConfirmDelivery(ctx context.Context, input orders.ConfirmDeliveryInput) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) HandleDeliveryFailure(ctx context.Context, input orders.DeliveryFailureInput) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) VerifyCODCollection(ctx context.Context, input orders.VerifyCODInput) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) Complete(ctx context.Context, input orders.CompleteInput) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) Cancel(ctx context.Context, input orders.CancelInput) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) UpdateItemStatus(ctx context.Context, input orders.UpdateItemStatusInput) (*models.OrderItem, error) {
	panic("unimplemented")
}

func (stubOrdersService) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return &models.Order{ID: orderID}, nil
}

func (stubOrdersService) List(ctx context.Context, params pagination.Params, filters orders.OrderFilters) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (stubOrdersService) Timeline(ctx context.Context, orderID uuid.UUID) ([]models.OrderTimelineEntry, error) {
	return nil, nil
}

type stubPayoutsService struct{}

func (stubPayoutsService) Request(ctx context.Context, input payouts.RequestInput) (*models.Payout, error) {
	return &models.Payout{ID: uuid.New(), VendorID: input.VendorID, Status: enums.PayoutStatusPending}, nil
}

func (stubPayoutsService) Approve(ctx context.Context, input payouts.ApproveInput) (*models.Payout, error) {
	return &models.Payout{ID: input.PayoutID, Status: enums.PayoutStatusCompleted}, nil
}

func (stubPayoutsService) Reject(ctx context.Context, input payouts.RejectInput) (*models.Payout, error) {
	panic("unimplemented")
}

func (stubPayoutsService) Cancel(ctx context.Context, input payouts.CancelInput) (*models.Payout, error) {
	panic("unimplemented")
}

func (stubPayoutsService) Get(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error) {
	return &models.Payout{ID: payoutID}, nil
}

func (stubPayoutsService) List(ctx context.Context, params pagination.Params, filters payouts.PayoutFilters) (*payouts.PayoutList, error) {
	return &payouts.PayoutList{}, nil
}

type stubLedgerService struct{}

func (stubLedgerService) VendorBalance(ctx context.Context, vendorID uuid.UUID) (*ledger.Balance, error) {
	return &ledger.Balance{VendorID: vendorID}, nil
}

type stubNotificationsService struct{}

func (stubNotificationsService) Notify(ctx context.Context, userID uuid.UUID, notifType enums.NotificationType, payload map[string]any) {
}

func (stubNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{}, nil
}

func (stubNotificationsService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}

func (stubNotificationsService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

type fakeIdempotencyStore struct {
	data map[string]string
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{data: make(map[string]string)}
}

func (f *fakeIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:idempotency:%s:%s", scope, id)
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	registry := carriers.NewRegistry(config.CarriersConfig{}, clock.System(), logg)
	return NewRouter(
		cfg,
		logg,
		newFakeIdempotencyStore(),
		stubOrdersService{},
		stubPayoutsService{},
		stubLedgerService{},
		stubNotificationsService{},
		registry,
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.ActorRole, vendorID *uuid.UUID) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID:   uuid.New(),
		Role:     role,
		VendorID: vendorID,
		JTI:      uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthEndpointsArePublic(t *testing.T) {
	router := newTestRouter(testConfig())

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d", path, resp.Code)
		}
	}
}

func TestMetricsEndpointIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for metrics got %d", resp.Code)
	}
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestOrdersListWithToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleAdmin, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin order list got %d", resp.Code)
	}
}

func TestCODVerificationIsAdminOnly(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	vendorID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+uuid.NewString()+"/cod-verification", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleVendor, &vendorID))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for vendor cod verification got %d", resp.Code)
	}
}

func TestVendorBalanceRequiresVendorContext(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	admin := httptest.NewRequest(http.MethodGet, "/api/v1/vendor/balance", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleAdmin, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without vendor context got %d", resp.Code)
	}

	vendorID := uuid.New()
	vendor := httptest.NewRequest(http.MethodGet, "/api/v1/vendor/balance", nil)
	vendor.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleVendor, &vendorID))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, vendor)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for vendor balance got %d", resp.Code)
	}
}

func TestPayoutApproveRequiresAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	payoutID := uuid.New()

	vendorID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payouts/"+payoutID.String()+"/approve", strings.NewReader(`{"transaction_id":"txn-1"}`))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleVendor, &vendorID))
	req.Header.Set("Idempotency-Key", uuid.NewString())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin approve got %d", resp.Code)
	}
}

func TestPayoutRequestRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	vendorID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payouts", strings.NewReader(`{"amount_cents":10000}`))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleVendor, &vendorID))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key got %d", resp.Code)
	}

	keyed := httptest.NewRequest(http.MethodPost, "/api/v1/payouts", strings.NewReader(`{"amount_cents":10000}`))
	keyed.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleVendor, &vendorID))
	keyed.Header.Set("Idempotency-Key", uuid.NewString())
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, keyed)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for payout request got %d", resp.Code)
	}
}

func TestTrackingRouteWithLocalCarrier(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tracking/local/LOCAL-7", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleCustomer, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for local tracking got %d", resp.Code)
	}
}
