package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercaline/marketplace-backend/internal/payouts"
	"github.com/mercaline/marketplace-backend/pkg/db/models"
	"github.com/mercaline/marketplace-backend/pkg/enums"
	"github.com/mercaline/marketplace-backend/pkg/pagination"
)

type fakePayoutService struct {
	requestFn func(ctx context.Context, input payouts.RequestInput) (*models.Payout, error)
	approveFn func(ctx context.Context, input payouts.ApproveInput) (*models.Payout, error)
	rejectFn  func(ctx context.Context, input payouts.RejectInput) (*models.Payout, error)
	cancelFn  func(ctx context.Context, input payouts.CancelInput) (*models.Payout, error)
	getFn     func(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error)
	listFn    func(ctx context.Context, params pagination.Params, filters payouts.PayoutFilters) (*payouts.PayoutList, error)
}

func (f *fakePayoutService) Request(ctx context.Context, input payouts.RequestInput) (*models.Payout, error) {
	return f.requestFn(ctx, input)
}

func (f *fakePayoutService) Approve(ctx context.Context, input payouts.ApproveInput) (*models.Payout, error) {
	return f.approveFn(ctx, input)
}

func (f *fakePayoutService) Reject(ctx context.Context, input payouts.RejectInput) (*models.Payout, error) {
	return f.rejectFn(ctx, input)
}

func (f *fakePayoutService) Cancel(ctx context.Context, input payouts.CancelInput) (*models.Payout, error) {
	return f.cancelFn(ctx, input)
}

func (f *fakePayoutService) Get(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error) {
	return f.getFn(ctx, payoutID)
}

func (f *fakePayoutService) List(ctx context.Context, params pagination.Params, filters payouts.PayoutFilters) (*payouts.PayoutList, error) {
	return f.listFn(ctx, params, filters)
}

func TestRequestPayoutUsesVendorContext(t *testing.T) {
	vendorID := uuid.New()
	userID := uuid.New()
	var captured payouts.RequestInput
	svc := &fakePayoutService{
		requestFn: func(ctx context.Context, input payouts.RequestInput) (*models.Payout, error) {
			captured = input
			return &models.Payout{ID: uuid.New(), VendorID: input.VendorID, Status: enums.PayoutStatusPending}, nil
		},
	}
	handler := RequestPayout(svc, newTestLogger(t))

	req := httptest.NewRequest(http.MethodPost, "/payouts", strings.NewReader(`{"amount_cents":10000}`))
	req = asActor(req, userID, enums.ActorRoleVendor, &vendorID)
	resp := httptest.NewRecorder()

	handler(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, vendorID, captured.VendorID)
	assert.Equal(t, 10000, captured.AmountCents)
	assert.Equal(t, userID, captured.Actor.UserID)
	assert.Equal(t, enums.ActorRoleVendor, captured.Actor.Role)
}

func TestRequestPayoutRequiresVendorContext(t *testing.T) {
	handler := RequestPayout(&fakePayoutService{}, newTestLogger(t))

	req := httptest.NewRequest(http.MethodPost, "/payouts", strings.NewReader(`{"amount_cents":10000}`))
	req = asActor(req, uuid.New(), enums.ActorRoleCustomer, nil)
	resp := httptest.NewRecorder()

	handler(resp, req)

	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestRequestPayoutRejectsZeroAmount(t *testing.T) {
	vendorID := uuid.New()
	handler := RequestPayout(&fakePayoutService{}, newTestLogger(t))

	req := httptest.NewRequest(http.MethodPost, "/payouts", strings.NewReader(`{"amount_cents":0}`))
	req = asActor(req, uuid.New(), enums.ActorRoleVendor, &vendorID)
	resp := httptest.NewRecorder()

	handler(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestApprovePayoutForwardsTransaction(t *testing.T) {
	payoutID := uuid.New()
	var captured payouts.ApproveInput
	svc := &fakePayoutService{
		approveFn: func(ctx context.Context, input payouts.ApproveInput) (*models.Payout, error) {
			captured = input
			return &models.Payout{ID: input.PayoutID, Status: enums.PayoutStatusCompleted}, nil
		},
	}
	handler := ApprovePayout(svc, newTestLogger(t))

	body := strings.NewReader(`{"transaction_id":"wire-20260830-001","notes":"batch 14"}`)
	req := httptest.NewRequest(http.MethodPost, "/payouts/"+payoutID.String()+"/approve", body)
	req = addRouteParam(req, "payoutID", payoutID.String())
	req = asActor(req, uuid.New(), enums.ActorRoleAdmin, nil)
	resp := httptest.NewRecorder()

	handler(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, payoutID, captured.PayoutID)
	assert.Equal(t, "wire-20260830-001", captured.TransactionID)
	require.NotNil(t, captured.Notes)
	assert.Equal(t, "batch 14", *captured.Notes)
}

func TestRejectPayoutRequiresReason(t *testing.T) {
	handler := RejectPayout(&fakePayoutService{}, newTestLogger(t))

	req := httptest.NewRequest(http.MethodPost, "/payouts/"+uuid.NewString()+"/reject", strings.NewReader(`{}`))
	req = addRouteParam(req, "payoutID", uuid.NewString())
	req = asActor(req, uuid.New(), enums.ActorRoleAdmin, nil)
	resp := httptest.NewRecorder()

	handler(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListPayoutsScopesVendor(t *testing.T) {
	vendorID := uuid.New()
	var captured payouts.PayoutFilters
	svc := &fakePayoutService{
		listFn: func(ctx context.Context, params pagination.Params, filters payouts.PayoutFilters) (*payouts.PayoutList, error) {
			captured = filters
			return &payouts.PayoutList{}, nil
		},
	}
	handler := ListPayouts(svc, newTestLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/payouts?vendor_id="+uuid.NewString()+"&status=pending", nil)
	req = asActor(req, uuid.New(), enums.ActorRoleVendor, &vendorID)
	resp := httptest.NewRecorder()

	handler(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, captured.VendorID)
	assert.Equal(t, vendorID, *captured.VendorID)
	require.NotNil(t, captured.Status)
	assert.Equal(t, enums.PayoutStatusPending, *captured.Status)
}

func TestListPayoutsRejectsUnknownRole(t *testing.T) {
	handler := ListPayouts(&fakePayoutService{}, newTestLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/payouts", nil)
	req = asActor(req, uuid.New(), enums.ActorRoleCustomer, nil)
	resp := httptest.NewRecorder()

	handler(resp, req)

	assert.Equal(t, http.StatusForbidden, resp.Code)
}
