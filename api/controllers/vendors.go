package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/mercaline/marketplace-backend/api/middleware"
	"github.com/mercaline/marketplace-backend/api/responses"
	"github.com/mercaline/marketplace-backend/internal/ledger"
	pkgerrors "github.com/mercaline/marketplace-backend/pkg/errors"
	"github.com/mercaline/marketplace-backend/pkg/logger"
)

type balanceReader interface {
	VendorBalance(ctx context.Context, vendorID uuid.UUID) (*ledger.Balance, error)
}

// GetVendorBalance returns the caller's pending, available, and withheld balances.
func GetVendorBalance(svc balanceReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}
		vendorID := middleware.VendorIDFromContext(r.Context())
		if vendorID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing"))
			return
		}
		balance, err := svc.VendorBalance(r.Context(), *vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, balance)
	}
}
