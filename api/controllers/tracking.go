package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mercaline/marketplace-backend/api/responses"
	"github.com/mercaline/marketplace-backend/internal/carriers"
	"github.com/mercaline/marketplace-backend/pkg/enums"
	pkgerrors "github.com/mercaline/marketplace-backend/pkg/errors"
	"github.com/mercaline/marketplace-backend/pkg/logger"
)

// GetTracking fetches live tracking details from the named carrier.
func GetTracking(registry *carriers.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		carrierName, err := enums.ParseCarrier(strings.TrimSpace(chi.URLParam(r, "carrier")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid carrier"))
			return
		}
		trackingNumber := strings.TrimSpace(chi.URLParam(r, "trackingNumber"))
		if trackingNumber == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "tracking number is required"))
			return
		}

		carrier, err := registry.For(carrierName)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !carrier.ValidateTrackingNumber(trackingNumber) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "malformed tracking number"))
			return
		}
		info, err := carrier.GetTrackingInfo(r.Context(), trackingNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, info)
	}
}
