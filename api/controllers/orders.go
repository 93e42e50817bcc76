package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mercaline/marketplace-backend/api/middleware"
	"github.com/mercaline/marketplace-backend/api/responses"
	"github.com/mercaline/marketplace-backend/api/validators"
	"github.com/mercaline/marketplace-backend/internal/orders"
	"github.com/mercaline/marketplace-backend/pkg/enums"
	pkgerrors "github.com/mercaline/marketplace-backend/pkg/errors"
	"github.com/mercaline/marketplace-backend/pkg/logger"
	"github.com/mercaline/marketplace-backend/pkg/pagination"
)

func orderActor(r *http.Request) orders.Actor {
	return orders.Actor{
		UserID: middleware.UserIDFromContext(r.Context()),
		Role:   middleware.RoleFromContext(r.Context()),
	}
}

func orderIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return id, nil
}

// GetOrder returns a single order with items.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ListOrders returns paginated orders scoped by the caller's role.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		filters := orders.OrderFilters{
			Query: validators.SanitizeString(r.URL.Query().Get("q"), 120),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.OrderStatus(raw)
			if !status.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status"))
				return
			}
			filters.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("payment_method")); raw != "" {
			method := enums.PaymentMethod(raw)
			if !method.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method"))
				return
			}
			filters.PaymentMethod = &method
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("date_from")); raw != "" {
			from, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date_from"))
				return
			}
			filters.DateFrom = &from
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("date_to")); raw != "" {
			to, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date_to"))
				return
			}
			filters.DateTo = &to
		}

		// non-admin callers only ever see their own orders
		actor := orderActor(r)
		switch actor.Role {
		case enums.ActorRoleVendor:
			vendorID := middleware.VendorIDFromContext(r.Context())
			if vendorID == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing"))
				return
			}
			filters.VendorID = vendorID
		case enums.ActorRoleCustomer:
			customerID := actor.UserID
			filters.CustomerID = &customerID
		case enums.ActorRoleAdmin:
			if raw := strings.TrimSpace(r.URL.Query().Get("customer_id")); raw != "" {
				id, err := uuid.Parse(raw)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer id"))
					return
				}
				filters.CustomerID = &id
			}
			if raw := strings.TrimSpace(r.URL.Query().Get("vendor_id")); raw != "" {
				id, err := uuid.Parse(raw)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vendor id"))
					return
				}
				filters.VendorID = &id
			}
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required"))
			return
		}

		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// OrderTimeline returns the audit trail for an order.
func OrderTimeline(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := svc.Timeline(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"timeline": entries})
	}
}

type confirmOrderRequest struct {
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=500"`
}

// ConfirmOrder transitions a pending order to confirmed and books commissions.
func ConfirmOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body confirmOrderRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		order, err := svc.Confirm(r.Context(), orders.ConfirmInput{
			OrderID: orderID,
			Actor:   orderActor(r),
			Comment: body.Comment,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// StartOrderProcessing moves a confirmed order into fulfillment.
func StartOrderProcessing(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.StartProcessing(r.Context(), orders.StartProcessingInput{
			OrderID: orderID,
			Actor:   orderActor(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type outForDeliveryRequest struct {
	DeliveryPersonID uuid.UUID `json:"delivery_person_id" validate:"required"`
}

// MarkOrderOutForDelivery assigns a courier and hands off the order.
func MarkOrderOutForDelivery(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body outForDeliveryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.MarkOutForDelivery(r.Context(), orders.MarkOutForDeliveryInput{
			OrderID:          orderID,
			DeliveryPersonID: body.DeliveryPersonID,
			Actor:            orderActor(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type confirmDeliveryRequest struct {
	AmountCollectedCents *int       `json:"amount_collected_cents,omitempty" validate:"omitempty,min=0"`
	CollectedByUserID    *uuid.UUID `json:"collected_by_user_id,omitempty"`
}

// ConfirmOrderDelivery records the hand-off, including COD collection.
func ConfirmOrderDelivery(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body confirmDeliveryRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		order, err := svc.ConfirmDelivery(r.Context(), orders.ConfirmDeliveryInput{
			OrderID:              orderID,
			AmountCollectedCents: body.AmountCollectedCents,
			CollectedByUserID:    body.CollectedByUserID,
			Actor:                orderActor(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type deliveryFailureRequest struct {
	Reason     string `json:"reason" validate:"required,max=500"`
	Reschedule bool   `json:"reschedule,omitempty"`
}

// ReportDeliveryFailure records a failed attempt and reschedules or fails the order.
func ReportDeliveryFailure(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body deliveryFailureRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.HandleDeliveryFailure(r.Context(), orders.DeliveryFailureInput{
			OrderID:    orderID,
			Reason:     validators.SanitizeString(body.Reason, 500),
			Reschedule: body.Reschedule,
			Actor:      orderActor(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// CompleteOrder finalizes a delivered order once the holding period elapsed.
func CompleteOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Complete(r.Context(), orders.CompleteInput{
			OrderID: orderID,
			Actor:   orderActor(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type verifyCODRequest struct {
	Note *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

// VerifyOrderCOD resolves a flagged cash collection after manual
// reconciliation, releasing the vendor's withheld commissions.
func VerifyOrderCOD(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body verifyCODRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		order, err := svc.VerifyCODCollection(r.Context(), orders.VerifyCODInput{
			OrderID: orderID,
			Note:    body.Note,
			Actor:   orderActor(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// CancelOrder cancels an order that has not been handed off yet.
func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body cancelOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Cancel(r.Context(), orders.CancelInput{
			OrderID: orderID,
			Reason:  validators.SanitizeString(body.Reason, 500),
			Actor:   orderActor(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type updateItemStatusRequest struct {
	OrderID        uuid.UUID `json:"order_id" validate:"required"`
	Status         string    `json:"status" validate:"required"`
	TrackingNumber *string   `json:"tracking_number,omitempty" validate:"omitempty,max=64"`
	Carrier        *string   `json:"carrier,omitempty"`
	Version        int       `json:"version" validate:"min=0"`
}

// UpdateOrderItemStatus advances one vendor's portion of an order.
func UpdateOrderItemStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawItemID := strings.TrimSpace(chi.URLParam(r, "itemID"))
		itemID, err := uuid.Parse(rawItemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id"))
			return
		}
		var body updateItemStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := enums.OrderItemStatus(body.Status)
		if !status.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid item status"))
			return
		}
		input := orders.UpdateItemStatusInput{
			OrderID: body.OrderID,
			ItemID:  itemID,
			Status:  status,
			Version: body.Version,
			Actor:   orderActor(r),
		}
		if body.TrackingNumber != nil {
			input.TrackingNumber = body.TrackingNumber
		}
		if body.Carrier != nil {
			carrier, err := enums.ParseCarrier(*body.Carrier)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid carrier"))
				return
			}
			input.Carrier = &carrier
		}
		item, err := svc.UpdateItemStatus(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}
