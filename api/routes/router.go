package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mercaline/marketplace-backend/api/controllers"
	"github.com/mercaline/marketplace-backend/api/middleware"
	"github.com/mercaline/marketplace-backend/internal/carriers"
	"github.com/mercaline/marketplace-backend/internal/ledger"
	"github.com/mercaline/marketplace-backend/internal/notifications"
	"github.com/mercaline/marketplace-backend/internal/orders"
	"github.com/mercaline/marketplace-backend/internal/payouts"
	"github.com/mercaline/marketplace-backend/pkg/config"
	"github.com/mercaline/marketplace-backend/pkg/enums"
	"github.com/mercaline/marketplace-backend/pkg/logger"
	pkgredis "github.com/mercaline/marketplace-backend/pkg/redis"
)

type balanceService interface {
	VendorBalance(ctx context.Context, vendorID uuid.UUID) (*ledger.Balance, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient pkgredis.IdempotencyStore,
	ordersService orders.Service,
	payoutsService payouts.Service,
	ledgerService balanceService,
	notificationsService notifications.Service,
	carrierRegistry *carriers.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(ordersService, logg))
			r.Get("/{orderID}", controllers.GetOrder(ordersService, logg))
			r.Get("/{orderID}/timeline", controllers.OrderTimeline(ordersService, logg))
			r.Post("/{orderID}/confirm", controllers.ConfirmOrder(ordersService, logg))
			r.Post("/{orderID}/processing", controllers.StartOrderProcessing(ordersService, logg))
			r.Post("/{orderID}/out-for-delivery", controllers.MarkOrderOutForDelivery(ordersService, logg))
			r.Post("/{orderID}/delivery-confirmation", controllers.ConfirmOrderDelivery(ordersService, logg))
			r.Post("/{orderID}/delivery-failure", controllers.ReportDeliveryFailure(ordersService, logg))
			r.With(middleware.RequireRoles(logg, enums.ActorRoleAdmin)).Post("/{orderID}/cod-verification", controllers.VerifyOrderCOD(ordersService, logg))
			r.Post("/{orderID}/complete", controllers.CompleteOrder(ordersService, logg))
			r.Post("/{orderID}/cancel", controllers.CancelOrder(ordersService, logg))
			r.Post("/items/{itemID}/status", controllers.UpdateOrderItemStatus(ordersService, logg))
		})

		r.Route("/payouts", func(r chi.Router) {
			r.Get("/", controllers.ListPayouts(payoutsService, logg))
			r.Get("/{payoutID}", controllers.GetPayout(payoutsService, logg))
			r.With(middleware.RequireVendorContext(logg)).Post("/", controllers.RequestPayout(payoutsService, logg))
			r.With(middleware.RequireRoles(logg, enums.ActorRoleAdmin)).Post("/{payoutID}/approve", controllers.ApprovePayout(payoutsService, logg))
			r.With(middleware.RequireRoles(logg, enums.ActorRoleAdmin)).Post("/{payoutID}/reject", controllers.RejectPayout(payoutsService, logg))
			r.Post("/{payoutID}/cancel", controllers.CancelPayout(payoutsService, logg))
		})

		r.With(middleware.RequireVendorContext(logg)).Get("/vendor/balance", controllers.GetVendorBalance(ledgerService, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationID}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})

		r.Get("/tracking/{carrier}/{trackingNumber}", controllers.GetTracking(carrierRegistry, logg))
	})

	return r
}
