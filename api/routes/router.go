package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/partnerledger/backend/api/controllers"
	"github.com/partnerledger/backend/api/middleware"
	"github.com/partnerledger/backend/internal/notifications"
	"github.com/partnerledger/backend/pkg/config"
	"github.com/partnerledger/backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter builds the operational HTTP surface: liveness/readiness
// probes, the prometheus scrape endpoint, and the notification feed.
// Pipeline writes run through the workers, not over HTTP.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP pinger,
	redisClient pinger,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/v1/notifications", func(r chi.Router) {
		r.Get("/", controllers.ListNotifications(notificationsService, logg))
		r.Post("/{notificationID}/read", controllers.MarkNotificationRead(notificationsService, logg))
		r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
