package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/catalyst/moodle-availability-paypal/api/controllers"
	privacycontrollers "github.com/catalyst/moodle-availability-paypal/api/controllers/privacy"
	webhookcontrollers "github.com/catalyst/moodle-availability-paypal/api/controllers/webhooks"
	"github.com/catalyst/moodle-availability-paypal/api/middleware"
	pkgAuth "github.com/catalyst/moodle-availability-paypal/pkg/auth"
	"github.com/catalyst/moodle-availability-paypal/pkg/config"
	"github.com/catalyst/moodle-availability-paypal/pkg/logger"
	pkgredis "github.com/catalyst/moodle-availability-paypal/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	deps map[string]controllers.Pinger,
	idempotencyStore pkgredis.IdempotencyStore,
	registry *prometheus.Registry,
	ipnService webhookcontrollers.PayPalIPNService,
	privacyService privacycontrollers.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	// The gateway posts notifications here. No auth; the handler verifies
	// each payload back with the gateway before trusting it.
	r.Post("/ipn", webhookcontrollers.PayPalIPN(ipnService, logg))

	r.Route("/api/v1/privacy", func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, logg),
			middleware.RequireRole(pkgAuth.RoleAdmin, logg),
			middleware.Idempotency(idempotencyStore, logg),
		)

		r.Get("/users/{userid}/contexts", privacycontrollers.ContextsForUser(privacyService, logg))
		r.Get("/contexts/{contextid}/users", privacycontrollers.UsersInContext(privacyService, logg))
		r.Post("/users/{userid}/export", privacycontrollers.ExportUserData(privacyService, logg))
		r.Delete("/contexts/{contextid}", privacycontrollers.DeleteForContext(privacyService, logg))
		r.Delete("/contexts/{contextid}/users", privacycontrollers.DeleteForUsers(privacyService, logg))
		r.Delete("/users/{userid}", privacycontrollers.DeleteForUser(privacyService, logg))
	})

	return r
}
