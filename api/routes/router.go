package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/rentalcrm-backend/api/controllers"
	crmcontrollers "github.com/angelmondragon/rentalcrm-backend/api/controllers/crm"
	trackingcontrollers "github.com/angelmondragon/rentalcrm-backend/api/controllers/tracking"
	"github.com/angelmondragon/rentalcrm-backend/api/middleware"
	"github.com/angelmondragon/rentalcrm-backend/internal/crmadmin"
	"github.com/angelmondragon/rentalcrm-backend/pkg/config"
	"github.com/angelmondragon/rentalcrm-backend/pkg/enums"
	"github.com/angelmondragon/rentalcrm-backend/pkg/kv"
	"github.com/angelmondragon/rentalcrm-backend/pkg/logger"
)

// NewRouter wires the public tracking surface, the CRM admin API and the
// operational endpoints. limiter, publisher and metricsHandler are optional.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	pingers map[string]kv.Pinger,
	limiter middleware.WindowLimiter,
	processor trackingcontrollers.EventProcessor,
	publisher trackingcontrollers.EventPublisher,
	crmService crmadmin.Service,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	trackPolicy := middleware.NewRateLimitPolicy(
		"track",
		cfg.RateLimit.TrackWindow,
		cfg.RateLimit.TrackIPLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pingers))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.With(middleware.RateLimit(trackPolicy, limiter, logg)).
			Post("/track-event", trackingcontrollers.TrackEvent(processor, publisher, cfg.Tracking.MaxBodyBytes, logg))
	})

	r.Route("/api/v1/crm", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireCRMReader(logg))

		r.Route("/contacts", func(r chi.Router) {
			r.Get("/", crmcontrollers.ListContacts(crmService, logg))
			r.Get("/lookup", crmcontrollers.LookupContact(crmService, logg))
			r.Get("/{contactId}", crmcontrollers.ContactDetail(crmService, logg))
			r.Get("/{contactId}/activities", crmcontrollers.ContactActivities(crmService, logg))
			r.Get("/{contactId}/tasks", crmcontrollers.ContactTasks(crmService, logg))
		})

		r.With(middleware.RequireRole(logg, enums.StaffRoleAdmin)).
			Delete("/data", crmcontrollers.ClearData(crmService, cfg.CRM.ClearAllowed(cfg.App), logg))
	})

	return r
}
