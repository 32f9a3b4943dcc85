package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mashael7430-ux/MPADCS/api/controllers"
	"github.com/mashael7430-ux/MPADCS/api/middleware"
	"github.com/mashael7430-ux/MPADCS/internal/administration"
	"github.com/mashael7430-ux/MPADCS/internal/auth"
	"github.com/mashael7430-ux/MPADCS/internal/disposal"
	"github.com/mashael7430-ux/MPADCS/internal/ledger"
	"github.com/mashael7430-ux/MPADCS/internal/supply"
	"github.com/mashael7430-ux/MPADCS/pkg/auth/session"
	"github.com/mashael7430-ux/MPADCS/pkg/config"
	"github.com/mashael7430-ux/MPADCS/pkg/db"
	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	"github.com/mashael7430-ux/MPADCS/pkg/estimator"
	"github.com/mashael7430-ux/MPADCS/pkg/logger"
	pkgredis "github.com/mashael7430-ux/MPADCS/pkg/redis"
)

// RedisStore is the slice of the redis client the HTTP layer depends on.
type RedisStore interface {
	pkgredis.IdempotencyStore
	Ping(ctx context.Context) error
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Services groups everything the router hands to controllers.
type Services struct {
	Auth           auth.Service
	Ledger         ledger.Service
	Auditor        controllers.Auditor
	Administration administration.Service
	Supply         supply.Service
	Disposal       disposal.Service
	Dashboard      controllers.Summarizer
	Preferences    controllers.PreferenceStore
	Estimator      estimator.Estimator
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient RedisStore,
	sessions session.AccessSessionChecker,
	registry *prometheus.Registry,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginStaffLimit,
	)
	refreshPolicy := middleware.NewAuthRateLimitPolicy(
		"refresh",
		cfg.AuthRateLimit.RefreshWindow,
		cfg.AuthRateLimit.RefreshIPLimit,
		0,
	)
	idempotencyTTLs := middleware.IdempotencyTTLs{
		Default:  cfg.AuthRateLimit.IdempotencyTTL,
		Critical: cfg.AuthRateLimit.DispenseDedupTTL,
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisClient,
		}))
	})
	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svc.Auth, logg))
		r.With(middleware.AuthRateLimit(refreshPolicy, redisClient, logg)).Post("/refresh", controllers.AuthRefresh(svc.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(svc.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(redisClient, idempotencyTTLs, logg))

		view := middleware.RequireCapability(enums.CapabilityView, logg)
		manage := middleware.RequireCapability(enums.CapabilityManageInventory, logg)

		r.Route("/staff", func(r chi.Router) {
			r.Use(middleware.RequireCapability(enums.CapabilityManageStaff, logg))
			r.Get("/", controllers.StaffList(svc.Auth, logg))
			r.Post("/", controllers.StaffCreate(svc.Auth, logg))
			r.Put("/{staffId}/active", controllers.StaffSetActive(svc.Auth, logg))
		})

		r.Route("/medications", func(r chi.Router) {
			r.With(view).Get("/", controllers.MedicationList(svc.Ledger, logg))
			r.With(manage).Post("/", controllers.MedicationCreate(svc.Ledger, logg))
			r.With(view).Get("/dispensable", controllers.MedicationDispensable(svc.Ledger, logg))
			r.With(view).Get("/{medicationId}", controllers.MedicationGet(svc.Ledger, logg))
			r.With(manage).Put("/{medicationId}", controllers.MedicationUpdate(svc.Ledger, logg))
			r.With(view).Post("/{medicationId}/audit", controllers.MedicationAudit(svc.Auditor, svc.Estimator, logg))
		})

		r.Route("/administrations", func(r chi.Router) {
			r.With(middleware.RequireCapability(enums.CapabilityDispense, logg)).
				Post("/", controllers.AdministrationCreate(svc.Administration, svc.Estimator, logg))
			r.With(view).Get("/", controllers.AdministrationHistory(svc.Administration, logg))
		})
		r.With(view).Get("/patients", controllers.PatientList(svc.Administration, logg))

		r.Route("/supply-requests", func(r chi.Router) {
			r.With(middleware.RequireCapability(enums.CapabilitySupplyInitiate, logg)).
				Post("/", controllers.SupplyCreate(svc.Supply, logg))
			r.With(view).Get("/", controllers.SupplyList(svc.Supply, logg))
			r.With(view).Get("/{requestId}", controllers.SupplyGet(svc.Supply, logg))
			r.With(middleware.RequireCapability(enums.CapabilitySupplyApprove, logg)).
				Post("/{requestId}/resolve", controllers.SupplyResolve(svc.Supply, logg))
		})

		r.Route("/disposals", func(r chi.Router) {
			initiate := middleware.RequireCapability(enums.CapabilityDisposalInitiate, logg)
			r.With(initiate).Post("/", controllers.DisposalCreate(svc.Disposal, logg))
			r.With(initiate).Post("/prefill", controllers.DisposalPrefill(svc.Disposal, logg))
			r.With(view).Get("/", controllers.DisposalList(svc.Disposal, logg))
			r.With(view).Get("/{recordId}", controllers.DisposalGet(svc.Disposal, logg))
			r.With(middleware.RequireCapability(enums.CapabilityDisposalApprove, logg)).
				Post("/{recordId}/resolve", controllers.DisposalResolve(svc.Disposal, logg))
		})

		r.With(view).Get("/dashboard", controllers.DashboardSummary(svc.Dashboard, logg))

		r.Route("/preferences", func(r chi.Router) {
			r.Use(view)
			r.Get("/{key}", controllers.PreferenceGet(svc.Preferences, logg))
			r.Put("/{key}", controllers.PreferencePut(svc.Preferences, logg))
		})
	})

	return r
}
