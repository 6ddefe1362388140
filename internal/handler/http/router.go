package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/auth"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/oauth"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/service"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/health"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/httputil"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/middleware"
)

// RouterDeps collects what NewRouter mounts.
type RouterDeps struct {
	ServiceName string
	Sessions    *service.SessionService
	Users       *service.UserService
	Extractor   *auth.Extractor
	Cookies     auth.CookieConfig
	Providers   *oauth.Registry
	States      oauth.StateStore
	OAuth       OAuthConfig
	Health      *health.Handler
	CORS        middleware.CORSConfig

	// PprofAllowedCIDRs enables /debug/pprof for callers in these ranges.
	PprofAllowedCIDRs []string

	// LoginLimiter throttles signup and password login per client IP. Nil
	// disables throttling.
	LoginLimiter *middleware.RateLimiter

	Logger *slog.Logger
}

// NewRouter creates a chi router with all auth service routes registered.
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestLogging(d.Logger))
	r.Use(middleware.Tracing(d.ServiceName))
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.PrometheusMetrics(d.ServiceName))
	r.Use(middleware.CORS(d.CORS))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteFailure(w, r, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteFailure(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	// Health check endpoints
	r.Get("/health/live", d.Health.LivenessHandler())
	r.Get("/health/ready", d.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	if middleware.RegisterPprof(r, d.PprofAllowedCIDRs, d.Logger) {
		d.Logger.Info("pprof endpoints enabled", slog.Any("allowed_cidrs", d.PprofAllowedCIDRs))
	}

	extract := identityExtractor(d.Extractor)

	authHandler := NewAuthHandler(d.Sessions, d.Cookies, d.Logger)
	oauthHandler := NewOAuthHandler(d.Sessions, d.Providers, d.States, d.Cookies, d.OAuth, d.Logger)
	userHandler := NewUserHandler(d.Users, d.Logger)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(ContentTypeJSON)

		r.Group(func(r chi.Router) {
			if d.LoginLimiter != nil {
				r.Use(d.LoginLimiter.Middleware)
			}
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
		})
		r.Post("/logout", authHandler.Logout)
		r.With(middleware.OptionalGuard(extract, d.Logger)).Get("/session", authHandler.Session)

		r.Get("/{provider}/login", oauthHandler.Login)
		r.Get("/{provider}/callback", oauthHandler.Callback)
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(ContentTypeJSON)
		r.Use(middleware.Guard(extract, d.Logger))

		r.Get("/me", userHandler.GetProfile)
		r.Patch("/me", userHandler.UpdateProfile)
		r.Post("/me/password", userHandler.ChangePassword)
	})

	return r
}
