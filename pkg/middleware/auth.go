package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/httputil"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/logger"
)

type contextKeyType string

const identityKey contextKeyType = "identity"

var guardDecisions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_guard_decisions_total",
		Help: "Route guard outcomes by result (accepted, rejected, anonymous)",
	},
	[]string{"result"},
)

// Identity is the verified caller made available to guarded handlers.
type Identity struct {
	UserID string
	Email  string
}

// IdentityExtractor resolves the caller of r. It returns (nil, nil) when the
// request carries no credentials at all and an error when credentials are
// present but unusable.
type IdentityExtractor func(r *http.Request) (*Identity, error)

// Guard rejects requests without a verified identity with a 401 and never
// invokes next for them. The failure reason is logged, not returned.
func Guard(extract IdentityExtractor, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := extract(r)
			if err != nil || id == nil {
				reason := "missing token"
				if err != nil {
					reason = err.Error()
				}
				guardDecisions.WithLabelValues("rejected").Inc()
				requestLogger(r, l).WarnContext(r.Context(), "request rejected by auth guard",
					slog.String("reason", reason),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				writeUnauthorized(w, r)
				return
			}

			guardDecisions.WithLabelValues("accepted").Inc()
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
		})
	}
}

// OptionalGuard lets anonymous requests through untouched but still rejects
// requests whose credentials fail verification.
func OptionalGuard(extract IdentityExtractor, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := extract(r)
			switch {
			case err != nil:
				guardDecisions.WithLabelValues("rejected").Inc()
				requestLogger(r, l).WarnContext(r.Context(), "request rejected by optional auth guard",
					slog.String("reason", err.Error()),
					slog.String("path", r.URL.Path),
				)
				writeUnauthorized(w, r)
			case id == nil:
				guardDecisions.WithLabelValues("anonymous").Inc()
				next.ServeHTTP(w, r)
			default:
				guardDecisions.WithLabelValues("accepted").Inc()
				next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
			}
		})
	}
}

// IdentityFromContext returns the identity stored by Guard, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil
}

// UserIDFromContext returns the verified user id, or "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := IdentityFromContext(ctx); ok {
		return id.UserID
	}
	return ""
}

// withIdentity stores id and re-scopes the request logger with its user id.
func withIdentity(ctx context.Context, id *Identity) context.Context {
	ctx = context.WithValue(ctx, identityKey, id)
	ctx = logger.WithUserID(ctx, id.UserID)
	if l := logger.FromContext(ctx); l != slog.Default() {
		ctx = logger.NewContext(ctx, l.With(slog.String("user_id", id.UserID)))
	}
	return ctx
}

func requestLogger(r *http.Request, fallback *slog.Logger) *slog.Logger {
	if l := logger.FromContext(r.Context()); l != slog.Default() || fallback == nil {
		return l
	}
	return fallback
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="forum"`)
	httputil.WriteFailure(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
}
