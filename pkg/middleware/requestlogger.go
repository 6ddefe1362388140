package middleware

import (
	"log/slog"
	"net/http"

	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/logger"
)

// RequestLogger stores a logger enriched with correlation_id and trace ids in
// the request context, retrievable with logger.FromContext. Mount it after
// RequestLogging and Tracing. Guard later adds user_id to the same logger.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if userID := UserIDFromContext(ctx); userID != "" {
				ctx = logger.WithUserID(ctx, userID)
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
