package http

import (
	"errors"
	"mime"
	"net/http"

	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/auth"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/httputil"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/middleware"
)

// ContentTypeJSON rejects request bodies that are not declared as JSON.
// Bodyless requests such as logout pass through.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength != 0 {
			mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mt != "application/json" {
				httputil.WriteFailure(w, r, http.StatusUnsupportedMediaType,
					"UNSUPPORTED_MEDIA_TYPE", "Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// identityExtractor adapts the token extractor to the route guard. A request
// with no token at all is anonymous rather than invalid, which is what lets
// OptionalGuard tell the two apart.
func identityExtractor(ex *auth.Extractor) middleware.IdentityExtractor {
	return func(r *http.Request) (*middleware.Identity, error) {
		id, err := ex.Extract(r)
		if err != nil {
			var ue *auth.UnauthorizedError
			if errors.As(err, &ue) && ue.Reason == auth.ReasonMissingToken {
				return nil, nil
			}
			return nil, err
		}
		return &middleware.Identity{UserID: id.UserID, Email: id.Email}, nil
	}
}
