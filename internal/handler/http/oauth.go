package http

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/auth"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/oauth"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/service"
	apperrors "github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/errors"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/httputil"
)

// stateCookieName binds an authorization request to the browser that started
// it, so a callback URL cannot be replayed in someone else's browser.
const stateCookieName = "oauth_state"

// OAuthConfig configures the federated sign-in endpoints.
type OAuthConfig struct {
	// SuccessRedirect is where the browser lands after a successful
	// callback. When empty the session is returned as JSON instead.
	SuccessRedirect string
	StateTTL        time.Duration
}

// OAuthHandler runs the authorization code flow for registered providers.
type OAuthHandler struct {
	sessions  *service.SessionService
	providers *oauth.Registry
	states    oauth.StateStore
	cookies   auth.CookieConfig
	cfg       OAuthConfig
	now       func() time.Time
	logger    *slog.Logger
}

// NewOAuthHandler creates a new OAuth HTTP handler.
func NewOAuthHandler(
	sessions *service.SessionService,
	providers *oauth.Registry,
	states oauth.StateStore,
	cookies auth.CookieConfig,
	cfg OAuthConfig,
	logger *slog.Logger,
) *OAuthHandler {
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = oauth.DefaultStateTTL
	}
	return &OAuthHandler{
		sessions:  sessions,
		providers: providers,
		states:    states,
		cookies:   cookies,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger,
	}
}

// Login handles GET /api/v1/auth/{provider}/login
func (h *OAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.provider(w, r)
	if !ok {
		return
	}

	state, err := oauth.GenerateState()
	if err != nil {
		httputil.WriteError(w, r, apperrors.Internal(err), h.logger)
		return
	}
	if err := h.states.Save(r.Context(), state); err != nil {
		httputil.WriteError(w, r, apperrors.Internal(err), h.logger)
		return
	}

	http.SetCookie(w, h.stateCookie(state, int(h.cfg.StateTTL/time.Second)))
	http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusFound)
}

// Callback handles GET /api/v1/auth/{provider}/callback
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.provider(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	q := r.URL.Query()

	// The state cookie is single use whatever the outcome.
	http.SetCookie(w, h.stateCookie("", -1))

	if reason := q.Get("error"); reason != "" {
		h.logger.WarnContext(ctx, "identity provider denied sign-in",
			slog.String("provider", provider.Name()),
			slog.String("reason", reason),
		)
		httputil.WriteError(w, r, apperrors.Unauthorized("sign-in was not completed"), h.logger)
		return
	}

	state := q.Get("state")
	if !h.stateMatchesCookie(r, state) {
		h.rejectState(w, r, provider.Name(), "state cookie mismatch")
		return
	}
	valid, err := h.states.Consume(ctx, state)
	if err != nil {
		httputil.WriteError(w, r, apperrors.Internal(err), h.logger)
		return
	}
	if !valid {
		h.rejectState(w, r, provider.Name(), "unknown or reused state")
		return
	}

	profile, err := provider.Exchange(ctx, q.Get("code"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	session, err := h.sessions.FederatedLogin(ctx, *profile)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	http.SetCookie(w, h.cookies.Session(session.Token, h.now()))
	if h.cfg.SuccessRedirect == "" {
		httputil.WriteData(w, http.StatusOK, newSessionResponse(session))
		return
	}
	http.Redirect(w, r, h.cfg.SuccessRedirect, http.StatusFound)
}

func (h *OAuthHandler) provider(w http.ResponseWriter, r *http.Request) (oauth.Provider, bool) {
	name := chi.URLParam(r, "provider")
	p, ok := h.providers.Get(name)
	if !ok {
		httputil.WriteError(w, r, apperrors.NotFoundMessage("unknown identity provider"), h.logger)
		return nil, false
	}
	return p, true
}

func (h *OAuthHandler) stateMatchesCookie(r *http.Request, state string) bool {
	c, err := r.Cookie(stateCookieName)
	if err != nil || c.Value == "" || state == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Value), []byte(state)) == 1
}

func (h *OAuthHandler) rejectState(w http.ResponseWriter, r *http.Request, provider, reason string) {
	h.logger.WarnContext(r.Context(), "oauth callback rejected",
		slog.String("provider", provider),
		slog.String("reason", reason),
	)
	httputil.WriteError(w, r, apperrors.Unauthorized("invalid or expired sign-in request"), h.logger)
}

func (h *OAuthHandler) stateCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     stateCookieName,
		Value:    value,
		Path:     "/api/v1/auth",
		Domain:   h.cookies.Domain,
		MaxAge:   maxAge,
		Secure:   h.cookies.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
