package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/auth"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/domain"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/service"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/httputil"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/middleware"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/validator"
)

// AuthHandler handles HTTP requests for local sign-in endpoints.
type AuthHandler struct {
	sessions *service.SessionService
	cookies  auth.CookieConfig
	now      func() time.Time
	logger   *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(sessions *service.SessionService, cookies auth.CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, cookies: cookies, now: time.Now, logger: logger}
}

// --- Request DTOs ---

// SignupRequest is the JSON request body for local signup.
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Username string `json:"username" validate:"required,min=3,max=30,username"`
}

// LoginRequest is the JSON request body for password login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// --- Response types ---

// SessionResponse is returned by every endpoint that signs a user in.
type SessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

func newSessionResponse(s *service.Session) SessionResponse {
	return SessionResponse{
		Token:     s.Token.Value,
		ExpiresAt: s.Token.ExpiresAt,
		User:      s.User,
	}
}

// --- Handlers ---

// Signup handles POST /api/v1/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	session, err := h.sessions.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	http.SetCookie(w, h.cookies.Session(session.Token, h.now()))
	httputil.WriteData(w, http.StatusCreated, newSessionResponse(session))
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	session, err := h.sessions.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	http.SetCookie(w, h.cookies.Session(session.Token, h.now()))
	httputil.WriteData(w, http.StatusOK, newSessionResponse(session))
}

// SessionStatus reports whether the caller is signed in.
type SessionStatus struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id,omitempty"`
	Email         string `json:"email,omitempty"`
}

// Session handles GET /api/v1/auth/session. It is mounted behind the
// optional guard, so anonymous callers get authenticated=false while a bad
// token is still a 401.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	status := SessionStatus{}
	if id, ok := middleware.IdentityFromContext(r.Context()); ok {
		status = SessionStatus{Authenticated: true, UserID: id.UserID, Email: id.Email}
	}
	httputil.WriteData(w, http.StatusOK, status)
}

// Logout handles POST /api/v1/auth/logout. Tokens are stateless, so only the
// cookie is cleared; a copied token stays valid until it expires.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.cookies.Clear())
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Status: true})
}
