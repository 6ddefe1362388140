package http

import (
	"log/slog"
	"net/http"

	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/service"
	apperrors "github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/errors"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/httputil"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/middleware"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/validator"
)

// UserHandler serves the signed-in user's own account.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// UpdateProfileRequest is the JSON request body for a profile update. Absent
// fields are left unchanged.
type UpdateProfileRequest struct {
	Username  *string `json:"username" validate:"omitempty,min=3,max=30,username"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url,max=2048"`
	Bio       *string `json:"bio" validate:"omitempty,max=500"`
}

// ChangePasswordRequest is the JSON request body for a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"max=72"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// GetProfile handles GET /api/v1/users/me
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetProfile(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, user)
}

// UpdateProfile handles PATCH /api/v1/users/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), userID, service.UpdateProfileInput{
		Username:  req.Username,
		AvatarURL: req.AvatarURL,
		Bio:       req.Bio,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, user)
}

// ChangePassword handles POST /api/v1/users/me/password
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	if err := h.users.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Status: true})
}

// userID reads the caller set by the route guard. Reaching a handler without
// one means the route was mounted outside the guard.
func (h *UserHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := middleware.UserIDFromContext(r.Context())
	if id == "" {
		httputil.WriteError(w, r, apperrors.Unauthorized("unauthorized"), h.logger)
		return "", false
	}
	return id, true
}
