package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/auth"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/domain"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/repository"
	apperrors "github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/errors"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 30
	maxBioLength      = 500
)

// UpdateProfileInput holds the profile fields to change. Nil fields are left
// untouched.
type UpdateProfileInput struct {
	Username  *string
	AvatarURL *string
	Bio       *string
}

// UserService manages the signed-in user's own account.
type UserService struct {
	users  repository.UserRepository
	hasher auth.Hasher
	logger *slog.Logger
	now    func() time.Time
}

// NewUserService creates a new user service.
func NewUserService(users repository.UserRepository, hasher auth.Hasher, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		hasher: hasher,
		logger: logger,
		now:    time.Now,
	}
}

// GetProfile returns the account with the given id.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields of input.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		n := utf8.RuneCountInString(username)
		if n < minUsernameLength || n > maxUsernameLength {
			return nil, apperrors.InvalidInput(fmt.Sprintf("username must be between %d and %d characters", minUsernameLength, maxUsernameLength))
		}
		user.Username = username
	}
	if input.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*input.AvatarURL)
	}
	if input.Bio != nil {
		if utf8.RuneCountInString(*input.Bio) > maxBioLength {
			return nil, apperrors.InvalidInput(fmt.Sprintf("bio must not exceed %d characters", maxBioLength))
		}
		user.Bio = *input.Bio
	}
	user.UpdatedAt = s.now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.InfoContext(ctx, "profile updated", slog.String("user_id", user.ID))
	return user, nil
}

// ChangePassword replaces the account password. Accounts created by
// federated sign-in have no password yet and may set one without supplying
// a current password.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if err := auth.ValidatePassword(next); err != nil {
		return err
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}

	if user.HasPassword() {
		if current == "" {
			return apperrors.InvalidInput("current password is required")
		}
		if !s.hasher.Verify(current, user.PasswordHash) {
			s.logger.WarnContext(ctx, "password change rejected",
				slog.String("user_id", user.ID),
				slog.String("reason", "password_mismatch"),
			)
			return apperrors.InvalidCredentials("current password is incorrect")
		}
		if current == next {
			return apperrors.InvalidInput("new password must differ from the current one")
		}
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.logger.InfoContext(ctx, "password changed", slog.String("user_id", user.ID))
	return nil
}
