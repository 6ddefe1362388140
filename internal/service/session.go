package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/auth"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/domain"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/event"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/repository"
	apperrors "github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/errors"
)

// invalidLogin is the only message a failed login ever returns, so callers
// cannot tell which part of the credentials was wrong.
const invalidLogin = "invalid email or password"

var sessionsIssued = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_sessions_issued_total",
		Help: "Access tokens issued, by sign-in method",
	},
	[]string{"method"},
)

var loginFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_login_failures_total",
		Help: "Rejected sign-in attempts, by reason",
	},
	[]string{"reason"},
)

// TokenIssuer signs access tokens. *auth.TokenManager satisfies it.
type TokenIssuer interface {
	Issue(userID, email string) (auth.Token, error)
}

// EventPublisher announces account activity. *event.Producer satisfies it.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, user *domain.User) error
	PublishUserLoggedIn(ctx context.Context, user *domain.User, method string) error
}

// Session is an authenticated user together with their access token.
type Session struct {
	User  *domain.User `json:"user"`
	Token auth.Token   `json:"-"`
}

// LoginInput holds the credentials for a password login.
type LoginInput struct {
	Email    string
	Password string
}

// RegisterInput holds the parameters for a local signup.
type RegisterInput struct {
	Email    string
	Password string
	Username string
}

// SessionService turns verified credentials into sessions.
type SessionService struct {
	users     repository.UserRepository
	hasher    auth.Hasher
	tokens    TokenIssuer
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewSessionService creates a new session service.
func NewSessionService(
	users repository.UserRepository,
	hasher auth.Hasher,
	tokens TokenIssuer,
	publisher EventPublisher,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Login verifies an email and password pair. An unknown email is reported
// as not found; an inactive account or a wrong password as invalid
// credentials. Both carry the same message.
func (s *SessionService) Login(ctx context.Context, input LoginInput) (*Session, error) {
	email := domain.NormalizeEmail(input.Email)
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if input.Password == "" {
		return nil, apperrors.InvalidInput("password is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.rejectLogin(ctx, "unknown_email", email)
			return nil, apperrors.NotFoundMessage(invalidLogin)
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	switch {
	case !user.IsActive:
		s.rejectLogin(ctx, "inactive", email)
		return nil, apperrors.InvalidCredentials(invalidLogin)
	case !user.HasPassword():
		s.rejectLogin(ctx, "no_password", email)
		return nil, apperrors.InvalidCredentials(invalidLogin)
	case !s.hasher.Verify(input.Password, user.PasswordHash):
		s.rejectLogin(ctx, "password_mismatch", email)
		return nil, apperrors.InvalidCredentials(invalidLogin)
	}

	session, err := s.issue(user, event.MethodPassword)
	if err != nil {
		return nil, err
	}

	s.publishLoggedIn(ctx, user, event.MethodPassword)
	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("method", event.MethodPassword),
	)
	return session, nil
}

// Register creates a local account and signs it in.
func (s *SessionService) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	email := domain.NormalizeEmail(input.Email)
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, apperrors.InvalidInput("username is required")
	}
	if err := auth.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Provider:     domain.ProviderLocal,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.publisher.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", user.ID))

	return s.issue(user, event.MethodPassword)
}

// FederatedLogin signs in a person vouched for by an identity provider. The
// account is found or created by email in a single statement, so repeated
// callbacks for the same address always land on the same user.
func (s *SessionService) FederatedLogin(ctx context.Context, profile domain.ExternalProfile) (*Session, error) {
	email := domain.NormalizeEmail(profile.Email)
	if email == "" {
		return nil, apperrors.ProviderError(profile.Provider, errors.New("profile has no email"))
	}
	profile.Email = email

	now := s.now().UTC()
	candidate := &domain.User{
		ID:              uuid.New().String(),
		Email:           email,
		Username:        domain.UsernameFromProfile(profile),
		AvatarURL:       profile.AvatarURL,
		Provider:        profile.Provider,
		ProviderSubject: profile.Subject,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	user, err := s.users.UpsertByEmail(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("upsert federated user: %w", err)
	}
	if !user.IsActive {
		s.rejectLogin(ctx, "inactive", email)
		return nil, apperrors.InvalidCredentials("account is deactivated")
	}

	session, err := s.issue(user, profile.Provider)
	if err != nil {
		return nil, err
	}

	if user.ID == candidate.ID {
		if err := s.publisher.PublishUserRegistered(ctx, user); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish user registered event",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	s.publishLoggedIn(ctx, user, profile.Provider)
	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("method", profile.Provider),
		slog.Bool("created", user.ID == candidate.ID),
	)
	return session, nil
}

func (s *SessionService) issue(user *domain.User, method string) (*Session, error) {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("issue token: %w", err))
	}
	sessionsIssued.WithLabelValues(method).Inc()
	return &Session{User: user, Token: token}, nil
}

func (s *SessionService) publishLoggedIn(ctx context.Context, user *domain.User, method string) {
	if err := s.publisher.PublishUserLoggedIn(ctx, user, method); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user logged in event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *SessionService) rejectLogin(ctx context.Context, reason, email string) {
	loginFailures.WithLabelValues(reason).Inc()
	s.logger.WarnContext(ctx, "login rejected",
		slog.String("reason", reason),
		slog.String("email", email),
	)
}
