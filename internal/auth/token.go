package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/errors"
)

// DefaultTokenTTL is how long an issued access token stays valid.
const DefaultTokenTTL = 24 * time.Hour

// Token verification failures. The extractor collapses all three into a
// single unauthorized outcome.
var (
	ErrMalformed        = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpired          = errors.New("token expired")
)

var (
	ErrEmptySecret = errors.New("signing secret must not be empty")
	errEmptyUserID = errors.New("user id must not be empty")
	errInvalidTTL  = errors.New("token ttl must be positive")
)

// Claims is the claim set carried inside an access token.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Token is a signed access token together with its expiry.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenConfig configures a TokenManager.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
	// Leeway is a grace period applied to the expiry check. Zero means a
	// token is rejected as soon as the current second passes its expiry.
	Leeway time.Duration
	Issuer string
}

// TokenOption customizes a TokenManager.
type TokenOption func(*TokenManager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) {
		m.now = now
	}
}

// TokenManager signs and verifies HS256 access tokens. It holds no mutable
// state and is safe for concurrent use.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	leeway time.Duration
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenManager builds a TokenManager from cfg.
func NewTokenManager(cfg TokenConfig, opts ...TokenOption) (*TokenManager, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrEmptySecret
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTokenTTL
	}
	if cfg.Leeway < 0 {
		return nil, fmt.Errorf("token leeway must not be negative: %s", cfg.Leeway)
	}

	m := &TokenManager{
		secret: cfg.Secret,
		ttl:    cfg.TTL,
		leeway: cfg.Leeway,
		issuer: cfg.Issuer,
		now:    time.Now,
		// Registered claims are checked by Decode itself in whole seconds.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithStrictDecoding(),
			jwt.WithoutClaimsValidation(),
		),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// TTL returns the policy lifetime used by Issue.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for the user with the configured TTL.
func (m *TokenManager) Issue(userID, email string) (Token, error) {
	return m.Encode(userID, email, m.ttl)
}

// Encode signs a token for the user that expires ttl from now. Times are
// truncated to whole seconds.
func (m *TokenManager) Encode(userID, email string, ttl time.Duration) (Token, error) {
	if userID == "" {
		return Token{}, apperrors.Validation(errEmptyUserID)
	}
	if ttl <= 0 {
		return Token{}, apperrors.Validation(errInvalidTTL)
	}

	now := m.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(ttl).Truncate(time.Second)

	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}

	return Token{Value: signed, ExpiresAt: expiresAt}, nil
}

// Decode verifies token and returns its claims.
//
// The signature is checked over the raw header and payload before anything
// is parsed, so altering any byte of a well-formed token yields
// ErrInvalidSignature. Strings that are not three dot-separated segments, or
// whose verified payload lacks the expected claims, yield ErrMalformed. A
// token is expired once the current second is past exp plus the leeway.
func (m *TokenManager) Decode(token string) (*Claims, error) {
	segments := strings.Split(token, ".")
	if len(segments) != 3 || segments[0] == "" || segments[1] == "" || segments[2] == "" {
		return nil, ErrMalformed
	}

	sig, err := m.parser.DecodeSegment(segments[2])
	if err != nil {
		return nil, fmt.Errorf("%w: decode signature: %w", ErrInvalidSignature, err)
	}
	signingString := segments[0] + "." + segments[1]
	if err := jwt.SigningMethodHS256.Verify(signingString, sig, m.secret); err != nil {
		return nil, ErrInvalidSignature
	}

	claims := &Claims{}
	if _, err := m.parser.ParseWithClaims(token, claims, m.keyFunc); err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if claims.UserID == "" || claims.ExpiresAt == nil {
		return nil, ErrMalformed
	}

	now := m.now().Unix()
	if now > claims.ExpiresAt.Unix()+int64(m.leeway/time.Second) {
		return nil, ErrExpired
	}

	return claims, nil
}

func (m *TokenManager) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return m.secret, nil
}

