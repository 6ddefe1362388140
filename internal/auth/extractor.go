package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/errors"
)

// DefaultCookieName is the cookie that carries the access token.
const DefaultCookieName = "access_token"

// Reasons attached to UnauthorizedError.
const (
	ReasonMissingToken     = "missing token"
	ReasonInvalidHeader    = "invalid authorization header"
	ReasonInvalidSignature = "invalid signature"
	ReasonMalformed        = "malformed token"
	ReasonExpired          = "token expired"
)

// TokenDecoder verifies a raw token string.
type TokenDecoder interface {
	Decode(token string) (*Claims, error)
}

// Identity is the verified caller of a request. It is built from the token
// alone; the user record is not consulted, so a deleted account keeps a
// valid identity until its token expires.
type Identity struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// UnauthorizedError is returned by Extract for every failure. Reason is meant
// for logs and metrics only; clients get a generic 401.
type UnauthorizedError struct {
	Reason string
	Err    error
}

func (e *UnauthorizedError) Error() string {
	if e.Err != nil {
		return "unauthorized: " + e.Reason + ": " + e.Err.Error()
	}
	return "unauthorized: " + e.Reason
}

// Unwrap exposes both apperrors.ErrUnauthorized and the underlying cause.
func (e *UnauthorizedError) Unwrap() []error {
	if e.Err != nil {
		return []error{apperrors.ErrUnauthorized, e.Err}
	}
	return []error{apperrors.ErrUnauthorized}
}

// Extractor locates and verifies the bearer token of a request. The
// Authorization header is consulted first and the cookie only when the
// header is absent.
type Extractor struct {
	decoder    TokenDecoder
	cookieName string
}

// NewExtractor returns an Extractor reading the named cookie as fallback.
func NewExtractor(decoder TokenDecoder, cookieName string) *Extractor {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &Extractor{decoder: decoder, cookieName: cookieName}
}

// Extract returns the verified identity of r or an *UnauthorizedError.
func (e *Extractor) Extract(r *http.Request) (*Identity, error) {
	raw, err := e.token(r)
	if err != nil {
		return nil, err
	}

	claims, err := e.decoder.Decode(raw)
	if err != nil {
		return nil, &UnauthorizedError{Reason: reasonFor(err), Err: err}
	}

	id := &Identity{UserID: claims.UserID, Email: claims.Email}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

func (e *Extractor) token(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, value, ok := strings.Cut(header, " ")
		value = strings.TrimSpace(value)
		if !ok || !strings.EqualFold(scheme, "bearer") || value == "" {
			return "", &UnauthorizedError{Reason: ReasonInvalidHeader}
		}
		return value, nil
	}

	if c, err := r.Cookie(e.cookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}

	return "", &UnauthorizedError{Reason: ReasonMissingToken}
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, ErrExpired):
		return ReasonExpired
	case errors.Is(err, ErrInvalidSignature):
		return ReasonInvalidSignature
	default:
		return ReasonMalformed
	}
}
