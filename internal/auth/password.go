package auth

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/errors"
)

const (
	// DefaultBcryptCost is the work factor used when none is configured.
	DefaultBcryptCost = 12

	// MaxPasswordBytes is bcrypt's input limit. Longer inputs would be
	// silently truncated, so they are rejected instead.
	MaxPasswordBytes = 72

	// MinPasswordLength is the signup and password change policy minimum.
	MinPasswordLength = 8
)

var (
	ErrPasswordTooLong  = fmt.Errorf("password must not exceed %d bytes", MaxPasswordBytes)
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrInvalidCost      = errors.New("invalid bcrypt cost")
)

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// BcryptHasher is a Hasher backed by bcrypt. Every Hash call draws a fresh
// random salt, so hashing the same password twice yields different strings.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher with the given cost.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: %d (want %d..%d)", ErrInvalidCost, cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

// Hash returns the bcrypt hash of plaintext. Inputs over MaxPasswordBytes are
// rejected with a validation error.
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", apperrors.Validation(ErrPasswordTooLong)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches hash. A malformed hash or an
// over-long candidate simply fails to match.
func (h *BcryptHasher) Verify(plaintext, hash string) bool {
	if len(plaintext) > MaxPasswordBytes || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// Cost returns the configured work factor.
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// ValidatePassword applies the length policy for new passwords.
func ValidatePassword(plaintext string) error {
	if utf8.RuneCountInString(plaintext) < MinPasswordLength {
		return apperrors.Validation(ErrPasswordTooShort)
	}
	if len(plaintext) > MaxPasswordBytes {
		return apperrors.Validation(ErrPasswordTooLong)
	}
	return nil
}
