package domain

import (
	"strings"
	"time"
)

// ProviderLocal marks accounts created through email and password signup.
const ProviderLocal = "local"

// User is a forum account. Email is the identity key shared by local and
// federated sign-in, stored normalised.
type User struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Username        string    `json:"username"`
	PasswordHash    string    `json:"-"`
	AvatarURL       string    `json:"avatar_url,omitempty"`
	Bio             string    `json:"bio,omitempty"`
	Provider        string    `json:"provider"`
	ProviderSubject string    `json:"-"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HasPassword reports whether the account can sign in with a password.
// Accounts created by federated sign-in have none until they set one.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// ExternalProfile is what an identity provider tells us about a person.
type ExternalProfile struct {
	Provider  string
	Subject   string
	Email     string
	Name      string
	AvatarURL string
}

// NormalizeEmail trims and lowercases an address so lookups and the unique
// index agree.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UsernameFromProfile derives a default username for a federated account:
// the display name, or the local part of the email, reduced to the
// characters a username may contain.
func UsernameFromProfile(p ExternalProfile) string {
	src := p.Name
	if strings.TrimSpace(src) == "" {
		src, _, _ = strings.Cut(p.Email, "@")
	}

	var b strings.Builder
	for _, r := range strings.ToLower(src) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.' || r == '-':
			b.WriteByte('_')
		}
		if b.Len() >= 30 {
			break
		}
	}
	if b.Len() < 3 {
		return "user_" + b.String()
	}
	return b.String()
}
