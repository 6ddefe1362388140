package auth

import (
	"net/http"
	"time"
)

// CookieConfig describes the access token cookie.
type CookieConfig struct {
	Name   string
	Domain string
	Path   string
	Secure bool
}

func (c CookieConfig) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}

func (c CookieConfig) path() string {
	if c.Path == "" {
		return "/"
	}
	return c.Path
}

// Session returns the cookie handing t to the browser. It is HttpOnly and
// SameSite=Lax so it survives the redirect back from an identity provider.
func (c CookieConfig) Session(t Token, now time.Time) *http.Cookie {
	maxAge := int(t.ExpiresAt.Sub(now) / time.Second)
	if maxAge < 1 {
		maxAge = 1
	}
	return &http.Cookie{
		Name:     c.name(),
		Value:    t.Value,
		Path:     c.path(),
		Domain:   c.Domain,
		Expires:  t.ExpiresAt,
		MaxAge:   maxAge,
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// Clear returns a cookie that deletes the access token on the client.
func (c CookieConfig) Clear() *http.Cookie {
	return &http.Cookie{
		Name:     c.name(),
		Value:    "",
		Path:     c.path(),
		Domain:   c.Domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
