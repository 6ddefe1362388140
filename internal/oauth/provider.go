// Package oauth implements the authorization code flow against external
// identity providers and the single-use state values that protect it.
package oauth

import (
	"context"
	"sort"

	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/domain"
)

// Provider is an OAuth2 identity provider.
type Provider interface {
	// Name is the path segment the provider is served under, e.g. "google".
	Name() string

	// AuthCodeURL returns the consent page URL carrying state.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for the signed-in person's
	// profile. Failures are returned as apperrors.ProviderError.
	Exchange(ctx context.Context, code string) (*domain.ExternalProfile, error)
}

// Registry looks providers up by name.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry indexes providers by Name. Later entries win on a clash.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns the provider called name.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Names lists the registered providers in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
