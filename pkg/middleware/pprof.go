package middleware

import (
	"log/slog"
	"net/http"
	"net/http/pprof"
	"net/netip"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/errors"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/httputil"
)

// RegisterPprof mounts /debug/pprof behind IPAllowlist. With no valid
// prefixes nothing is mounted.
func RegisterPprof(r chi.Router, allowed []string, l *slog.Logger) bool {
	prefixes := parsePrefixes(allowed, l)
	if len(prefixes) == 0 {
		return false
	}

	r.Group(func(r chi.Router) {
		r.Use(allowlist(prefixes, l))
		r.HandleFunc("/debug/pprof/*", pprof.Index)
		r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		r.HandleFunc("/debug/pprof/profile", pprof.Profile)
		r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		r.HandleFunc("/debug/pprof/trace", pprof.Trace)
	})
	return true
}

// IPAllowlist admits only callers whose socket address falls inside one of
// the CIDR prefixes. Forwarding headers are ignored. Invalid prefixes are
// logged and skipped.
func IPAllowlist(cidrs []string, l *slog.Logger) func(http.Handler) http.Handler {
	return allowlist(parsePrefixes(cidrs, l), l)
}

func parsePrefixes(cidrs []string, l *slog.Logger) []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		p, err := netip.ParsePrefix(c)
		if err != nil {
			l.Warn("invalid allowlist CIDR, skipping",
				slog.String("cidr", c),
				slog.String("error", err.Error()),
			)
			continue
		}
		prefixes = append(prefixes, p.Masked())
	}
	return prefixes
}

func allowlist(prefixes []netip.Prefix, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r, false)
			if addr, err := netip.ParseAddr(ip); err == nil {
				addr = addr.Unmap()
				for _, p := range prefixes {
					if p.Contains(addr) {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			l.WarnContext(r.Context(), "access denied by IP allowlist",
				slog.String("ip", ip),
				slog.String("path", r.URL.Path),
			)
			httputil.WriteError(w, r, apperrors.Forbidden("access restricted by IP allowlist"), l)
		})
	}
}
