package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/httputil"
)

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	RPS   float64
	Burst int
	// TTL is how long an idle client keeps its bucket. Defaults to 3m.
	TTL time.Duration
	// TrustProxy makes X-Forwarded-For and X-Real-IP authoritative. Only
	// enable behind a proxy that overwrites them.
	TrustProxy bool
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP and evicts idle ones.
type RateLimiter struct {
	cfg RateLimitConfig
	log *slog.Logger
	now func() time.Time

	mu      sync.Mutex
	clients map[string]*client
}

// NewRateLimiter creates a limiter. Call Run to start eviction.
func NewRateLimiter(cfg RateLimitConfig, l *slog.Logger) *RateLimiter {
	if cfg.TTL <= 0 {
		cfg.TTL = 3 * time.Minute
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if l == nil {
		l = slog.Default()
	}
	return &RateLimiter{
		cfg:     cfg,
		log:     l,
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

// Run evicts idle clients every TTL until ctx is cancelled.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.cfg.TTL)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evict()
		}
	}
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c, ok := rl.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rate.Limit(rl.cfg.RPS), rl.cfg.Burst)}
		rl.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) evict() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for ip, c := range rl.clients {
		if now.Sub(c.lastSeen) > rl.cfg.TTL {
			delete(rl.clients, ip)
		}
	}
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Middleware rejects requests over the limit with 429 and a Retry-After hint.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r, rl.cfg.TrustProxy)
		if !rl.allow(ip) {
			rl.log.WarnContext(r.Context(), "rate limit exceeded",
				slog.String("ip", ip),
				slog.String("path", r.URL.Path),
			)
			w.Header().Set("Retry-After", "1")
			httputil.WriteFailure(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the caller's address. Forwarding headers are only
// consulted when trustProxy is set.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip.String()
			}
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip.String()
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
