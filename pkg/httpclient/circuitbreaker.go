package httpclient

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	// Name labels the breaker in logs and metrics.
	Name string
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval after which closed-state counts reset.
	Interval time.Duration
	// Timeout the breaker stays open before probing again.
	Timeout time.Duration
	// FailureRatio at or above which the breaker trips, once MinRequests
	// have been seen.
	FailureRatio float64
	MinRequests  uint32
}

// DefaultCircuitBreakerConfig returns defaults for a breaker named name.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

var circuitBreakerState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open)",
	},
	[]string{"name"},
)

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// ErrCircuitOpen is returned while the breaker rejects requests.
var ErrCircuitOpen = gobreaker.ErrOpenState

// BreakerTransport fails fast once an upstream keeps erroring. Transport
// errors and 5xx responses count as failures; the 5xx response itself is
// still returned to the caller.
type BreakerTransport struct {
	next    http.RoundTripper
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

// NewBreakerTransport wraps next.
func NewBreakerTransport(next http.RoundTripper, cfg CircuitBreakerConfig, logger *slog.Logger) *BreakerTransport {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			circuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}
	circuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	return &BreakerTransport{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](settings),
	}
}

type serverError struct{ resp *http.Response }

func (e *serverError) Error() string { return fmt.Sprintf("upstream status %d", e.resp.StatusCode) }

// RoundTrip implements http.RoundTripper.
func (t *BreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.breaker.Execute(func() (*http.Response, error) {
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, &serverError{resp: resp}
		}
		return resp, nil
	})
	if se, ok := err.(*serverError); ok {
		return se.resp, nil
	}
	return resp, err
}

// State returns the current breaker state.
func (t *BreakerTransport) State() gobreaker.State {
	return t.breaker.State()
}
