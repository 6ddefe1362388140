package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/logger"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return exporter
}

// --- RequestLogging ---

func TestRequestLogging_GeneratesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithWriter("test", "info", &buf)

	var seen string
	handler := RequestLogging(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.CorrelationIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get(CorrelationHeader))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "http request", out["msg"])
	assert.Equal(t, seen, out["correlation_id"])
	assert.EqualValues(t, 200, out["status"])
}

func TestRequestLogging_ReusesValidInboundID(t *testing.T) {
	id := uuid.NewString()
	handler := RequestLogging(logger.NewWithWriter("test", "info", &bytes.Buffer{}))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, id)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, id, rec.Header().Get(CorrelationHeader))
}

func TestRequestLogging_ReplacesInvalidInboundID(t *testing.T) {
	handler := RequestLogging(logger.NewWithWriter("test", "info", &bytes.Buffer{}))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "<script>")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.NotEqual(t, "<script>", rec.Header().Get(CorrelationHeader))
}

func TestRequestLogging_ClientErrorsLogAtWarn(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogging(logger.NewWithWriter("test", "info", &buf))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}),
	)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "WARN", out["level"])
}

// --- RequestLogger ---

func TestRequestLogger_CarriesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	base := logger.NewWithWriter("test", "info", &buf)

	handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("handler log")
	}))

	ctx := logger.WithCorrelationID(context.Background(), "corr-123")
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "corr-123", out["correlation_id"])
	assert.NotContains(t, out, "user_id")
}

// --- Recovery ---

func TestRecovery_WritesFailureEnvelope(t *testing.T) {
	var buf bytes.Buffer
	handler := Recovery(logger.NewWithWriter("test", "info", &buf))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, false, body["status"])
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
	assert.NotContains(t, rec.Body.String(), "boom")
	assert.Contains(t, buf.String(), "panic recovered")
}

func TestRecovery_RepanicsOnAbortHandler(t *testing.T) {
	handler := Recovery(logger.NewWithWriter("test", "info", &bytes.Buffer{}))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(http.ErrAbortHandler)
		}),
	)

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

// --- PrometheusMetrics ---

func TestPrometheusMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics("forum-test"))
	r.Get("/api/v1/auth/{provider}/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	})

	counter := httpRequestsTotal.WithLabelValues("forum-test", http.MethodGet, "/api/v1/auth/{provider}/login", "302")
	before := testutil.ToFloat64(counter)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/login", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
	assert.Equal(t, float64(0), testutil.ToFloat64(httpRequestsInFlight.WithLabelValues("forum-test")))
}

// --- Tracing ---

func TestTracing_NamesSpanByRoute(t *testing.T) {
	exporter := setupTestTracer(t)

	r := chi.NewRouter()
	r.Use(Tracing("forum-test"))
	r.Get("/api/v1/auth/{provider}/callback", func(w http.ResponseWriter, r *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback", nil))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/v1/auth/{provider}/callback", spans[0].Name)
}

func TestTracing_MarksServerErrors(t *testing.T) {
	exporter := setupTestTracer(t)

	handler := Tracing("forum-test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}

func TestTracing_ContinuesInboundTrace(t *testing.T) {
	exporter := setupTestTracer(t)

	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("traceparent", "00-"+traceID+"-00f067aa0ba902b7-01")

	Tracing("forum-test")(okHandler()).ServeHTTP(httptest.NewRecorder(), req)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, traceID, spans[0].SpanContext.TraceID().String())
}
