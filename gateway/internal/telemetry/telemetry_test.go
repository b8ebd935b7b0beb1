package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"

	"github.com/numo-systems/numo-admin/gateway/internal/config"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), config.TelemetryConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestNewResource_NamesService(t *testing.T) {
	res, err := newResource(context.Background())
	require.NoError(t, err)

	name, ok := res.Set().Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, ServiceName, name.AsString())
	assert.Equal(t, semconv.SchemaURL, res.SchemaURL())
}

func TestSampler_Clamps(t *testing.T) {
	assert.Contains(t, Sampler(5).Description(), "AlwaysOnSampler")
	assert.Contains(t, Sampler(-1).Description(), "TraceIDRatioBased{0}")
	assert.Contains(t, Sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
	var _ sdktrace.Sampler = Sampler(1)
}

func TestMiddleware_PassesThrough(t *testing.T) {
	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestNameFromPattern(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/audit", func(w http.ResponseWriter, r *http.Request) {})

	ctx, span := tp.Tracer("test").Start(context.Background(), "GET /api/audit?limit=5")
	req := httptest.NewRequest(http.MethodGet, "/api/audit?limit=5", nil).WithContext(ctx)
	NameFromPattern(mux).ServeHTTP(httptest.NewRecorder(), req)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "GET /api/audit", ended[0].Name())
}
