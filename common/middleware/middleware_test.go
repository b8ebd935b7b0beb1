package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name        string
		incoming    string
		expectNewID bool
	}{
		{name: "generates new request ID when not present", incoming: "", expectNewID: true},
		{name: "propagates existing request ID", incoming: "existing-req-123", expectNewID: false},
		{name: "replaces oversized request ID", incoming: strings.Repeat("a", 200), expectNewID: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fromContext string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fromContext = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			header := rr.Header().Get(RequestIDHeader)
			assert.Equal(t, header, fromContext)
			if tt.expectNewID {
				_, err := uuid.Parse(header)
				assert.NoError(t, err, "expected generated UUID, got %q", header)
			} else {
				assert.Equal(t, tt.incoming, header)
			}
		})
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, GetRequestID(req.Context()))
}

func TestRecover(t *testing.T) {
	handler := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/proxy", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rr.Body.String())
}

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		name     string
		cfg      SecurityConfig
		wantHSTS bool
		wantCSP  string
	}{
		{name: "defaults", cfg: SecurityConfig{}, wantCSP: DefaultContentSecurityPolicy},
		{name: "hsts", cfg: SecurityConfig{HSTS: true}, wantHSTS: true, wantCSP: DefaultContentSecurityPolicy},
		{name: "custom csp", cfg: SecurityConfig{ContentSecurityPolicy: "default-src 'none'"}, wantCSP: "default-src 'none'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := SecurityHeaders(tt.cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/config.html", nil))

			assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
			assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
			assert.Equal(t, tt.wantCSP, rr.Header().Get("Content-Security-Policy"))
			assert.Equal(t, tt.wantHSTS, rr.Header().Get("Strict-Transport-Security") != "")
		})
	}
}
