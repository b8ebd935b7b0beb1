package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, http.StatusForbidden, "host not allowed")

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"host not allowed"}`, rr.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Action string `json:"action"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
		want    string
	}{
		{name: "valid", body: `{"action":"participant.create"}`, want: "participant.create"},
		{name: "empty", body: "", wantErr: true},
		{name: "malformed", body: `{"action":`, wantErr: true},
		{name: "trailing data", body: `{"action":"a"}{"action":"b"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/audit", strings.NewReader(tt.body))
			var got payload
			err := DecodeJSON(httptest.NewRecorder(), req, &got)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Action)
		})
	}
}

func TestDecodeJSON_EmptyBodySentinel(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	var v map[string]any
	assert.ErrorIs(t, DecodeJSON(httptest.NewRecorder(), req, &v), ErrEmptyBody)
}

func TestClientIPResolver(t *testing.T) {
	resolver, err := NewClientIPResolver([]string{"10.0.0.0/8", "192.0.2.1"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		xff        string
		xri        string
		remoteAddr string
		want       string
	}{
		{name: "untrusted peer ignores forwarded for", xff: "203.0.113.195", remoteAddr: "198.51.100.7:4000", want: "198.51.100.7"},
		{name: "untrusted peer ignores real ip", xri: "203.0.113.9", remoteAddr: "198.51.100.7:4000", want: "198.51.100.7"},
		{name: "trusted peer takes rightmost untrusted hop", xff: "203.0.113.195, 70.41.3.18", remoteAddr: "10.0.0.1:1234", want: "70.41.3.18"},
		{name: "trusted hops are skipped", xff: "203.0.113.195, 10.0.0.2", remoteAddr: "10.0.0.1:1234", want: "203.0.113.195"},
		{name: "single trusted address", xff: "203.0.113.5", remoteAddr: "192.0.2.1:80", want: "203.0.113.5"},
		{name: "trusted peer real ip", xri: "198.51.100.8", remoteAddr: "10.0.0.1:1234", want: "198.51.100.8"},
		{name: "garbage header falls back to peer", xff: "not-an-ip", xri: "also bad", remoteAddr: "10.0.0.1:1234", want: "10.0.0.1"},
		{name: "remote addr strips port", remoteAddr: "192.0.2.10:5555", want: "192.0.2.10"},
		{name: "remote addr without port", remoteAddr: "192.0.2.11", want: "192.0.2.11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, resolver.ClientIP(req))
		})
	}
}

func TestClientIPResolver_NoTrustedProxies(t *testing.T) {
	resolver, err := NewClientIPResolver(nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:9000"
	req.Header.Set("X-Forwarded-For", "203.0.113.195")
	assert.Equal(t, "127.0.0.1", resolver.ClientIP(req))
}

func TestParseIPOrPrefix(t *testing.T) {
	p, err := ParseIPOrPrefix(" 10.1.2.3/8 ")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.0/8", p.String())

	p, err = ParseIPOrPrefix("::ffff:192.0.2.1")
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.1/32", p.String())

	for _, bad := range []string{"", "proxy.internal", "10.0.0.0/33"} {
		_, err := ParseIPOrPrefix(bad)
		assert.Error(t, err, "%q", bad)
	}
	_, err = NewClientIPResolver([]string{"10.0.0.0/8", "nope"})
	assert.Error(t, err)
}

func TestParseIntParam(t *testing.T) {
	assert.Equal(t, 200, ParseIntParam("", 200))
	assert.Equal(t, 25, ParseIntParam("25", 200))
	assert.Equal(t, 200, ParseIntParam("abc", 200))
	assert.Equal(t, 200, ParseIntParam("-3", 200))
}
