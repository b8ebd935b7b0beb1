package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numo-systems/numo-admin/common/middleware"
	"github.com/numo-systems/numo-admin/gateway/internal/audit"
	"github.com/numo-systems/numo-admin/gateway/internal/auth"
	"github.com/numo-systems/numo-admin/gateway/internal/handlers"
	"github.com/numo-systems/numo-admin/gateway/internal/models"
	"github.com/numo-systems/numo-admin/gateway/internal/proxy"
	"github.com/numo-systems/numo-admin/gateway/internal/ratelimit"
	"github.com/numo-systems/numo-admin/gateway/internal/repository"
	"github.com/numo-systems/numo-admin/gateway/internal/service"
	"github.com/numo-systems/numo-admin/gateway/internal/session"
	"github.com/numo-systems/numo-admin/gateway/internal/upstream"
)

const testJWTSecret = "router-test-jwt-secret"

type testEnv struct {
	handler http.Handler
	trail   *audit.Trail
}

type envOptions struct {
	jwtSecret   string
	corsOrigins []string
}

func setupTestStaticDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"signin.html":   "<html>sign in</html>",
		"config.html":   "<html>config</html>",
		"assets/app.js": "console.log('numo')",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func newTestEnv(t *testing.T, opts envOptions) testEnv {
	t.Helper()
	ctx := context.Background()

	repo := repository.NewInMemoryRepository()
	sessions := session.NewMemoryStore(time.Hour)
	cookies, err := session.NewCookieCodec("router-test-session-secret", time.Hour, false)
	require.NoError(t, err)

	trail := audit.NewTrail(repo, audit.NewBuffer("", 50), nil)
	svc := service.NewAuthService(repo, sessions, trail)
	_, err = svc.CreateUser(ctx, "ops", "s3cret", "admin")
	require.NoError(t, err)

	store := upstream.NewStore(upstream.Options{Defaults: models.UpstreamSettings{CoreURL: "http://localhost:8082"}})
	gate := auth.NewGate(auth.Options{
		JWTSecret:     opts.jwtSecret,
		Sessions:      sessions,
		Cookies:       cookies,
		AdminUser:     "admin",
		AdminPassword: "basic-pass",
	})

	h := NewRouter(RouterConfig{
		AuthHandler:   handlers.NewAuthHandler(svc, cookies, ratelimit.NoOpLimiter{}),
		ProxyHandler:  handlers.NewProxyHandler(proxy.NewForwarder(proxy.Options{Allowlist: proxy.ParseAllowlist("directory.internal")}), trail),
		ConfigHandler: handlers.NewConfigHandler(store, trail),
		AuditHandler:  handlers.NewAuditHandler(trail),
		Gate:          gate,
		StaticDir:     setupTestStaticDir(t),
		CORSOrigins:   opts.corsOrigins,
	})
	return testEnv{handler: h, trail: trail}
}

func (e testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"ops","password":"s3cret"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := e.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestRouter_OpenRoutes(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/signin.html", http.StatusOK},
		{http.MethodGet, "/assets/app.js", http.StatusOK},
		{http.MethodPost, "/api/auth/logout", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := env.do(httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
			assert.Empty(t, rec.Header().Get("WWW-Authenticate"))
		})
	}
}

func TestRouter_ProtectedAPIRejectsAnonymous(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/proxy"},
		{http.MethodGet, "/api/config"},
		{http.MethodPost, "/api/config"},
		{http.MethodGet, "/api/audit"},
		{http.MethodPost, "/api/audit"},
		{http.MethodDelete, "/api/audit"},
	} {
		rec := env.do(httptest.NewRequest(route.method, route.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", route.method, route.path)
		assert.Equal(t, auth.BasicChallenge, rec.Header().Get("WWW-Authenticate"))
	}
}

func TestRouter_SessionFlow(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	cookie := env.login(t)

	me := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	me.AddCookie(cookie)
	rec := env.do(me)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"ops"`)

	post := httptest.NewRequest(http.MethodPost, "/api/audit", strings.NewReader(`{"action":"participant.approve"}`))
	post.AddCookie(cookie)
	rec = env.do(post)
	require.Equal(t, http.StatusCreated, rec.Code)

	list := httptest.NewRequest(http.MethodGet, "/api/audit?limit=1", nil)
	list.AddCookie(cookie)
	rec = env.do(list)
	require.Equal(t, http.StatusOK, rec.Code)

	var events []models.AuditEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "participant.approve", events[0].Action)
	assert.Equal(t, "ops", events[0].Actor)
	require.NotNil(t, events[0].ActorID)
}

func TestRouter_BasicAuth(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	req.SetBasicAuth("admin", "basic-pass")
	rec := env.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/config", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = env.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_TokenModeIgnoresOtherCredentials(t *testing.T) {
	env := newTestEnv(t, envOptions{jwtSecret: testJWTSecret})
	cookie := env.login(t)

	withCookie := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	withCookie.AddCookie(cookie)
	assert.Equal(t, http.StatusUnauthorized, env.do(withCookie).Code)

	withBasic := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	withBasic.SetBasicAuth("admin", "basic-pass")
	assert.Equal(t, http.StatusUnauthorized, env.do(withBasic).Code)

	issuer, err := auth.NewTokenIssuer(testJWTSecret, time.Hour)
	require.NoError(t, err)
	token, _, err := issuer.Issue(models.Identity{Subject: "ci", Role: "admin"})
	require.NoError(t, err)
	withToken := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	withToken.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, env.do(withToken).Code)

	// Pages are not checked in token mode.
	assert.Equal(t, http.StatusOK, env.do(httptest.NewRequest(http.MethodGet, "/config.html", nil)).Code)
}

func TestRouter_PagesRedirectToSignIn(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	for _, path := range []string{"/", "/config.html"} {
		rec := env.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusFound, rec.Code, path)
		assert.Equal(t, auth.SignInPath, rec.Header().Get("Location"), path)
	}

	cookie := env.login(t)
	root := httptest.NewRequest(http.MethodGet, "/", nil)
	root.AddCookie(cookie)
	rec := env.do(root)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, HomePath, rec.Header().Get("Location"))

	page := httptest.NewRequest(http.MethodGet, "/config.html", nil)
	page.AddCookie(cookie)
	rec = env.do(page)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "config")
}

func TestRouter_NoDirectoryListing(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	rec := env.do(httptest.NewRequest(http.MethodGet, "/assets/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_ProxyDeniedThroughGate(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	cookie := env.login(t)

	req := httptest.NewRequest(http.MethodPost, "/api/proxy", strings.NewReader(`{"url":"http://evil.example/x"}`))
	req.AddCookie(cookie)
	rec := env.do(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_Middleware(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_CORS(t *testing.T) {
	env := newTestEnv(t, envOptions{corsOrigins: []string{"https://console.numo.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/audit", nil)
	req.Header.Set("Origin", "https://console.numo.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := env.do(req)
	assert.Equal(t, "https://console.numo.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = env.do(req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_UnknownMethod(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	rec := env.do(httptest.NewRequest(http.MethodPut, "/api/audit", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
