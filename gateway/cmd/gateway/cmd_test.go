package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numo-systems/numo-admin/gateway/internal/auth"
	"github.com/numo-systems/numo-admin/gateway/internal/config"
	"github.com/numo-systems/numo-admin/gateway/internal/models"
	"github.com/numo-systems/numo-admin/gateway/internal/service"
)

// writeConfig writes a gateway.yaml that keeps every file inside a temp dir.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`
server:
  static_dir: %q
  cookie_secure: false
auth:
  session_secret: cmd-test-secret
upstream:
  config_file: %q
  allow_hosts: directory.internal
audit:
  file: %q
logging:
  level: error
bootstrap:
  username: ops
  password: s3cret
%s`, dir, filepath.Join(dir, "config.json"), filepath.Join(dir, "audit-log.json"), extra)

	path := filepath.Join(dir, "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func loadConfig(t *testing.T, extra string) *config.Config {
	t.Helper()
	c, err := config.Load(writeConfig(t, extra))
	require.NoError(t, err)
	return c
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func login(t *testing.T, h http.Handler) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"ops","password":"s3cret"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestCommandsRegistered(t *testing.T) {
	expected := map[string]bool{"serve": false, "migrate": false, "user": false, "token": false, "config": false}
	for _, cmd := range rootCmd.Commands() {
		name := strings.Fields(cmd.Use)[0]
		if _, ok := expected[name]; ok {
			expected[name] = true
		}
	}
	for name, found := range expected {
		assert.True(t, found, "expected command %q to be registered", name)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestServe_ListensUntilCancelled(t *testing.T) {
	c := loadConfig(t, "")
	c.Server.Port = freePort(t)
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/health", c.Server.Port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(20 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestBuildApp_InMemory(t *testing.T) {
	c := loadConfig(t, "")
	a, err := buildApp(context.Background(), c)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Equal(t, []string{"session"}, a.gate.Strategies())

	cookie := login(t, a.handler)
	req := httptest.NewRequest(http.MethodGet, "/api/audit", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var events []models.AuditEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.NotEmpty(t, events)
	assert.Equal(t, service.ActionLogin, events[0].Action)

	_, err = os.Stat(c.Audit.File)
	assert.NoError(t, err, "fallback buffer is mirrored to disk")
}

func TestBuildApp_BootstrapIsIdempotent(t *testing.T) {
	c := loadConfig(t, "")
	first, err := buildApp(context.Background(), c)
	require.NoError(t, err)
	first.Close()

	second, err := buildApp(context.Background(), c)
	require.NoError(t, err)
	second.Close()
}

func TestBuildApp_RedisSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	c := loadConfig(t, fmt.Sprintf(`
session:
  backend: redis
redis:
  url: redis://%s
login_rate_limit:
  requests: 2
`, mr.Addr()))

	a, err := buildApp(context.Background(), c)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	cookie := login(t, a.handler)
	assert.NotEmpty(t, mr.Keys())

	me := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	me.AddCookie(cookie)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, me)
	assert.Equal(t, http.StatusOK, rec.Code)

	// The third attempt in the window is limited.
	login(t, a.handler)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"ops","password":"s3cret"}`))
	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestBuildApp_RedisUnreachable(t *testing.T) {
	c := loadConfig(t, `
redis:
  url: redis://127.0.0.1:1
`)
	_, err := buildApp(context.Background(), c)
	assert.Error(t, err)
}

func TestConfigShow_RedactsSecrets(t *testing.T) {
	t.Setenv("GATEWAY_UPSTREAM_BEARER_TOKEN", "super-secret-upstream-token")
	path := writeConfig(t, "")
	out, err := runCommand(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "super-secret-upstream-token")
	assert.NotContains(t, out, "cmd-test-secret")
	assert.Contains(t, out, "********")
	assert.Contains(t, out, "allow_hosts: directory.internal")
}

func TestTokenIssue(t *testing.T) {
	t.Setenv("GATEWAY_AUTH_JWT_SECRET", "cmd-test-jwt")
	path := writeConfig(t, "")
	out, err := runCommand(t, "--config", path, "token", "issue", "ci-bot")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(out))
	v := auth.NewTokenStrategy("cmd-test-jwt").Evaluate(req)
	require.Equal(t, auth.KindAccept, v.Kind)
	assert.Equal(t, "ci-bot", v.Identity.Subject)
	assert.Equal(t, models.DefaultRole, v.Identity.Role)
}

func TestTokenIssue_RequiresSecret(t *testing.T) {
	_, err := runCommand(t, "--config", writeConfig(t, ""), "token", "issue", "ci-bot")
	assert.Error(t, err)
}

func TestMigrate_RequiresPostgres(t *testing.T) {
	_, err := runCommand(t, "--config", writeConfig(t, ""), "migrate", "up")
	assert.Error(t, err)
}
