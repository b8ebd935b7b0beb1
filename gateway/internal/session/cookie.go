package session

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

// CookieName is the browser cookie carrying the signed session ID.
const CookieName = "numo_session"

// CookieCodec signs and verifies the session cookie. The cookie only holds
// the session ID; identity lives in the Store.
type CookieCodec struct {
	sc     *securecookie.SecureCookie
	ttl    time.Duration
	secure bool
}

func NewCookieCodec(secret string, ttl time.Duration, secure bool) (*CookieCodec, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	hashKey := sha256.Sum256([]byte(secret))
	sc := securecookie.New(hashKey[:], nil)
	sc.MaxAge(int(ttl.Seconds()))

	return &CookieCodec{sc: sc, ttl: ttl, secure: secure}, nil
}

// Write sets the session cookie on the response.
func (c *CookieCodec) Write(w http.ResponseWriter, sessionID string) error {
	encoded, err := c.sc.Encode(CookieName, sessionID)
	if err != nil {
		return fmt.Errorf("failed to encode session cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(c.ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read returns the session ID from a valid cookie. A missing, tampered or
// expired cookie yields ErrNotFound.
func (c *CookieCodec) Read(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", ErrNotFound
	}
	var id string
	if err := c.sc.Decode(CookieName, cookie.Value, &id); err != nil || id == "" {
		return "", ErrNotFound
	}
	return id, nil
}

// Clear expires the session cookie in the browser.
func (c *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
