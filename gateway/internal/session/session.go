// Package session keeps server-side login sessions and the signed cookie
// that refers to them.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/numo-systems/numo-admin/gateway/internal/models"
)

var ErrNotFound = errors.New("session not found")

// DefaultTTL is how long a session lives after login.
const DefaultTTL = 12 * time.Hour

type Session struct {
	ID        string          `json:"id"`
	Identity  models.Identity `json:"identity"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Store persists sessions by ID. Get returns ErrNotFound for unknown and
// expired sessions alike.
type Store interface {
	Create(ctx context.Context, identity models.Identity) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

func newSession(identity models.Identity, now time.Time, ttl time.Duration) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Identity:  identity,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}
