package repository

import (
	"context"
	"sync"
	"time"

	"github.com/numo-systems/numo-admin/gateway/internal/models"
)

// InMemoryRepository is used when no database is configured and in tests.
type InMemoryRepository struct {
	usersByName map[string]*models.User
	audit       []*models.AuditEvent // newest first
	nextUserID  int64
	nextAuditID int64
	mu          sync.RWMutex
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		usersByName: make(map[string]*models.User),
	}
}

func (r *InMemoryRepository) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.usersByName[user.Username]; exists {
		return ErrUserExists
	}

	r.nextUserID++
	user.ID = r.nextUserID
	user.CreatedAt = time.Now().UTC()
	if user.Role == "" {
		user.Role = models.DefaultRole
	}

	stored := *user
	r.usersByName[user.Username] = &stored
	return nil
}

func (r *InMemoryRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.usersByName[username]
	if !exists {
		return nil, ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *InMemoryRepository) InsertAudit(ctx context.Context, event *models.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextAuditID++
	event.ID = r.nextAuditID
	event.At = time.Now().UTC()
	if event.ActorID == nil && event.Actor != "" {
		if u, ok := r.usersByName[event.Actor]; ok {
			id := u.ID
			event.ActorID = &id
		}
	}

	stored := *event
	r.audit = append([]*models.AuditEvent{&stored}, r.audit...)
	return nil
}

func (r *InMemoryRepository) ListAudit(ctx context.Context, limit int) ([]*models.AuditEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := min(clampLimit(limit), len(r.audit))
	out := make([]*models.AuditEvent, 0, n)
	for _, e := range r.audit[:n] {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (r *InMemoryRepository) ClearAudit(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audit = nil
	return nil
}

func (r *InMemoryRepository) Ping(ctx context.Context) error { return nil }

func (r *InMemoryRepository) Close() {}
