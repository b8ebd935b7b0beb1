// Package repository persists users and the durable audit log.
package repository

import (
	"context"
	"errors"

	"github.com/numo-systems/numo-admin/gateway/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// MaxAuditList bounds a single audit listing regardless of the caller's limit.
const MaxAuditList = 1000

type Repository interface {
	// CreateUser inserts user and fills in its ID and CreatedAt.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// InsertAudit stores event and fills in its ID and At. When ActorID is nil
	// the actor is resolved by username if such a user exists.
	InsertAudit(ctx context.Context, event *models.AuditEvent) error
	// ListAudit returns the newest events first.
	ListAudit(ctx context.Context, limit int) ([]*models.AuditEvent, error)
	ClearAudit(ctx context.Context) error

	Ping(ctx context.Context) error
	Close()
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxAuditList {
		return MaxAuditList
	}
	return limit
}
