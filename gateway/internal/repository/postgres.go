package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/numo-systems/numo-admin/common/database"
	"github.com/numo-systems/numo-admin/gateway/internal/models"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository opens a bounded pool. Every method acquires its
// connection under a QueryContext or WriteContext deadline, so callers facing
// an exhausted pool get an error rather than queueing indefinitely.
func NewPostgresRepository(ctx context.Context, connString string, maxConns int32) (*PostgresRepository, error) {
	config, err := poolConfig(connString, maxConns)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := database.QueryContext(ctx)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()
	return r.pool.Ping(ctx)
}

func poolConfig(connString string, maxConns int32) (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if maxConns > 0 {
		config.MaxConns = maxConns
	}
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = time.Minute
	config.ConnConfig.ConnectTimeout = database.DefaultConnectTimeout
	return config, nil
}

// =============================================================================
// USERS
// =============================================================================

func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	role := user.Role
	if role == "" {
		role = models.DefaultRole
	}

	query := `
		INSERT INTO users (username, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id, role, created_at
	`

	err := r.pool.QueryRow(ctx, query, user.Username, user.PasswordHash, role).
		Scan(&user.ID, &user.Role, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	query := `
		SELECT id, username, password_hash, role, created_at
		FROM users
		WHERE username = $1
	`

	var user models.User
	err := r.pool.QueryRow(ctx, query, username).
		Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (r *PostgresRepository) InsertAudit(ctx context.Context, event *models.AuditEvent) error {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	query := `
		INSERT INTO audit_log (user_id, actor, action, detail)
		VALUES (
			COALESCE($1::integer, (SELECT id FROM users WHERE username = $2)),
			NULLIF($2, ''),
			$3,
			$4
		)
		RETURNING id, user_id, created_at
	`

	var detail []byte
	if len(event.Detail) > 0 {
		detail = event.Detail
	}

	err := r.pool.QueryRow(ctx, query, event.ActorID, event.Actor, event.Action, detail).
		Scan(&event.ID, &event.ActorID, &event.At)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListAudit(ctx context.Context, limit int) ([]*models.AuditEvent, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	query := `
		SELECT a.id, a.user_id, COALESCE(u.username, a.actor, ''), a.action, a.detail, a.created_at
		FROM audit_log a
		LEFT JOIN users u ON u.id = a.user_id
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	events := make([]*models.AuditEvent, 0)
	for rows.Next() {
		var (
			event  models.AuditEvent
			detail []byte
		)
		if err := rows.Scan(&event.ID, &event.ActorID, &event.Actor, &event.Action, &detail, &event.At); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if len(detail) > 0 {
			event.Detail = detail
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit events: %w", err)
	}
	return events, nil
}

func (r *PostgresRepository) ClearAudit(ctx context.Context) error {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	if _, err := r.pool.Exec(ctx, `TRUNCATE audit_log`); err != nil {
		return fmt.Errorf("failed to clear audit log: %w", err)
	}
	return nil
}
