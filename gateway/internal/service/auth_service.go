package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/numo-systems/numo-admin/common/logging"
	"github.com/numo-systems/numo-admin/gateway/internal/audit"
	"github.com/numo-systems/numo-admin/gateway/internal/metrics"
	"github.com/numo-systems/numo-admin/gateway/internal/models"
	"github.com/numo-systems/numo-admin/gateway/internal/repository"
	"github.com/numo-systems/numo-admin/gateway/internal/session"
)

var (
	// ErrInvalidCredentials covers both unknown users and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingCredentials = errors.New("username and password are required")
)

// Audit actions recorded by the service.
const (
	ActionLogin       = "auth.login"
	ActionLoginFailed = "auth.login_failed"
	ActionLogout      = "auth.logout"
)

// dummyHash is compared against when the user does not exist, so both
// failure paths pay for one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("numo-admin-timing-equalizer"), bcrypt.DefaultCost)

type AuthService struct {
	repo     repository.Repository
	sessions session.Store
	trail    *audit.Trail
}

func NewAuthService(repo repository.Repository, sessions session.Store, trail *audit.Trail) *AuthService {
	return &AuthService{repo: repo, sessions: sessions, trail: trail}
}

// Login verifies credentials and opens a session. ip is recorded in the
// audit detail only.
func (s *AuthService) Login(ctx context.Context, username, password, ip string) (*session.Session, error) {
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			slog.ErrorContext(ctx, "User lookup failed", logging.Subject(username), logging.Error(err))
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		s.recordLogin(ctx, ActionLoginFailed, username, ip)
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.recordLogin(ctx, ActionLoginFailed, username, ip)
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(ctx, user.Identity())
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.recordLogin(ctx, ActionLogin, username, ip)
	metrics.LoginAttempts.WithLabelValues("success").Inc()
	return sess, nil
}

// Logout removes the session. Unknown sessions are not an error.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.trail.Record(ctx, models.AuditEvent{Action: ActionLogout, Actor: sess.Identity.Subject})
	return nil
}

// Session resolves a session ID to its identity.
func (s *AuthService) Session(ctx context.Context, sessionID string) (*session.Session, error) {
	return s.sessions.Get(ctx, sessionID)
}

// CreateUser stores a new user with a bcrypt hash of password.
func (s *AuthService) CreateUser(ctx context.Context, username, password, role string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.User{Username: username, PasswordHash: string(hash), Role: role}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// EnsureUser creates the user unless it already exists. It reports whether
// a user was created.
func (s *AuthService) EnsureUser(ctx context.Context, username, password, role string) (bool, error) {
	_, err := s.repo.GetUserByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return false, err
	}
	if _, err := s.CreateUser(ctx, username, password, role); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *AuthService) recordLogin(ctx context.Context, action, username, ip string) {
	detail, _ := json.Marshal(map[string]string{"ip": ip})
	s.trail.Record(ctx, models.AuditEvent{Action: action, Actor: username, Detail: detail})
}
