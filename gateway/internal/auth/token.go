package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/numo-systems/numo-admin/gateway/internal/models"
)

const tokenIssuer = "numo-admin"

// Claims carried by gateway tokens. Username falls back to the registered
// subject when absent.
type Claims struct {
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	UserID   int64  `json:"uid,omitempty"`
	jwt.RegisteredClaims
}

// TokenStrategy verifies HS256 bearer tokens. Once enabled it never skips:
// a request without a valid token is rejected outright.
type TokenStrategy struct {
	secret []byte
	parser *jwt.Parser
}

func NewTokenStrategy(secret string) *TokenStrategy {
	return &TokenStrategy{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(30*time.Second),
		),
	}
}

func (s *TokenStrategy) Name() string { return "token" }

func (s *TokenStrategy) Evaluate(r *http.Request) Verdict {
	raw, ok := bearerToken(r)
	if !ok {
		return Reject(ErrAuthenticationRequired, "")
	}

	var claims Claims
	_, err := s.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return Reject(ErrInvalidToken, "")
	}

	subject := claims.Username
	if subject == "" {
		subject = claims.Subject
	}
	if subject == "" {
		return Reject(ErrInvalidToken, "")
	}
	return Accept(models.Identity{UserID: claims.UserID, Subject: subject, Role: claims.Role})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// TokenIssuer mints tokens accepted by TokenStrategy.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("token signing secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for id and its expiry.
func (i *TokenIssuer) Issue(id models.Identity) (string, time.Time, error) {
	now := i.now()
	expires := now.Add(i.ttl)
	claims := Claims{
		Username: id.Subject,
		Role:     id.Role,
		UserID:   id.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}
