package auth

import (
	"net/http"

	"github.com/numo-systems/numo-admin/gateway/internal/models"
)

// BasicChallenge is sent with every Basic rejection.
const BasicChallenge = `Basic realm="NumoAdmin"`

// BasicStrategy checks HTTP Basic credentials against one configured pair.
type BasicStrategy struct {
	username string
	password string
}

func NewBasicStrategy(username, password string) *BasicStrategy {
	return &BasicStrategy{username: username, password: password}
}

func (s *BasicStrategy) Name() string { return "basic" }

func (s *BasicStrategy) Evaluate(r *http.Request) Verdict {
	user, pass, ok := r.BasicAuth()
	if !ok || user != s.username || pass != s.password {
		return Reject(ErrInvalidCredentials, BasicChallenge)
	}
	return Accept(models.Identity{Subject: user, Role: models.DefaultRole})
}
