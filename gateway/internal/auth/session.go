package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/numo-systems/numo-admin/common/logging"
	"github.com/numo-systems/numo-admin/gateway/internal/session"
)

// SessionStrategy accepts requests whose signed cookie names a live session.
// Anything else, including a session store outage, is a skip.
type SessionStrategy struct {
	store   session.Store
	cookies *session.CookieCodec
}

func NewSessionStrategy(store session.Store, cookies *session.CookieCodec) *SessionStrategy {
	return &SessionStrategy{store: store, cookies: cookies}
}

func (s *SessionStrategy) Name() string { return "session" }

func (s *SessionStrategy) Evaluate(r *http.Request) Verdict {
	id, err := s.cookies.Read(r)
	if err != nil {
		return Skip()
	}
	sess, err := s.store.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			slog.WarnContext(r.Context(), "Session lookup failed", logging.Error(err))
		}
		return Skip()
	}
	return Accept(sess.Identity)
}
