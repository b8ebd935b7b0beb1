// Package auth decides who is calling. Strategies are evaluated in a fixed
// order and the first one that does not skip decides the request.
package auth

import (
	"errors"
	"net/http"

	"github.com/numo-systems/numo-admin/gateway/internal/models"
)

var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrInvalidToken           = errors.New("invalid token")
	ErrInvalidCredentials     = errors.New("invalid credentials")
)

// Kind tags a Verdict.
type Kind int

const (
	// KindSkip means the strategy does not apply; evaluation continues.
	KindSkip Kind = iota
	// KindAccept ends evaluation with an identity.
	KindAccept
	// KindReject ends evaluation with an error.
	KindReject
)

func (k Kind) String() string {
	switch k {
	case KindAccept:
		return "accept"
	case KindReject:
		return "reject"
	default:
		return "skip"
	}
}

// Verdict is the outcome of one strategy. Challenge, when set, is sent as
// WWW-Authenticate on rejection.
type Verdict struct {
	Kind      Kind
	Identity  models.Identity
	Err       error
	Challenge string
}

func Skip() Verdict { return Verdict{Kind: KindSkip} }

func Accept(id models.Identity) Verdict { return Verdict{Kind: KindAccept, Identity: id} }

func Reject(err error, challenge string) Verdict {
	return Verdict{Kind: KindReject, Err: err, Challenge: challenge}
}

// Strategy inspects a request and returns a Verdict. Implementations must
// not write to the response.
type Strategy interface {
	Name() string
	Evaluate(r *http.Request) Verdict
}
