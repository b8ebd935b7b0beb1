package proxy

import "fmt"

// ValidationError reports a malformed proxy request. Maps to 400.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// ForbiddenHostError reports a target outside the allowlist. Maps to 403.
type ForbiddenHostError struct {
	Host string
}

func (e *ForbiddenHostError) Error() string {
	return fmt.Sprintf("host %q is not allowed", e.Host)
}

// TransportError reports a failed upstream call. Maps to 500. The message
// names only the host; the cause is kept for logs.
type TransportError struct {
	Host string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("upstream request to %s failed", e.Host)
}

func (e *TransportError) Unwrap() error { return e.Err }
