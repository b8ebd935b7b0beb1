// Package database provides the timeouts every repository call runs under.
package database

import (
	"context"
	"time"
)

const (
	// DefaultQueryTimeout bounds read queries.
	DefaultQueryTimeout = 5 * time.Second

	// DefaultWriteTimeout bounds INSERT, UPDATE, DELETE and TRUNCATE.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultConnectTimeout bounds dialing a new server connection. Waiting
	// on an exhausted pool is bounded by the query or write context instead.
	DefaultConnectTimeout = 3 * time.Second
)

// QueryContext creates a context with DefaultQueryTimeout.
func QueryContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultQueryTimeout)
}

// WriteContext creates a context with DefaultWriteTimeout.
func WriteContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultWriteTimeout)
}

// DetachedWriteContext is WriteContext on a context that ignores parent
// cancellation but keeps its values. Audit writes use it so a client hanging
// up does not abort the record of what it did.
func DetachedWriteContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), DefaultWriteTimeout)
}
