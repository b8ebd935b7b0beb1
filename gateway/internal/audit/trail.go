// Package audit records security-relevant actions to a durable store and,
// independently, to a bounded file-backed fallback buffer.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/numo-systems/numo-admin/common/database"
	"github.com/numo-systems/numo-admin/common/logging"
	"github.com/numo-systems/numo-admin/gateway/internal/metrics"
	"github.com/numo-systems/numo-admin/gateway/internal/models"
)

// Store is the durable sink.
type Store interface {
	InsertAudit(ctx context.Context, event *models.AuditEvent) error
	ListAudit(ctx context.Context, limit int) ([]*models.AuditEvent, error)
	ClearAudit(ctx context.Context) error
}

// Sink names used in logs, metrics and RecordResult.
const (
	SinkDurable  = "durable"
	SinkFallback = "fallback"
	SinkForward  = "forward"
)

// Source tells where a listing came from.
type Source string

const (
	SourceDurable  Source = SinkDurable
	SourceFallback Source = SinkFallback
)

// DefaultListLimit applies when a caller does not ask for a limit.
const DefaultListLimit = 200

// RecordResult holds the outcome of each sink. A nil field means the sink
// succeeded or is not configured.
type RecordResult struct {
	Event    models.AuditEvent
	Durable  error
	Fallback error
	Forward  error
}

// Err joins the per-sink errors.
func (r RecordResult) Err() error {
	return errors.Join(r.Durable, r.Fallback, r.Forward)
}

// ClearResult holds the outcome of clearing each sink.
type ClearResult struct {
	Durable  error
	Fallback error
}

func (r ClearResult) Err() error {
	return errors.Join(r.Durable, r.Fallback)
}

type Trail struct {
	store     Store
	buffer    *Buffer
	forwarder *Forwarder
	now       func() time.Time
}

// NewTrail wires the sinks. store and forwarder may be nil.
func NewTrail(store Store, buffer *Buffer, forwarder *Forwarder) *Trail {
	if buffer == nil {
		buffer = NewBuffer("", DefaultCapacity)
	}
	return &Trail{store: store, buffer: buffer, forwarder: forwarder, now: time.Now}
}

// Record writes event to every sink. Each sink is attempted regardless of
// the others; failures are logged and reported in the result but never
// meant to fail the caller's action.
func (t *Trail) Record(ctx context.Context, event models.AuditEvent) RecordResult {
	if event.At.IsZero() {
		event.At = t.now().UTC()
	}

	var res RecordResult

	if t.store != nil {
		durable := event
		wctx, cancel := database.DetachedWriteContext(ctx)
		res.Durable = t.store.InsertAudit(wctx, &durable)
		cancel()
		if res.Durable == nil {
			event.ID = durable.ID
			event.ActorID = durable.ActorID
		}
	}

	res.Fallback = t.buffer.Add(event)

	if t.forwarder != nil {
		res.Forward = t.forwarder.Forward(context.WithoutCancel(ctx), event)
	}

	res.Event = event
	t.report(ctx, "record", event.Action, SinkDurable, res.Durable)
	t.report(ctx, "record", event.Action, SinkFallback, res.Fallback)
	t.report(ctx, "record", event.Action, SinkForward, res.Forward)
	return res
}

// List returns up to limit events, newest first, from the durable store.
// If the store is missing or fails, the fallback buffer is returned instead.
func (t *Trail) List(ctx context.Context, limit int) ([]models.AuditEvent, Source) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	if t.store != nil {
		rows, err := t.store.ListAudit(ctx, limit)
		if err == nil {
			events := make([]models.AuditEvent, len(rows))
			for i, row := range rows {
				events[i] = *row
			}
			return events, SourceDurable
		}
		t.report(ctx, "list", "", SinkDurable, err)
	}
	return t.buffer.List(limit), SourceFallback
}

// Clear truncates each sink independently.
func (t *Trail) Clear(ctx context.Context) ClearResult {
	var res ClearResult
	if t.store != nil {
		wctx, cancel := database.DetachedWriteContext(ctx)
		res.Durable = t.store.ClearAudit(wctx)
		cancel()
	}
	res.Fallback = t.buffer.Clear()

	t.report(ctx, "clear", "", SinkDurable, res.Durable)
	t.report(ctx, "clear", "", SinkFallback, res.Fallback)
	return res
}

// Buffer exposes the fallback sink.
func (t *Trail) Buffer() *Buffer { return t.buffer }

func (t *Trail) report(ctx context.Context, op, action, sink string, err error) {
	if err == nil {
		return
	}
	metrics.AuditSinkErrors.WithLabelValues(sink, op).Inc()
	attrs := []any{logging.Sink(sink), slog.String("op", op), logging.Error(err)}
	if action != "" {
		attrs = append(attrs, logging.Action(action))
	}
	slog.WarnContext(ctx, "Audit sink failed", attrs...)
}
