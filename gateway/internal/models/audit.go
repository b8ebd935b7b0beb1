package models

import (
	"encoding/json"
	"time"
)

// AuditEvent is one entry of the audit trail. Detail is an arbitrary JSON
// document supplied by the caller. Actor is the username at the time of the
// action; ActorID is set when the actor has a users row.
type AuditEvent struct {
	ID      int64           `json:"id,omitempty"`
	Action  string          `json:"action"`
	Detail  json.RawMessage `json:"detail,omitempty"`
	Actor   string          `json:"actor,omitempty"`
	ActorID *int64          `json:"user_id,omitempty"`
	At      time.Time       `json:"created_at"`
}

// AuditRequest is the body of POST /api/audit.
type AuditRequest struct {
	Action string          `json:"action"`
	Detail json.RawMessage `json:"detail,omitempty"`
}
