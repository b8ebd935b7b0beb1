package audit

import (
	"context"
	"encoding/json"
	"fmt"

	auditsig "github.com/numo-systems/numo-admin/common/audit"
	"github.com/numo-systems/numo-admin/common/messaging"
	"github.com/numo-systems/numo-admin/gateway/internal/models"
)

// Forwarder publishes every recorded event to the message bus so other
// systems can consume the trail.
type Forwarder struct {
	publisher messaging.Publisher
	subject   string
	signer    *auditsig.Signer
}

func NewForwarder(publisher messaging.Publisher, subject string) *Forwarder {
	if subject == "" {
		subject = messaging.SubjectAuditEvents
	}
	return &Forwarder{publisher: publisher, subject: subject}
}

// WithSigner adds an HMAC signature to the metadata of every message.
func (f *Forwarder) WithSigner(s *auditsig.Signer) *Forwarder {
	f.signer = s
	return f
}

func (f *Forwarder) Forward(ctx context.Context, event models.AuditEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	meta := map[string]string{"action": event.Action, "actor": event.Actor}
	if f.signer != nil {
		meta[auditsig.SignatureKey] = f.signer.Sign(event.Action, event.At, data)
	}
	return f.publisher.PublishMsg(ctx, &messaging.Message{
		Subject:   messaging.AuditActionSubject(f.subject, event.Action),
		Data:      data,
		Metadata:  meta,
		Timestamp: event.At,
	})
}
