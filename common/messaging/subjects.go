package messaging

import "regexp"

// Subjects follow {domain}.{resource}.{action}.
const (
	// SubjectAuditEvents carries every AuditTrail record as JSON.
	SubjectAuditEvents = "numo.audit.events"
)

// MaxActionLength bounds an action used as a subject suffix.
const MaxActionLength = 64

// actionPattern is dot-separated tokens of letters, digits, '_' and '-'.
// Wildcards, whitespace and control bytes never reach the wire.
var actionPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+)*$`)

// ValidAction reports whether action is safe to append to a subject.
func ValidAction(action string) bool {
	return len(action) <= MaxActionLength && actionPattern.MatchString(action)
}

// AuditActionSubject narrows SubjectAuditEvents to one action, e.g.
// numo.audit.events.auth.login, so consumers can subscribe selectively.
// Actions that are not valid subject tokens publish on base.
func AuditActionSubject(base, action string) string {
	if !ValidAction(action) {
		return base
	}
	return base + "." + action
}
