package ports

import "time"

// Audit actions recorded by the auth service.
const (
	AuditRegister = "register"
	AuditLogin    = "login"
	AuditRefresh  = "refresh"
	AuditLogout   = "logout"
)

// AuditEvent is one auth-flow outcome. Subject identifies the account the
// event is about (user id once known, otherwise the attempted email).
type AuditEvent struct {
	ID      string
	Action  string
	Subject string
	Outcome string
	At      time.Time
}

// AuditSink accepts audit events. Record must never block the auth path:
// implementations buffer or drop under pressure.
type AuditSink interface {
	Record(event AuditEvent)
}
