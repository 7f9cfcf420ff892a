package shared

import (
	"context"
	"time"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	OrgID    int64
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditRecorder appends audit records; implemented by internal/audit.
type AuditRecorder interface {
	Record(ctx context.Context, log AuditLog) error
}
