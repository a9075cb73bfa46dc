package ports

import (
	"context"

	"github.com/projecthub/portal/internal/core/domain"
)

// AuditRepository persists the auth audit trail.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event *domain.AuthEvent) error
}

// AuditRecorder accepts audit events without blocking the caller.
type AuditRecorder interface {
	Record(event domain.AuthEvent)
}
