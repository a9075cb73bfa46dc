package ports

import (
	"context"

	"github.com/projecthub/portal/internal/core/domain"
)

// AuditService processes a single audit event: dedup, persist, log.
type AuditService interface {
	Process(ctx context.Context, event domain.AuthEvent) error
}
