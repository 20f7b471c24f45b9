package services

import (
	"context"

	"unionpass-api/internal/core/domain"
)

// Note: the concrete services are in their own files. The interfaces below
// are the seams between them.

// Auditor records privileged actions. Implementations must not fail the caller.
type Auditor interface {
	Record(ctx context.Context, entry AuditEntry)
}

// PrincipalResolver resolves the caller of the current request
type PrincipalResolver interface {
	CurrentPrincipal(ctx context.Context) *domain.Principal
}

var (
	_ Auditor           = (*AuditService)(nil)
	_ PrincipalResolver = (*IdentityService)(nil)
)
