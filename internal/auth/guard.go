package auth

import (
	"github.com/spec-kit/todo-service/internal/domain"
	apperrors "github.com/spec-kit/todo-service/pkg/util/errorutil"
)

// Operation names an action checked by the Guard.
type Operation string

const (
	OpListTasks  Operation = "tasks:list"
	OpReadTask   Operation = "tasks:read"
	OpCreateTask Operation = "tasks:create"
	OpUpdateTask Operation = "tasks:update"
	OpDeleteTask Operation = "tasks:delete"

	OpReadSubscription   Operation = "subscription:read"
	OpCreateSubscription Operation = "subscription:create"

	OpAdminSearchUsers        Operation = "admin:users:search"
	OpAdminUpdateSubscription Operation = "admin:subscription:update"
	OpAdminUpdateTask         Operation = "admin:tasks:update"
	OpAdminDeleteTask         Operation = "admin:tasks:delete"

	OpIngestIdentityEvent Operation = "webhook:identity"
)

var publicOperations = map[Operation]struct{}{
	OpIngestIdentityEvent: {},
}

var adminOperations = map[Operation]struct{}{
	OpAdminSearchUsers:        {},
	OpAdminUpdateSubscription: {},
	OpAdminUpdateTask:         {},
	OpAdminDeleteTask:         {},
}

// Guard decides whether a principal may perform an operation on a resource.
type Guard struct{}

// NewGuard returns the authorization guard.
func NewGuard() *Guard {
	return &Guard{}
}

// Authorize returns nil when allowed. ownerID is the owner of the target resource, or
// "" for operations without one.
func (g *Guard) Authorize(principal *domain.Principal, op Operation, ownerID string) error {
	if _, ok := publicOperations[op]; ok {
		return nil
	}
	if principal == nil || principal.UserID == "" {
		return apperrors.NewUnauthorized("authentication required")
	}
	if principal.IsAdmin() {
		return nil
	}
	if _, ok := adminOperations[op]; ok {
		return apperrors.NewForbidden("admin role required")
	}
	if ownerID != "" && ownerID != principal.UserID {
		return apperrors.NewForbidden("access denied")
	}
	return nil
}
