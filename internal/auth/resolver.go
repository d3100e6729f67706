package auth

import (
	"context"
	"strings"

	"github.com/spec-kit/todo-service/internal/domain"
	apperrors "github.com/spec-kit/todo-service/pkg/util/errorutil"
)

// Resolver maps a request credential to a Principal.
type Resolver struct {
	tokens *TokenManager
	roles  RoleSource
}

// NewResolver constructs a resolver. A nil role source reads roles from token claims.
func NewResolver(tokens *TokenManager, roles RoleSource) *Resolver {
	if roles == nil {
		roles = ClaimRoleSource{}
	}
	return &Resolver{tokens: tokens, roles: roles}
}

// Resolve verifies the bearer token and determines the caller's role.
func (r *Resolver) Resolve(ctx context.Context, authHeader string) (*domain.Principal, error) {
	if authHeader == "" {
		return nil, apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return nil, apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := r.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}

	role, err := r.roles.ResolveRole(ctx, claims.Subject, claims)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &domain.Principal{UserID: claims.Subject, Role: role}, nil
}
