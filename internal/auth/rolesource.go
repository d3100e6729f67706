package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/todo-service/internal/config"
	"github.com/spec-kit/todo-service/internal/domain"
	apperrors "github.com/spec-kit/todo-service/pkg/util/errorutil"
)

// RoleSource determines the caller's role after the token has been verified.
type RoleSource interface {
	ResolveRole(ctx context.Context, userID string, claims *Claims) (domain.Role, error)
}

// ClaimRoleSource reads the role straight from the verified token.
type ClaimRoleSource struct{}

func (ClaimRoleSource) ResolveRole(_ context.Context, _ string, claims *Claims) (domain.Role, error) {
	return domain.ParseRole(claims.RoleClaim()), nil
}

// ProviderRoleSource looks the role up in the identity provider's user API. Results are
// cached briefly so a dashboard burst costs one provider call.
type ProviderRoleSource struct {
	baseURL   string
	secretKey string
	client    *http.Client
	cache     *ristretto.Cache[string, string]
	ttl       time.Duration
	logger    *zap.Logger
}

type providerUser struct {
	ID             string `json:"id"`
	PublicMetadata struct {
		Role string `json:"role"`
	} `json:"public_metadata"`
}

// NewProviderRoleSource builds the provider-backed source.
func NewProviderRoleSource(cfg config.AuthConfig, logger *zap.Logger) (*ProviderRoleSource, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: 1e5,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create role cache: %w", err)
	}

	timeout := cfg.ProviderTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ProviderRoleSource{
		baseURL:   strings.TrimRight(cfg.ProviderAPIURL, "/"),
		secretKey: cfg.ProviderSecretKey,
		client:    &http.Client{Timeout: timeout},
		cache:     cache,
		ttl:       cfg.RoleCacheTTL,
		logger:    logger,
	}, nil
}

func (s *ProviderRoleSource) ResolveRole(ctx context.Context, userID string, _ *Claims) (domain.Role, error) {
	if s.ttl > 0 {
		if cached, ok := s.cache.Get(userID); ok {
			return domain.Role(cached), nil
		}
	}

	role, err := s.fetch(ctx, userID)
	if err != nil {
		return "", err
	}

	if s.ttl > 0 {
		s.cache.SetWithTTL(userID, string(role), 1, s.ttl)
		s.cache.Wait()
	}
	return role, nil
}

func (s *ProviderRoleSource) fetch(ctx context.Context, userID string) (domain.Role, error) {
	endpoint := s.baseURL + "/users/" + url.PathEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", apperrors.NewIdentityProviderUnavailable(err)
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("identity provider request failed", zap.String("user_id", userID), zap.Error(err))
		return "", apperrors.NewIdentityProviderUnavailable(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", apperrors.NewUnauthorized("unknown user")
	case resp.StatusCode != http.StatusOK:
		err := fmt.Errorf("identity provider returned status %d", resp.StatusCode)
		s.logger.Error("identity provider lookup failed", zap.String("user_id", userID), zap.Error(err))
		return "", apperrors.NewIdentityProviderUnavailable(err)
	}

	var user providerUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", apperrors.NewIdentityProviderUnavailable(fmt.Errorf("decode provider user: %w", err))
	}
	return domain.ParseRole(user.PublicMetadata.Role), nil
}

// Invalidate drops the cached role so the next request sees provider-side changes.
func (s *ProviderRoleSource) Invalidate(userID string) {
	s.cache.Del(userID)
}

// Close stops the cache's background goroutines.
func (s *ProviderRoleSource) Close() {
	s.cache.Close()
}
