package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/todo-service/internal/auth"
	"github.com/spec-kit/todo-service/internal/domain"
	"github.com/spec-kit/todo-service/internal/events"
	"github.com/spec-kit/todo-service/internal/repository"
)

// SubscriptionService reads and mutates a user's subscription flag and expiry.
type SubscriptionService struct {
	users  repository.UserRepository
	guard  *auth.Guard
	now    Clock
	logger *zap.Logger
	publisher
}

// SubscriptionDependencies bundles collaborators for the subscription service.
type SubscriptionDependencies struct {
	UserRepo   repository.UserRepository
	Guard      *auth.Guard
	Clock      Clock
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// SubscriptionStatus is the read model of a user's subscription. Active is false once
// SubscriptionEnds has passed even if the stored flag is still set.
type SubscriptionStatus struct {
	IsSubscribed     bool
	SubscriptionEnds *time.Time
	Active           bool
}

// NewSubscriptionService constructs the service.
func NewSubscriptionService(deps SubscriptionDependencies) *SubscriptionService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	guard := deps.Guard
	if guard == nil {
		guard = auth.NewGuard()
	}
	clock := deps.Clock
	if clock == nil {
		clock = systemClock
	}
	return &SubscriptionService{
		users:     deps.UserRepo,
		guard:     guard,
		now:       clock,
		logger:    logger,
		publisher: publisher{dispatcher: deps.Dispatcher, logger: logger},
	}
}

// Subscribe starts a fresh subscription window from now. Re-subscribing resets the
// window instead of extending it.
func (s *SubscriptionService) Subscribe(ctx context.Context, principal *domain.Principal, userID string) (*SubscriptionStatus, error) {
	if err := s.guard.Authorize(principal, auth.OpCreateSubscription, userID); err != nil {
		return nil, err
	}
	return s.set(ctx, principal, userID, true)
}

// Unsubscribe clears the subscription. Admin only.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, principal *domain.Principal, userID string) (*SubscriptionStatus, error) {
	if err := s.guard.Authorize(principal, auth.OpAdminUpdateSubscription, userID); err != nil {
		return nil, err
	}
	return s.set(ctx, principal, userID, false)
}

// GetStatus reports the stored subscription state.
func (s *SubscriptionService) GetStatus(ctx context.Context, principal *domain.Principal, userID string) (*SubscriptionStatus, error) {
	if err := s.guard.Authorize(principal, auth.OpReadSubscription, userID); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundAs(err, "user")
	}
	return s.status(user), nil
}

func (s *SubscriptionService) set(ctx context.Context, principal *domain.Principal, userID string, subscribed bool) (*SubscriptionStatus, error) {
	var ends *time.Time
	if subscribed {
		end := s.now().Add(domain.SubscriptionPeriod)
		ends = &end
	}

	user, err := s.users.UpdateSubscription(ctx, userID, subscribed, ends)
	if err != nil {
		return nil, notFoundAs(err, "user")
	}

	s.logger.Info("subscription changed",
		zap.String("user_id", userID),
		zap.String("actor_id", principal.UserID),
		zap.Bool("subscribed", subscribed))
	s.publish(ctx, events.New(events.EventSubscriptionChanged, userID, principal.UserID,
		events.SubscriptionChangedPayload{IsSubscribed: user.IsSubscribed, SubscriptionEnds: user.SubscriptionEnds}))
	return s.status(user), nil
}

func (s *SubscriptionService) status(user *domain.User) *SubscriptionStatus {
	return &SubscriptionStatus{
		IsSubscribed:     user.IsSubscribed,
		SubscriptionEnds: user.SubscriptionEnds,
		Active:           user.HasActiveSubscription(s.now()),
	}
}
