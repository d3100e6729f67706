package service

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/spec-kit/todo-service/internal/auth"
	"github.com/spec-kit/todo-service/internal/domain"
	"github.com/spec-kit/todo-service/internal/events"
	"github.com/spec-kit/todo-service/internal/repository"
	"github.com/spec-kit/todo-service/internal/webhook"
	apperrors "github.com/spec-kit/todo-service/pkg/util/errorutil"
)

// ProvisioningState tracks a delivery through verification and processing.
type ProvisioningState string

const (
	StateUnverified ProvisioningState = "unverified"
	StateVerified   ProvisioningState = "verified"
	StateProcessed  ProvisioningState = "processed"
	StateRejected   ProvisioningState = "rejected"
)

// RoleCacheInvalidator drops cached roles when the provider reports a user change.
type RoleCacheInvalidator interface {
	Invalidate(userID string)
}

// ProvisioningResult describes the outcome of one delivery.
type ProvisioningResult struct {
	State      ProvisioningState
	DeliveryID string
	EventType  string
	UserID     string
	// Created is true only when this delivery inserted the user.
	Created bool
	// Duplicate marks a redelivery or an already provisioned identity.
	Duplicate bool
	Ignored   bool
}

// ProvisioningService ingests identity lifecycle events.
type ProvisioningService struct {
	users      repository.UserRepository
	verifier   webhook.Verifier
	deliveries webhook.DeliveryLog
	roles      RoleCacheInvalidator
	guard      *auth.Guard
	logger     *zap.Logger
	publisher
}

// ProvisioningDependencies bundles collaborators for provisioning.
type ProvisioningDependencies struct {
	UserRepo   repository.UserRepository
	Verifier   webhook.Verifier
	Deliveries webhook.DeliveryLog
	Roles      RoleCacheInvalidator
	Guard      *auth.Guard
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewProvisioningService constructs the service.
func NewProvisioningService(deps ProvisioningDependencies) *ProvisioningService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	guard := deps.Guard
	if guard == nil {
		guard = auth.NewGuard()
	}
	deliveries := deps.Deliveries
	if deliveries == nil {
		deliveries = webhook.NoopDeliveryLog{}
	}
	return &ProvisioningService{
		users:      deps.UserRepo,
		verifier:   deps.Verifier,
		deliveries: deliveries,
		roles:      deps.Roles,
		guard:      guard,
		logger:     logger,
		publisher:  publisher{dispatcher: deps.Dispatcher, logger: logger},
	}
}

// Receive verifies and applies one delivery. The result is returned alongside any error
// so callers can record the final state.
func (s *ProvisioningService) Receive(ctx context.Context, payload []byte, headers http.Header) (*ProvisioningResult, error) {
	result := &ProvisioningResult{State: StateUnverified, DeliveryID: headers.Get(webhook.HeaderID)}
	if err := s.guard.Authorize(nil, auth.OpIngestIdentityEvent, ""); err != nil {
		return result, err
	}

	if err := s.verifier.Verify(payload, headers); err != nil {
		result.State = StateRejected
		s.logger.Warn("webhook verification failed", zap.String("delivery_id", result.DeliveryID), zap.Error(err))
		return result, apperrors.NewInvalidSignature(err)
	}
	result.State = StateVerified

	if result.DeliveryID != "" {
		seen, err := s.deliveries.Seen(ctx, result.DeliveryID)
		if err != nil {
			s.logger.Warn("delivery log lookup failed", zap.String("delivery_id", result.DeliveryID), zap.Error(err))
		} else if seen {
			result.State = StateProcessed
			result.Duplicate = true
			return result, nil
		}
	}

	evt, err := webhook.ParseEvent(payload)
	if err != nil {
		result.State = StateRejected
		return result, apperrors.NewMalformedEvent("invalid event payload")
	}
	result.EventType = evt.Type

	switch evt.Type {
	case webhook.EventUserCreated:
		err = s.provision(ctx, evt, result)
	case webhook.EventUserUpdated, webhook.EventUserDeleted:
		err = s.invalidateRole(evt, result)
	default:
		result.Ignored = true
	}
	if err != nil {
		var domainErr *apperrors.DomainError
		if errors.As(err, &domainErr) && domainErr.HTTPStatus < http.StatusInternalServerError {
			result.State = StateRejected
		}
		return result, err
	}

	if result.DeliveryID != "" {
		if err := s.deliveries.MarkProcessed(ctx, result.DeliveryID); err != nil {
			s.logger.Warn("delivery log write failed", zap.String("delivery_id", result.DeliveryID), zap.Error(err))
		}
	}
	result.State = StateProcessed
	return result, nil
}

func (s *ProvisioningService) provision(ctx context.Context, evt *webhook.Event, result *ProvisioningResult) error {
	data, err := evt.User()
	if err != nil {
		return apperrors.NewMalformedEvent("invalid user payload")
	}
	result.UserID = data.ID

	email, ok := data.PrimaryEmail()
	if !ok {
		return apperrors.NewMalformedEvent("primary email address missing")
	}

	created, err := s.users.Create(ctx, &domain.User{ID: data.ID, Email: email})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return apperrors.NewConflict("email already registered", map[string]any{"userId": data.ID})
		}
		return err
	}
	result.Created = created
	result.Duplicate = !created

	if created {
		s.logger.Info("user provisioned", zap.String("user_id", data.ID))
		s.publish(ctx, events.New(events.EventUserProvisioned, data.ID, "",
			events.UserProvisionedPayload{Email: email}))
	} else {
		s.logger.Info("user already provisioned", zap.String("user_id", data.ID))
	}
	return nil
}

func (s *ProvisioningService) invalidateRole(evt *webhook.Event, result *ProvisioningResult) error {
	data, err := evt.User()
	if err != nil {
		return apperrors.NewMalformedEvent("invalid user payload")
	}
	result.UserID = data.ID
	if s.roles != nil {
		s.roles.Invalidate(data.ID)
	}
	return nil
}
