package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/todo-service/internal/auth"
	"github.com/spec-kit/todo-service/internal/domain"
	"github.com/spec-kit/todo-service/internal/repository"
	apperrors "github.com/spec-kit/todo-service/pkg/util/errorutil"
)

// AdminService is the cross-user lookup and mutation surface.
type AdminService struct {
	users         repository.UserRepository
	tasks         *TaskService
	subscriptions *SubscriptionService
	guard         *auth.Guard
	logger        *zap.Logger
}

// AdminDependencies bundles collaborators for the admin service.
type AdminDependencies struct {
	UserRepo      repository.UserRepository
	Tasks         *TaskService
	Subscriptions *SubscriptionService
	Guard         *auth.Guard
	Logger        *zap.Logger
}

// UserWithTasks is a user plus one page of their tasks.
type UserWithTasks struct {
	User  *domain.User
	Tasks *TaskPage
}

// AdminUpdateInput is the combined admin mutation. Subscription changes need Email and
// IsSubscribed; task changes need TaskID.
type AdminUpdateInput struct {
	Email         string
	IsSubscribed  *bool
	TaskID        string
	TaskCompleted *bool
	TaskTitle     *string
}

// AdminUpdateResult carries whatever was changed.
type AdminUpdateResult struct {
	Subscription *SubscriptionStatus
	Task         *domain.Task
}

// NewAdminService constructs the service.
func NewAdminService(deps AdminDependencies) *AdminService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	guard := deps.Guard
	if guard == nil {
		guard = auth.NewGuard()
	}
	return &AdminService{
		users:         deps.UserRepo,
		tasks:         deps.Tasks,
		subscriptions: deps.Subscriptions,
		guard:         guard,
		logger:        logger,
	}
}

// FindUserWithTasks looks a user up by email and pages through their tasks.
func (s *AdminService) FindUserWithTasks(ctx context.Context, principal *domain.Principal, email string, input ListInput) (*UserWithTasks, error) {
	if err := s.guard.Authorize(principal, auth.OpAdminSearchUsers, ""); err != nil {
		return nil, err
	}
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	page, err := s.tasks.listForOwner(ctx, user.ID, input)
	if err != nil {
		return nil, err
	}
	return &UserWithTasks{User: user, Tasks: page}, nil
}

// SetSubscription subscribes or unsubscribes the user owning email.
func (s *AdminService) SetSubscription(ctx context.Context, principal *domain.Principal, email string, subscribed bool) (*SubscriptionStatus, error) {
	if err := s.guard.Authorize(principal, auth.OpAdminUpdateSubscription, ""); err != nil {
		return nil, err
	}
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if subscribed {
		return s.subscriptions.Subscribe(ctx, principal, user.ID)
	}
	return s.subscriptions.Unsubscribe(ctx, principal, user.ID)
}

// UpdateTask edits any user's task.
func (s *AdminService) UpdateTask(ctx context.Context, principal *domain.Principal, taskID string, patch domain.TaskPatch) (*domain.Task, error) {
	if err := s.guard.Authorize(principal, auth.OpAdminUpdateTask, ""); err != nil {
		return nil, err
	}
	return s.tasks.UpdateTask(ctx, principal, taskID, patch)
}

// DeleteTask removes any user's task.
func (s *AdminService) DeleteTask(ctx context.Context, principal *domain.Principal, taskID string) error {
	if err := s.guard.Authorize(principal, auth.OpAdminDeleteTask, ""); err != nil {
		return err
	}
	if strings.TrimSpace(taskID) == "" {
		return apperrors.NewValidationError("todoId is required", map[string]any{"field": "todoId"})
	}
	return s.tasks.DeleteTask(ctx, principal, taskID)
}

// ApplyChanges runs the subscription change and then the task change from one request.
// A blank TaskTitle leaves the title untouched.
func (s *AdminService) ApplyChanges(ctx context.Context, principal *domain.Principal, input AdminUpdateInput) (*AdminUpdateResult, error) {
	if err := s.guard.Authorize(principal, auth.OpAdminUpdateTask, ""); err != nil {
		return nil, err
	}

	if input.TaskTitle != nil && strings.TrimSpace(*input.TaskTitle) == "" {
		input.TaskTitle = nil
	}
	hasTaskChange := input.TaskID != "" && (input.TaskCompleted != nil || input.TaskTitle != nil)
	if input.IsSubscribed == nil && !hasTaskChange {
		return nil, apperrors.NewValidationError("no changes requested", map[string]any{
			"fields": []string{"isSubscribed", "todoId"},
		})
	}
	if (input.TaskCompleted != nil || input.TaskTitle != nil) && input.TaskID == "" {
		return nil, apperrors.NewValidationError("todoId is required", map[string]any{"field": "todoId"})
	}

	result := &AdminUpdateResult{}
	if input.IsSubscribed != nil {
		status, err := s.SetSubscription(ctx, principal, input.Email, *input.IsSubscribed)
		if err != nil {
			return nil, err
		}
		result.Subscription = status
	}
	if hasTaskChange {
		task, err := s.UpdateTask(ctx, principal, input.TaskID, domain.TaskPatch{
			Title:     input.TaskTitle,
			Completed: input.TaskCompleted,
		})
		if err != nil {
			return nil, err
		}
		result.Task = task
	}
	return result, nil
}

func (s *AdminService) userByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperrors.NewValidationError("email is required", map[string]any{"field": "email"})
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, notFoundAs(err, "user")
	}
	return user, nil
}
