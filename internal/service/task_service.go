package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/todo-service/internal/auth"
	"github.com/spec-kit/todo-service/internal/domain"
	"github.com/spec-kit/todo-service/internal/events"
	"github.com/spec-kit/todo-service/internal/repository"
	apperrors "github.com/spec-kit/todo-service/pkg/util/errorutil"
)

// TaskService coordinates task workflows.
type TaskService struct {
	tasks    repository.TaskRepository
	guard    *auth.Guard
	quota    QuotaPolicy
	pageSize int
	now      Clock
	logger   *zap.Logger
	publisher
}

// TaskDependencies bundles collaborators for the task service.
type TaskDependencies struct {
	TaskRepo   repository.TaskRepository
	Guard      *auth.Guard
	Quota      QuotaPolicy
	PageSize   int
	Clock      Clock
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// ListInput describes a page request with an optional title search.
type ListInput struct {
	Page     int
	PageSize int
	Search   string
}

// TaskPage is one page of an owner's tasks.
type TaskPage struct {
	Items       []domain.Task
	CurrentPage int
	TotalPages  int
	TotalCount  int
	PageSize    int
}

// NewTaskService constructs the service.
func NewTaskService(deps TaskDependencies) *TaskService {
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
	quota := deps.Quota
	if quota.FreeLimit <= 0 {
		quota = NewQuotaPolicy()
	}
	return &TaskService{
		tasks:     deps.TaskRepo,
		guard:     guard,
		quota:     quota,
		pageSize:  deps.PageSize,
		now:       clock,
		logger:    logger,
		publisher: publisher{dispatcher: deps.Dispatcher, logger: logger},
	}
}

// ListTasks returns the caller's own tasks, newest first.
func (s *TaskService) ListTasks(ctx context.Context, principal *domain.Principal, input ListInput) (*TaskPage, error) {
	if err := s.guard.Authorize(principal, auth.OpListTasks, ""); err != nil {
		return nil, err
	}
	return s.listForOwner(ctx, principal.UserID, input)
}

func (s *TaskService) listForOwner(ctx context.Context, ownerID string, input ListInput) (*TaskPage, error) {
	page := domain.NewPage(input.Page, input.PageSize, s.pageSize)
	items, total, err := s.tasks.List(ctx, repository.TaskFilter{
		OwnerID:    ownerID,
		SearchTerm: input.Search,
		Limit:      page.Size,
		Offset:     page.Offset(),
	})
	if err != nil {
		return nil, err
	}
	return &TaskPage{
		Items:       items,
		CurrentPage: page.Number,
		TotalPages:  page.TotalPages(total),
		TotalCount:  total,
		PageSize:    page.Size,
	}, nil
}

// CreateTask inserts a task for the caller once the quota allows it.
func (s *TaskService) CreateTask(ctx context.Context, principal *domain.Principal, title string) (*domain.Task, error) {
	if err := s.guard.Authorize(principal, auth.OpCreateTask, ""); err != nil {
		return nil, err
	}
	title, err := normalizeTitle(title)
	if err != nil {
		return nil, err
	}

	task := &domain.Task{
		ID:      uuid.NewString(),
		OwnerID: principal.UserID,
		Title:   title,
	}

	observed := -1
	if err := s.tasks.CreateChecked(ctx, task, s.quota.Check(s.now(), &observed)); err != nil {
		if apperrors.HasCode(err, apperrors.CodeQuotaExceeded) {
			s.logger.Info("task quota exceeded", zap.String("user_id", principal.UserID), zap.Int("count", observed))
			s.publish(ctx, events.New(events.EventQuotaExceeded, principal.UserID, principal.UserID,
				events.QuotaExceededPayload{Limit: s.quota.limit(), Count: observed}))
			return nil, err
		}
		return nil, notFoundAs(err, "user")
	}

	s.publish(ctx, events.New(events.EventTaskCreated, task.OwnerID, principal.UserID,
		events.TaskCreatedPayload{TaskID: task.ID, Title: task.Title}))
	return task, nil
}

// GetTask loads a task visible to the caller.
func (s *TaskService) GetTask(ctx context.Context, principal *domain.Principal, taskID string) (*domain.Task, error) {
	return s.loadAuthorized(ctx, principal, auth.OpReadTask, taskID)
}

// UpdateTask applies a partial patch. Ownership is checked before the patch is validated
// so a foreign task always yields Forbidden.
func (s *TaskService) UpdateTask(ctx context.Context, principal *domain.Principal, taskID string, patch domain.TaskPatch) (*domain.Task, error) {
	if _, err := s.loadAuthorized(ctx, principal, auth.OpUpdateTask, taskID); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, apperrors.NewValidationError("nothing to update", map[string]any{"fields": []string{"title", "completed"}})
	}
	changed := make([]string, 0, 2)
	if patch.Title != nil {
		title, err := normalizeTitle(*patch.Title)
		if err != nil {
			return nil, err
		}
		patch.Title = &title
		changed = append(changed, "title")
	}
	if patch.Completed != nil {
		changed = append(changed, "completed")
	}

	updated, err := s.tasks.Update(ctx, taskID, patch)
	if err != nil {
		return nil, notFoundAs(err, "task")
	}

	s.publish(ctx, events.New(events.EventTaskUpdated, updated.OwnerID, principal.UserID,
		events.TaskUpdatedPayload{TaskID: updated.ID, ChangedFields: changed, Completed: updated.Completed}))
	return updated, nil
}

// DeleteTask permanently removes a task.
func (s *TaskService) DeleteTask(ctx context.Context, principal *domain.Principal, taskID string) error {
	task, err := s.loadAuthorized(ctx, principal, auth.OpDeleteTask, taskID)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, taskID); err != nil {
		return notFoundAs(err, "task")
	}

	s.publish(ctx, events.New(events.EventTaskDeleted, task.OwnerID, principal.UserID,
		events.TaskDeletedPayload{TaskID: task.ID}))
	return nil
}

func (s *TaskService) loadAuthorized(ctx context.Context, principal *domain.Principal, op auth.Operation, taskID string) (*domain.Task, error) {
	// Reject anonymous callers before revealing whether the task exists.
	if principal == nil {
		return nil, s.guard.Authorize(nil, op, "")
	}
	if strings.TrimSpace(taskID) == "" {
		return nil, apperrors.NewValidationError("task id is required", map[string]any{"field": "id"})
	}
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, notFoundAs(err, "task")
	}
	if err := s.guard.Authorize(principal, op, task.OwnerID); err != nil {
		return nil, err
	}
	return task, nil
}

func normalizeTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	if utf8.RuneCountInString(title) > domain.MaxTaskTitleLength {
		return "", apperrors.NewValidationError("title is too long", map[string]any{
			"field": "title",
			"max":   domain.MaxTaskTitleLength,
		})
	}
	return title, nil
}
