package dto

import (
	"time"

	"github.com/spec-kit/todo-service/internal/domain"
	"github.com/spec-kit/todo-service/internal/service"
)

// CreateTaskRequest payload.
type CreateTaskRequest struct {
	Title string `json:"title"`
}

// UpdateTaskRequest payload. Absent fields are left unchanged.
type UpdateTaskRequest struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

// TaskResponse represents a task.
type TaskResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TaskListResponse is one page of tasks.
type TaskListResponse struct {
	Items       []TaskResponse `json:"items"`
	CurrentPage int            `json:"currentPage"`
	TotalPages  int            `json:"totalPages"`
	TotalCount  int            `json:"totalCount"`
	PageSize    int            `json:"pageSize"`
}

// NewTaskResponse maps the domain model.
func NewTaskResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:        task.ID,
		Title:     task.Title,
		Completed: task.Completed,
		UserID:    task.OwnerID,
		CreatedAt: task.CreatedAt,
		UpdatedAt: task.UpdatedAt,
	}
}

// NewTaskListResponse maps a service page.
func NewTaskListResponse(page *service.TaskPage) TaskListResponse {
	items := make([]TaskResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, NewTaskResponse(&page.Items[i]))
	}
	return TaskListResponse{
		Items:       items,
		CurrentPage: page.CurrentPage,
		TotalPages:  page.TotalPages,
		TotalCount:  page.TotalCount,
		PageSize:    page.PageSize,
	}
}
