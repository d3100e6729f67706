package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/todo-service/internal/api/dto"
	"github.com/spec-kit/todo-service/internal/service"
)

// AdminHandler exposes the admin dashboard endpoints.
type AdminHandler struct {
	service *service.AdminService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{service: adminService}
}

// Search GET /admin?email=&page=.
func (h *AdminHandler) Search(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	input := parseListInput(c)
	input.Search = ""
	result, err := h.service.FindUserWithTasks(c.UserContext(), principal, c.Query("email"), input)
	if err != nil {
		return err
	}
	return c.JSON(dto.AdminSearchResponse{
		User:             dto.NewUserResponse(result.User),
		TaskListResponse: dto.NewTaskListResponse(result.Tasks),
	})
}

// Update PUT /admin.
func (h *AdminHandler) Update(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AdminUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.service.ApplyChanges(c.UserContext(), principal, service.AdminUpdateInput{
		Email:         req.Email,
		IsSubscribed:  req.IsSubscribed,
		TaskID:        req.TodoID,
		TaskCompleted: req.TodoCompleted,
		TaskTitle:     req.TodoTitle,
	})
	if err != nil {
		return err
	}

	resp := dto.AdminUpdateResponse{Message: "Update successful"}
	if result.Subscription != nil {
		sub := dto.NewSubscriptionResponse(result.Subscription)
		resp.Subscription = &sub
	}
	if result.Task != nil {
		task := dto.NewTaskResponse(result.Task)
		resp.Task = &task
	}
	return c.JSON(resp)
}

// DeleteTask DELETE /admin.
func (h *AdminHandler) DeleteTask(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AdminDeleteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.service.DeleteTask(c.UserContext(), principal, req.TodoID); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Todo deleted successfully"})
}
