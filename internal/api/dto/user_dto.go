package dto

import (
	"time"

	"github.com/spec-kit/todo-service/internal/domain"
	"github.com/spec-kit/todo-service/internal/service"
)

// MeResponse describes the caller.
type MeResponse struct {
	UserID    string      `json:"userId"`
	Role      domain.Role `json:"role"`
	Dashboard string      `json:"dashboard"`
}

// UserResponse represents a task owner.
type UserResponse struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	IsSubscribed     bool       `json:"isSubscribed"`
	SubscriptionEnds *time.Time `json:"subscriptionEnds"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// SubscriptionResponse is the caller-visible subscription state.
type SubscriptionResponse struct {
	IsSubscribed     bool       `json:"isSubscribed"`
	SubscriptionEnds *time.Time `json:"subscriptionEnds"`
	Active           bool       `json:"active"`
}

// NewUserResponse maps the domain model.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:               user.ID,
		Email:            user.Email,
		IsSubscribed:     user.IsSubscribed,
		SubscriptionEnds: user.SubscriptionEnds,
		CreatedAt:        user.CreatedAt,
	}
}

// NewSubscriptionResponse maps a status.
func NewSubscriptionResponse(status *service.SubscriptionStatus) SubscriptionResponse {
	return SubscriptionResponse{
		IsSubscribed:     status.IsSubscribed,
		SubscriptionEnds: status.SubscriptionEnds,
		Active:           status.Active,
	}
}
