package dto

// AdminUpdateRequest mirrors the admin dashboard form. Every field is optional.
type AdminUpdateRequest struct {
	Email         string  `json:"email"`
	IsSubscribed  *bool   `json:"isSubscribed"`
	TodoID        string  `json:"todoId"`
	TodoCompleted *bool   `json:"todoCompleted"`
	TodoTitle     *string `json:"todoTitle"`
}

// AdminDeleteRequest payload.
type AdminDeleteRequest struct {
	TodoID string `json:"todoId"`
}

// AdminSearchResponse is a user with one page of their tasks.
type AdminSearchResponse struct {
	User UserResponse `json:"user"`
	TaskListResponse
}

// AdminUpdateResponse reports what changed.
type AdminUpdateResponse struct {
	Message      string                `json:"message"`
	Subscription *SubscriptionResponse `json:"subscription,omitempty"`
	Task         *TaskResponse         `json:"task,omitempty"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}
