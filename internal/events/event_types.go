package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTaskCreated         EventType = "task.created"
	EventTaskUpdated         EventType = "task.updated"
	EventTaskDeleted         EventType = "task.deleted"
	EventQuotaExceeded       EventType = "quota.exceeded"
	EventSubscriptionChanged EventType = "subscription.changed"
	EventUserProvisioned     EventType = "user.provisioned"
)

// AllEventTypes lists every type services publish.
var AllEventTypes = []EventType{
	EventTaskCreated,
	EventTaskUpdated,
	EventTaskDeleted,
	EventQuotaExceeded,
	EventSubscriptionChanged,
	EventUserProvisioned,
}

// Event represents a domain event emitted by services. UserID is the user whose data
// changed; ActorID is the caller, which differs from UserID for admin actions.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	ActorID   string      `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with an id and the current time.
func New(eventType EventType, userID, actorID string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TaskCreatedPayload payload.
type TaskCreatedPayload struct {
	TaskID string `json:"task_id"`
	Title  string `json:"title"`
}

// TaskUpdatedPayload payload.
type TaskUpdatedPayload struct {
	TaskID        string   `json:"task_id"`
	ChangedFields []string `json:"changed_fields"`
	Completed     bool     `json:"completed"`
}

// TaskDeletedPayload payload.
type TaskDeletedPayload struct {
	TaskID string `json:"task_id"`
}

// QuotaExceededPayload payload.
type QuotaExceededPayload struct {
	Limit int `json:"limit"`
	Count int `json:"count"`
}

// SubscriptionChangedPayload payload.
type SubscriptionChangedPayload struct {
	IsSubscribed     bool       `json:"is_subscribed"`
	SubscriptionEnds *time.Time `json:"subscription_ends,omitempty"`
}

// UserProvisionedPayload payload.
type UserProvisionedPayload struct {
	Email string `json:"email"`
}
