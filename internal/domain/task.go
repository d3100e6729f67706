package domain

import "time"

// MaxTaskTitleLength bounds task titles after trimming.
const MaxTaskTitleLength = 500

// Task is a single to-do item owned by exactly one user.
type Task struct {
	ID        string
	OwnerID   string
	Title     string
	Completed bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaskPatch is a partial update; nil fields are left untouched.
type TaskPatch struct {
	Title     *string
	Completed *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Completed == nil
}
