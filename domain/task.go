package domain

import "time"

// TaskStatus is the closed set of task lifecycle states.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskCancelled  TaskStatus = "CANCELLED"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskCancelled:
		return true
	}
	return false
}

// TaskPriority is the closed set of task priorities.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "LOW"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityHigh   TaskPriority = "HIGH"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
)

// Task represents a user-owned activity item. OwnerID is set at creation and
// never changes afterwards.
type Task struct {
	ID          string       `json:"id"`
	OwnerID     string       `json:"owner_id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (t *Task) IsCompleted() bool {
	return t != nil && t.Status == TaskCompleted
}

// Validate checks the field-level invariants that must hold before a task
// reaches the store.
func (t *Task) Validate() error {
	if t == nil {
		return ErrInvalidPayload
	}
	if t.Title == "" || len(t.Title) > MaxTitleLength {
		return NewError(ErrCodeInvalid, "title must be non-empty and at most 200 characters")
	}
	if len(t.Description) > MaxDescriptionLength {
		return NewError(ErrCodeInvalid, "description must be at most 2000 characters")
	}
	if !t.Status.Valid() {
		return NewError(ErrCodeInvalid, "unknown task status")
	}
	if !t.Priority.Valid() {
		return NewError(ErrCodeInvalid, "unknown task priority")
	}
	return nil
}
