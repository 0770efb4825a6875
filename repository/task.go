package repository

import (
	"context"
	"time"

	"github.com/taskvault/backend/domain"
)

// TaskFilter constrains a task list query. An empty OwnerID means
// unrestricted; the use case layer sets it from the access policy before the
// query runs.
type TaskFilter struct {
	OwnerID  string
	Status   domain.TaskStatus
	Priority domain.TaskPriority
	Limit    int
	Offset   int
}

// TaskPatch carries a partial update; nil fields are left untouched. The
// owner is deliberately absent: ownership is immutable after creation.
// ClearDueDate resets the due date to unset and wins over DueDate.
type TaskPatch struct {
	Title        *string
	Description  *string
	Status       *domain.TaskStatus
	Priority     *domain.TaskPriority
	DueDate      *time.Time
	ClearDueDate bool
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && p.DueDate == nil && !p.ClearDueDate
}

// GroupDimension selects the column a grouped count aggregates on.
type GroupDimension string

const (
	GroupByStatus   GroupDimension = "status"
	GroupByPriority GroupDimension = "priority"
)

type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	// List returns the filtered page and the total count of the filtered set.
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, int, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	Update(ctx context.Context, id string, patch TaskPatch) (*domain.Task, error)
	Delete(ctx context.Context, id string) error
	GroupCount(ctx context.Context, by GroupDimension) (map[string]int, error)
}
