package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskvault/backend/domain"
	"github.com/taskvault/backend/repository"
)

type taskRepository struct {
	db DB
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(db DB) repository.TaskRepository {
	return &taskRepository{db: db}
}

const taskColumns = `id, owner_id, title, description, status, priority, due_date, created_at, updated_at`

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	const query = `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE id = $1
	`
	return scanTask(r.db.QueryRow(ctx, query, id))
}

// List filters at the query itself. The ownership constraint arrives already
// resolved in the filter; rows outside it are never fetched, and the window
// count reflects the filtered set only.
func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, int, error) {
	const query = `
	SELECT ` + taskColumns + `, COUNT(*) OVER() AS total
	FROM tasks
	WHERE ($1 = '' OR owner_id = $1)
	  AND ($2 = '' OR status = $2)
	  AND ($3 = '' OR priority = $3)
	ORDER BY created_at DESC
	LIMIT $4 OFFSET $5
	`
	rows, err := r.db.Query(ctx, query,
		filter.OwnerID,
		string(filter.Status),
		string(filter.Priority),
		clampLimit(filter.Limit),
		clampOffset(filter.Offset),
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tasks []domain.Task
	var total int
	for rows.Next() {
		task, rowTotal, err := scanTaskWithTotal(rows)
		if err != nil {
			return nil, 0, err
		}
		total = rowTotal
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(tasks) == 0 {
		// Page past the end: fall back to a bare count so total stays correct.
		total, err = r.count(ctx, filter)
		if err != nil {
			return nil, 0, err
		}
	}
	return tasks, total, nil
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO tasks (id, owner_id, title, description, status, priority, due_date)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING created_at, updated_at
	`
	var due interface{}
	if task.DueDate != nil {
		due = *task.DueDate
	}

	if err := r.db.QueryRow(ctx, query,
		task.ID,
		task.OwnerID,
		task.Title,
		task.Description,
		string(task.Status),
		string(task.Priority),
		due,
	).Scan(&task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, err
	}
	return task, nil
}

// Update applies a partial patch; nil fields keep their stored value. The
// owner column is not part of the statement at all.
func (r *taskRepository) Update(ctx context.Context, id string, patch repository.TaskPatch) (*domain.Task, error) {
	const query = `
	UPDATE tasks
	SET title = COALESCE($2, title),
		description = COALESCE($3, description),
		status = COALESCE($4, status),
		priority = COALESCE($5, priority),
		due_date = CASE WHEN $7 THEN NULL ELSE COALESCE($6, due_date) END,
		updated_at = NOW()
	WHERE id = $1
	RETURNING ` + taskColumns + `
	`
	var status, priority *string
	if patch.Status != nil {
		s := string(*patch.Status)
		status = &s
	}
	if patch.Priority != nil {
		p := string(*patch.Priority)
		priority = &p
	}

	task, err := scanTask(r.db.QueryRow(ctx, query,
		id,
		patch.Title,
		patch.Description,
		status,
		priority,
		patch.DueDate,
		patch.ClearDueDate,
	))
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM tasks WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *taskRepository) GroupCount(ctx context.Context, by repository.GroupDimension) (map[string]int, error) {
	var query string
	switch by {
	case repository.GroupByStatus:
		query = `SELECT status, COUNT(*) FROM tasks GROUP BY status`
	case repository.GroupByPriority:
		query = `SELECT priority, COUNT(*) FROM tasks GROUP BY priority`
	default:
		return nil, fmt.Errorf("unsupported group dimension %q", by)
	}

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		counts[key] = count
	}
	return counts, rows.Err()
}

func (r *taskRepository) count(ctx context.Context, filter repository.TaskFilter) (int, error) {
	const query = `
	SELECT COUNT(*)
	FROM tasks
	WHERE ($1 = '' OR owner_id = $1)
	  AND ($2 = '' OR status = $2)
	  AND ($3 = '' OR priority = $3)
	`
	var total int
	err := r.db.QueryRow(ctx, query,
		filter.OwnerID,
		string(filter.Status),
		string(filter.Priority),
	).Scan(&total)
	return total, err
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	var status, priority string
	var due *time.Time

	if err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.Title,
		&task.Description,
		&status,
		&priority,
		&due,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	task.Status = domain.TaskStatus(status)
	task.Priority = domain.TaskPriority(priority)
	task.DueDate = due
	return &task, nil
}

func scanTaskWithTotal(row pgx.Row) (*domain.Task, int, error) {
	var task domain.Task
	var status, priority string
	var due *time.Time
	var total int

	if err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.Title,
		&task.Description,
		&status,
		&priority,
		&due,
		&task.CreatedAt,
		&task.UpdatedAt,
		&total,
	); err != nil {
		return nil, 0, err
	}

	task.Status = domain.TaskStatus(status)
	task.Priority = domain.TaskPriority(priority)
	task.DueDate = due
	return &task, total, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 100
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
