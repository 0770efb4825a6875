package task

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/taskvault/backend/domain"
	"github.com/taskvault/backend/internal/audit"
	"github.com/taskvault/backend/policy"
	"github.com/taskvault/backend/repository"
)

// UseCase runs every task operation through the access policy before the
// store is touched.
type UseCase struct {
	tasks    repository.TaskRepository
	recorder audit.Recorder
	logger   *zap.Logger
}

func New(tasks repository.TaskRepository, recorder audit.Recorder, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:    tasks,
		recorder: recorder,
		logger:   logger,
	}
}

// ListFilter is the caller-controllable slice of a list query. The ownership
// scope is not part of it; that comes from the policy.
type ListFilter struct {
	Status   domain.TaskStatus
	Priority domain.TaskPriority
	Limit    int
	Offset   int
}

// CreateInput is the accepted field set for a new task. Ownership is forced
// to the actor, never taken from the request.
type CreateInput struct {
	Title       string
	Description string
	Status      domain.TaskStatus
	Priority    domain.TaskPriority
	DueDate     *time.Time
}

// List returns the actor-visible page and the total of the scoped set. The
// scope constrains the query itself; rows outside it are never fetched.
func (uc *UseCase) List(ctx context.Context, actor *domain.User, filter ListFilter) ([]domain.Task, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, domain.NewError(domain.ErrCodeInvalid, "unknown task status")
	}
	if filter.Priority != "" && !filter.Priority.Valid() {
		return nil, 0, domain.NewError(domain.ErrCodeInvalid, "unknown task priority")
	}

	scope := policy.ListScope(actorOf(actor))
	return uc.tasks.List(ctx, repository.TaskFilter{
		OwnerID:  scope.OwnerID,
		Status:   filter.Status,
		Priority: filter.Priority,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
}

// Get fetches one task, applying the exists-then-owns ordering: a missing id
// is not-found for everyone, an existing foreign task is forbidden for
// non-admins.
func (uc *UseCase) Get(ctx context.Context, actor *domain.User, id string) (*domain.Task, error) {
	return uc.authorize(ctx, actor, policy.OperationRead, id)
}

// Create stores a new task owned by the actor. Defaults are applied before
// validation: PENDING status and MEDIUM priority.
func (uc *UseCase) Create(ctx context.Context, actor *domain.User, input CreateInput) (*domain.Task, error) {
	if d := policy.Decide(actorOf(actor), policy.OperationCreate, nil); !d.Allowed {
		return nil, d.Reason
	}

	task := &domain.Task{
		OwnerID:     actor.ID,
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
	}
	if task.Status == "" {
		task.Status = domain.TaskPending
	}
	if task.Priority == "" {
		task.Priority = domain.PriorityMedium
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	created, err := uc.tasks.Create(ctx, task)
	if err != nil {
		return nil, err
	}
	uc.record(audit.Event{ActorID: actor.ID, Action: "task.create", Resource: created.ID, Outcome: audit.OutcomeAllowed})
	return created, nil
}

// Update applies a partial patch to a task the actor may mutate. The owner
// column is untouchable through this path.
func (uc *UseCase) Update(ctx context.Context, actor *domain.User, id string, patch repository.TaskPatch) (*domain.Task, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	task, err := uc.authorize(ctx, actor, policy.OperationUpdate, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return task, nil
	}

	updated, err := uc.tasks.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	uc.record(audit.Event{ActorID: actor.ID, Action: "task.update", Resource: id, Outcome: audit.OutcomeAllowed})
	return updated, nil
}

// Delete removes a task the actor may mutate.
func (uc *UseCase) Delete(ctx context.Context, actor *domain.User, id string) error {
	if _, err := uc.authorize(ctx, actor, policy.OperationDelete, id); err != nil {
		return err
	}
	if err := uc.tasks.Delete(ctx, id); err != nil {
		return err
	}
	uc.record(audit.Event{ActorID: actor.ID, Action: "task.delete", Resource: id, Outcome: audit.OutcomeAllowed})
	return nil
}

// Stats aggregates task counts across all tenants. Admin only.
func (uc *UseCase) Stats(ctx context.Context, actor *domain.User) (*domain.StatsReport, error) {
	if d := policy.Decide(actorOf(actor), policy.OperationStats, nil); !d.Allowed {
		uc.record(audit.Event{ActorID: actor.ID, Action: "task.stats", Outcome: audit.OutcomeDenied})
		return nil, d.Reason
	}

	byStatus, err := uc.tasks.GroupCount(ctx, repository.GroupByStatus)
	if err != nil {
		return nil, err
	}
	byPriority, err := uc.tasks.GroupCount(ctx, repository.GroupByPriority)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, count := range byStatus {
		total += count
	}
	return &domain.StatsReport{
		Total:      total,
		ByStatus:   byStatus,
		ByPriority: byPriority,
	}, nil
}

// authorize loads the task (nil when absent) and lets the policy decide. The
// load happens first so the policy can distinguish missing from foreign.
func (uc *UseCase) authorize(ctx context.Context, actor *domain.User, op policy.Operation, id string) (*domain.Task, error) {
	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			task = nil
		} else {
			return nil, err
		}
	}

	d := policy.Decide(actorOf(actor), op, task)
	if !d.Allowed {
		if domain.IsDomainError(d.Reason, domain.ErrCodeForbidden) {
			uc.record(audit.Event{ActorID: actor.ID, Action: "task." + string(op), Resource: id, Outcome: audit.OutcomeDenied})
		}
		return nil, d.Reason
	}
	return task, nil
}

func (uc *UseCase) record(event audit.Event) {
	if uc.recorder == nil {
		return
	}
	if err := uc.recorder.Append(event); err != nil {
		uc.logger.Warn("audit append failed", zap.String("action", event.Action), zap.Error(err))
	}
}

func validatePatch(patch repository.TaskPatch) error {
	if patch.Title != nil && (*patch.Title == "" || len(*patch.Title) > domain.MaxTitleLength) {
		return domain.NewError(domain.ErrCodeInvalid, "title must be non-empty and at most 200 characters")
	}
	if patch.Description != nil && len(*patch.Description) > domain.MaxDescriptionLength {
		return domain.NewError(domain.ErrCodeInvalid, "description must be at most 2000 characters")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return domain.NewError(domain.ErrCodeInvalid, "unknown task status")
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return domain.NewError(domain.ErrCodeInvalid, "unknown task priority")
	}
	return nil
}

func actorOf(user *domain.User) policy.Actor {
	if user == nil {
		return policy.Actor{}
	}
	return policy.Actor{ID: user.ID, Role: user.Role}
}
