package task

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskvault/backend/domain"
	"github.com/taskvault/backend/internal/audit"
	"github.com/taskvault/backend/repository"
)

type memTasks struct {
	mu   sync.Mutex
	byID map[string]*domain.Task
}

func newMemTasks() *memTasks {
	return &memTasks{byID: make(map[string]*domain.Task)}
}

func (m *memTasks) GetByID(_ context.Context, id string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	out := *task
	return &out, nil
}

func (m *memTasks) List(_ context.Context, filter repository.TaskFilter) ([]domain.Task, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []domain.Task
	for _, task := range m.byID {
		if filter.OwnerID != "" && task.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && task.Priority != filter.Priority {
			continue
		}
		matched = append(matched, *task)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (m *memTasks) Create(_ context.Context, task *domain.Task) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *task
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	m.byID[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (m *memTasks) Update(_ context.Context, id string, patch repository.TaskPatch) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.ClearDueDate {
		task.DueDate = nil
	} else if patch.DueDate != nil {
		task.DueDate = patch.DueDate
	}
	task.UpdatedAt = time.Now().UTC()
	out := *task
	return &out, nil
}

func (m *memTasks) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return domain.ErrTaskNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memTasks) GroupCount(_ context.Context, by repository.GroupDimension) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, task := range m.byID {
		switch by {
		case repository.GroupByStatus:
			counts[string(task.Status)]++
		case repository.GroupByPriority:
			counts[string(task.Priority)]++
		}
	}
	return counts, nil
}

type memRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (m *memRecorder) Append(event audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *memRecorder) byAction(action string) []audit.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []audit.Event
	for _, event := range m.events {
		if event.Action == action {
			out = append(out, event)
		}
	}
	return out
}

func testUser(role domain.Role) *domain.User {
	return &domain.User{
		ID:     uuid.NewString(),
		Email:  uuid.NewString() + "@example.com",
		Role:   role,
		Active: true,
	}
}

func newTestUseCase() (*UseCase, *memTasks, *memRecorder) {
	tasks := newMemTasks()
	recorder := &memRecorder{}
	return New(tasks, recorder, nil), tasks, recorder
}

func TestCreateForcesOwner(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()
	owner := testUser(domain.RoleUser)

	task, err := uc.Create(ctx, owner, CreateInput{Title: "write report"})
	require.NoError(t, err)

	assert.Equal(t, owner.ID, task.OwnerID)
	assert.Equal(t, domain.TaskPending, task.Status)
	assert.Equal(t, domain.PriorityMedium, task.Priority)
}

func TestCreateValidation(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()
	owner := testUser(domain.RoleUser)

	cases := []struct {
		name  string
		input CreateInput
	}{
		{"empty title", CreateInput{Title: ""}},
		{"title too long", CreateInput{Title: strings.Repeat("x", domain.MaxTitleLength+1)}},
		{"description too long", CreateInput{Title: "ok", Description: strings.Repeat("x", domain.MaxDescriptionLength+1)}},
		{"bad status", CreateInput{Title: "ok", Status: "DONE"}},
		{"bad priority", CreateInput{Title: "ok", Priority: "URGENT"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Create(ctx, owner, tc.input)
			assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
		})
	}
}

func TestGetNotFoundBeforeForbidden(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()
	owner := testUser(domain.RoleUser)
	stranger := testUser(domain.RoleUser)

	task, err := uc.Create(ctx, owner, CreateInput{Title: "write report"})
	require.NoError(t, err)

	t.Run("missing id is not found for everyone", func(t *testing.T) {
		_, err := uc.Get(ctx, stranger, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)

		_, err = uc.Get(ctx, owner, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	})

	t.Run("existing foreign task is forbidden", func(t *testing.T) {
		_, err := uc.Get(ctx, stranger, task.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("owner and admin may read", func(t *testing.T) {
		got, err := uc.Get(ctx, owner, task.ID)
		require.NoError(t, err)
		assert.Equal(t, task.ID, got.ID)

		got, err = uc.Get(ctx, testUser(domain.RoleAdmin), task.ID)
		require.NoError(t, err)
		assert.Equal(t, task.ID, got.ID)
	})
}

func TestListScoping(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()
	alice := testUser(domain.RoleUser)
	bob := testUser(domain.RoleUser)
	admin := testUser(domain.RoleAdmin)

	for i := 0; i < 3; i++ {
		_, err := uc.Create(ctx, alice, CreateInput{Title: "alice task"})
		require.NoError(t, err)
	}
	_, err := uc.Create(ctx, bob, CreateInput{Title: "bob task"})
	require.NoError(t, err)

	aliceTasks, total, err := uc.List(ctx, alice, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, aliceTasks, 3)
	assert.Equal(t, 3, total)
	for _, task := range aliceTasks {
		assert.Equal(t, alice.ID, task.OwnerID)
	}

	allTasks, total, err := uc.List(ctx, admin, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, allTasks, 4)
	assert.Equal(t, 4, total)
}

func TestListFilterValidation(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()

	_, _, err := uc.List(ctx, testUser(domain.RoleUser), ListFilter{Status: "DONE"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))

	_, _, err = uc.List(ctx, testUser(domain.RoleUser), ListFilter{Priority: "URGENT"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
}

func TestUpdatePartialPatch(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()
	owner := testUser(domain.RoleUser)

	task, err := uc.Create(ctx, owner, CreateInput{Title: "write report", Description: "quarterly numbers"})
	require.NoError(t, err)

	status := domain.TaskInProgress
	updated, err := uc.Update(ctx, owner, task.ID, repository.TaskPatch{Status: &status})
	require.NoError(t, err)

	assert.Equal(t, domain.TaskInProgress, updated.Status)
	assert.Equal(t, "write report", updated.Title)
	assert.Equal(t, "quarterly numbers", updated.Description)
}

func TestUpdateClearsDueDate(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()
	owner := testUser(domain.RoleUser)

	due := time.Now().Add(24 * time.Hour).UTC()
	task, err := uc.Create(ctx, owner, CreateInput{Title: "write report", DueDate: &due})
	require.NoError(t, err)
	require.NotNil(t, task.DueDate)

	updated, err := uc.Update(ctx, owner, task.ID, repository.TaskPatch{ClearDueDate: true})
	require.NoError(t, err)
	assert.Nil(t, updated.DueDate)
}

func TestUpdateEmptyPatchIsNoop(t *testing.T) {
	uc, store, _ := newTestUseCase()
	ctx := context.Background()
	owner := testUser(domain.RoleUser)

	task, err := uc.Create(ctx, owner, CreateInput{Title: "write report"})
	require.NoError(t, err)

	before, err := store.GetByID(ctx, task.ID)
	require.NoError(t, err)

	updated, err := uc.Update(ctx, owner, task.ID, repository.TaskPatch{})
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, updated.UpdatedAt)
}

func TestUpdateAuthorization(t *testing.T) {
	uc, _, recorder := newTestUseCase()
	ctx := context.Background()
	owner := testUser(domain.RoleUser)
	stranger := testUser(domain.RoleUser)

	task, err := uc.Create(ctx, owner, CreateInput{Title: "write report"})
	require.NoError(t, err)

	title := "rewrite report"
	_, err = uc.Update(ctx, stranger, task.ID, repository.TaskPatch{Title: &title})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	denied := recorder.byAction("task.update")
	require.Len(t, denied, 1)
	assert.Equal(t, audit.OutcomeDenied, denied[0].Outcome)
	assert.Equal(t, stranger.ID, denied[0].ActorID)

	_, err = uc.Update(ctx, stranger, uuid.NewString(), repository.TaskPatch{Title: &title})
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestDelete(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()
	owner := testUser(domain.RoleUser)
	stranger := testUser(domain.RoleUser)

	task, err := uc.Create(ctx, owner, CreateInput{Title: "write report"})
	require.NoError(t, err)

	assert.ErrorIs(t, uc.Delete(ctx, stranger, task.ID), domain.ErrForbidden)
	require.NoError(t, uc.Delete(ctx, owner, task.ID))

	_, err = uc.Get(ctx, owner, task.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestStatsAdminOnly(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()
	alice := testUser(domain.RoleUser)
	admin := testUser(domain.RoleAdmin)

	_, err := uc.Create(ctx, alice, CreateInput{Title: "one"})
	require.NoError(t, err)
	_, err = uc.Create(ctx, alice, CreateInput{Title: "two", Priority: domain.PriorityHigh})
	require.NoError(t, err)

	_, err = uc.Stats(ctx, alice)
	assert.ErrorIs(t, err, domain.ErrAdminRequired)

	report, err := uc.Stats(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.ByStatus[string(domain.TaskPending)])
	assert.Equal(t, 1, report.ByPriority[string(domain.PriorityHigh)])
	assert.Equal(t, 1, report.ByPriority[string(domain.PriorityMedium)])
}
