package repository

import (
	"context"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hiroki-koketsu/go-task-manager/internal/model"
)

// MemoryStore provides an in-memory storage for tasks.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*model.Task
}

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[string]*model.Task),
	}
}

// Insert assigns an id and timestamps to task and stores a copy of it.
func (s *MemoryStore) Insert(ctx context.Context, task *model.Task) error {
	_, span := tracer.Start(ctx, "MemoryStore.Insert",
		trace.WithAttributes(attribute.String("task.owner", task.Owner)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowFunc()
	task.ID = newID()
	task.CreatedAt = now
	task.UpdatedAt = now
	s.tasks[task.ID] = task.Clone()

	span.SetAttributes(attribute.String("task.id", task.ID))
	return nil
}

// FindByOwner returns every task owned by owner, oldest first.
func (s *MemoryStore) FindByOwner(ctx context.Context, owner string) ([]*model.Task, error) {
	_, span := tracer.Start(ctx, "MemoryStore.FindByOwner")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]*model.Task, 0)
	for _, task := range s.tasks {
		if task.Owner == owner {
			tasks = append(tasks, task.Clone())
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})

	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	return tasks, nil
}

// FindOne returns the task with id only if it belongs to owner.
func (s *MemoryStore) FindOne(ctx context.Context, owner, id string) (*model.Task, error) {
	_, span := tracer.Start(ctx, "MemoryStore.FindOne",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok || task.Owner != owner {
		span.SetAttributes(attribute.Bool("task.found", false))
		return nil, ErrTaskNotFound
	}

	span.SetAttributes(attribute.Bool("task.found", true))
	return task.Clone(), nil
}

// FindByID retrieves a task by its ID regardless of owner.
func (s *MemoryStore) FindByID(ctx context.Context, id string) (*model.Task, error) {
	_, span := tracer.Start(ctx, "MemoryStore.FindByID",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		span.SetAttributes(attribute.Bool("task.found", false))
		return nil, ErrTaskNotFound
	}

	span.SetAttributes(attribute.Bool("task.found", true))
	return task.Clone(), nil
}

// Save replaces the stored task with the same id and stamps UpdatedAt.
func (s *MemoryStore) Save(ctx context.Context, task *model.Task) error {
	_, span := tracer.Start(ctx, "MemoryStore.Save",
		trace.WithAttributes(attribute.String("task.id", task.ID)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[task.ID]
	if !ok {
		span.SetAttributes(attribute.Bool("task.found", false))
		return ErrTaskNotFound
	}

	task.Owner = existing.Owner
	task.CreatedAt = existing.CreatedAt
	task.UpdatedAt = nowFunc()
	s.tasks[task.ID] = task.Clone()

	span.SetAttributes(attribute.Bool("task.found", true))
	return nil
}

// Delete removes a task from the store.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	_, span := tracer.Start(ctx, "MemoryStore.Delete",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		span.SetAttributes(attribute.Bool("task.found", false))
		return ErrTaskNotFound
	}

	delete(s.tasks, id)
	span.SetAttributes(attribute.Bool("task.found", true))
	return nil
}

// Count returns the current number of tasks.
func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.tasks)), nil
}

// Close is a no-op; it lets MemoryStore stand in for the persistent stores.
func (s *MemoryStore) Close(_ context.Context) error {
	return nil
}
