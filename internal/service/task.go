// Package service implements the owner-scoped task operations behind the REST
// API. It returns model.TaskError values for every expected failure; any other
// error is a storage failure.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hiroki-koketsu/go-task-manager/internal/model"
	"github.com/hiroki-koketsu/go-task-manager/internal/repository"
	"github.com/hiroki-koketsu/go-task-manager/internal/validation"
)

var tracer = otel.Tracer("github.com/hiroki-koketsu/go-task-manager/internal/service")

// TaskStore is the persistence the service needs. Lookups report absence with
// repository.ErrTaskNotFound.
type TaskStore interface {
	Insert(ctx context.Context, task *model.Task) error
	FindByOwner(ctx context.Context, owner string) ([]*model.Task, error)
	FindOne(ctx context.Context, owner, id string) (*model.Task, error)
	FindByID(ctx context.Context, id string) (*model.Task, error)
	Save(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id string) error
}

// TaskService runs task operations on behalf of an authenticated caller.
type TaskService struct {
	store  TaskStore
	logger *slog.Logger
}

// NewTaskService creates a new TaskService.
func NewTaskService(store TaskStore, logger *slog.Logger) *TaskService {
	return &TaskService{store: store, logger: logger}
}

// List returns all tasks owned by callerID.
func (s *TaskService) List(ctx context.Context, callerID string) ([]*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.List")
	defer span.End()

	tasks, err := s.store.FindByOwner(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	return tasks, nil
}

// Get returns the task taskID if callerID owns it.
func (s *TaskService) Get(ctx context.Context, callerID, taskID string) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.Get",
		trace.WithAttributes(attribute.String("task.id", taskID)),
	)
	defer span.End()

	id, ok := validation.NormalizeID(taskID)
	if !ok {
		return nil, model.ErrInvalidTaskID
	}

	task, err := s.store.FindOne(ctx, callerID, id)
	if errors.Is(err, repository.ErrTaskNotFound) {
		return nil, model.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// Create stores a new task owned by callerID.
func (s *TaskService) Create(ctx context.Context, callerID string, req *model.CreateTaskRequest) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.Create")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	task := &model.Task{
		Owner:       callerID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate.Ptr(),
	}
	if err := s.store.Insert(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	span.SetAttributes(attribute.String("task.id", task.ID))
	s.logger.DebugContext(ctx, "task stored", slog.String("id", task.ID), slog.String("owner", callerID))
	return task, nil
}

// Update merges the provided fields of req into the task taskID. Only the
// owner may update a task.
func (s *TaskService) Update(ctx context.Context, callerID, taskID string, req *model.UpdateTaskRequest) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.Update",
		trace.WithAttributes(attribute.String("task.id", taskID)),
	)
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	task, err := s.ownedTask(ctx, callerID, taskID, model.ErrUpdateForbidden)
	if err != nil {
		return nil, err
	}

	if err := req.Normalize(); err != nil {
		return nil, err
	}
	req.Apply(task)

	if err := s.store.Save(ctx, task); err != nil {
		// Deleted between the lookup and the write.
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, model.ErrTaskIDNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

// Delete removes the task taskID. Only the owner may delete a task.
func (s *TaskService) Delete(ctx context.Context, callerID, taskID string) error {
	ctx, span := tracer.Start(ctx, "TaskService.Delete",
		trace.WithAttributes(attribute.String("task.id", taskID)),
	)
	defer span.End()

	task, err := s.ownedTask(ctx, callerID, taskID, model.ErrDeleteForbidden)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, task.ID); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return model.ErrTaskIDNotFound
		}
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// ownedTask validates taskID, loads the task by its canonical id alone and
// then checks that callerID owns it.
func (s *TaskService) ownedTask(ctx context.Context, callerID, taskID string, forbidden model.TaskError) (*model.Task, error) {
	id, ok := validation.NormalizeID(taskID)
	if !ok {
		return nil, model.ErrInvalidTaskID
	}

	task, err := s.store.FindByID(ctx, id)
	if errors.Is(err, repository.ErrTaskNotFound) {
		return nil, model.ErrTaskIDNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}

	if task.Owner != callerID {
		s.logger.WarnContext(ctx, "task owner mismatch",
			slog.String("id", taskID),
			slog.String("caller", callerID),
		)
		return nil, forbidden
	}
	return task, nil
}
