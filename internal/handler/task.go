// Package handler exposes the task service over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hiroki-koketsu/go-task-manager/internal/auth"
	"github.com/hiroki-koketsu/go-task-manager/internal/model"
	"github.com/hiroki-koketsu/go-task-manager/internal/telemetry"
)

var tracer = otel.Tracer("github.com/hiroki-koketsu/go-task-manager/internal/handler")

const (
	routeTasks = "/api/tasks"
	routeTask  = "/api/tasks/{id}"

	msgInvalidBody = "Invalid request body"
)

// Service is the task logic behind the handler.
type Service interface {
	List(ctx context.Context, callerID string) ([]*model.Task, error)
	Get(ctx context.Context, callerID, taskID string) (*model.Task, error)
	Create(ctx context.Context, callerID string, req *model.CreateTaskRequest) (*model.Task, error)
	Update(ctx context.Context, callerID, taskID string, req *model.UpdateTaskRequest) (*model.Task, error)
	Delete(ctx context.Context, callerID, taskID string) error
}

// TaskHandler handles HTTP requests for tasks.
type TaskHandler struct {
	svc     Service
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(svc Service, logger *slog.Logger, metrics *telemetry.Metrics) *TaskHandler {
	return &TaskHandler{
		svc:     svc,
		logger:  logger,
		metrics: metrics,
	}
}

// Routes returns the chi router with task routes. The caller id must already
// be in the request context.
func (h *TaskHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	return r
}

// List returns the caller's tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracer.Start(r.Context(), "TaskHandler.List")
	defer span.End()

	caller := auth.CallerID(ctx)
	tasks, err := h.svc.List(ctx, caller)
	if err != nil {
		status := h.respondFailure(ctx, w, "list tasks", err)
		h.metrics.RecordRequest(ctx, http.MethodGet, routeTasks, status, start)
		return
	}
	if tasks == nil {
		tasks = []*model.Task{}
	}

	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	h.logger.InfoContext(ctx, "tasks listed", slog.String("caller", caller), slog.Int("count", len(tasks)))

	h.respondJSON(w, http.StatusOK, map[string]any{
		"tasks":  tasks,
		"status": true,
		"msg":    "Tasks found successfully..",
	})
	h.metrics.RecordRequest(ctx, http.MethodGet, routeTasks, http.StatusOK, start)
}

// Create adds a task owned by the caller.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracer.Start(r.Context(), "TaskHandler.Create")
	defer span.End()

	var req model.CreateTaskRequest
	if err := decodeBody(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid request body", slog.Any("error", err))
		h.respondMessage(w, http.StatusBadRequest, msgInvalidBody)
		h.metrics.RecordRequest(ctx, http.MethodPost, routeTasks, http.StatusBadRequest, start)
		return
	}

	task, err := h.svc.Create(ctx, auth.CallerID(ctx), &req)
	if err != nil {
		status := h.respondFailure(ctx, w, "create task", err)
		h.metrics.RecordRequest(ctx, http.MethodPost, routeTasks, status, start)
		return
	}

	span.SetAttributes(attribute.String("task.id", task.ID))
	h.logger.InfoContext(ctx, "task created", slog.String("id", task.ID))

	h.respondTask(w, task, "Task created successfully..")
	h.metrics.RecordRequest(ctx, http.MethodPost, routeTasks, http.StatusOK, start)
}

// GetByID returns one of the caller's tasks.
func (h *TaskHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")
	ctx, span := tracer.Start(r.Context(), "TaskHandler.GetByID",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	task, err := h.svc.Get(ctx, auth.CallerID(ctx), id)
	if err != nil {
		span.SetAttributes(attribute.Bool("task.found", false))
		status := h.respondFailure(ctx, w, "get task", err)
		h.metrics.RecordRequest(ctx, http.MethodGet, routeTask, status, start)
		return
	}
	span.SetAttributes(attribute.Bool("task.found", true))

	h.respondTask(w, task, "Task found successfully..")
	h.metrics.RecordRequest(ctx, http.MethodGet, routeTask, http.StatusOK, start)
}

// Update merges the supplied fields into one of the caller's tasks.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")
	ctx, span := tracer.Start(r.Context(), "TaskHandler.Update",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	var req model.UpdateTaskRequest
	if err := decodeBody(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid request body", slog.Any("error", err))
		h.respondMessage(w, http.StatusBadRequest, msgInvalidBody)
		h.metrics.RecordRequest(ctx, http.MethodPut, routeTask, http.StatusBadRequest, start)
		return
	}

	task, err := h.svc.Update(ctx, auth.CallerID(ctx), id, &req)
	if err != nil {
		status := h.respondFailure(ctx, w, "update task", err)
		h.metrics.RecordRequest(ctx, http.MethodPut, routeTask, status, start)
		return
	}

	h.logger.InfoContext(ctx, "task updated", slog.String("id", id))

	h.respondTask(w, task, "Task updated successfully..")
	h.metrics.RecordRequest(ctx, http.MethodPut, routeTask, http.StatusOK, start)
}

// Delete removes one of the caller's tasks.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")
	ctx, span := tracer.Start(r.Context(), "TaskHandler.Delete",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	if err := h.svc.Delete(ctx, auth.CallerID(ctx), id); err != nil {
		status := h.respondFailure(ctx, w, "delete task", err)
		h.metrics.RecordRequest(ctx, http.MethodDelete, routeTask, status, start)
		return
	}

	h.logger.InfoContext(ctx, "task deleted", slog.String("id", id))

	h.respondMessage(w, http.StatusOK, "Task deleted successfully..")
	h.metrics.RecordRequest(ctx, http.MethodDelete, routeTask, http.StatusOK, start)
}

// Health returns a health check response.
func (h *TaskHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondFailure writes the envelope for err and returns the status used.
// Anything that is not a TaskError is logged and hidden behind a generic 500.
func (h *TaskHandler) respondFailure(ctx context.Context, w http.ResponseWriter, op string, err error) int {
	var taskErr model.TaskError
	if !errors.As(err, &taskErr) || taskErr.Kind == model.KindInternal {
		h.logger.ErrorContext(ctx, "failed to "+op, slog.Any("error", err))
		trace.SpanFromContext(ctx).RecordError(err)
		h.respondMessage(w, http.StatusInternalServerError, model.ErrInternal.Message)
		return http.StatusInternalServerError
	}

	status := statusFor(taskErr.Kind)
	h.logger.WarnContext(ctx, op+" rejected",
		slog.String("reason", taskErr.Message),
		slog.Int("status", status),
	)
	h.respondMessage(w, status, taskErr.Message)
	return status
}

// statusFor maps an error kind to its HTTP status. Missing records are
// reported as 400 like every other rejected request.
// decodeBody reads a JSON request body into v. An empty body leaves v at its
// zero value so the usual validation messages apply.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func statusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindForbidden:
		return http.StatusForbidden
	case model.KindInvalid, model.KindNotFound:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *TaskHandler) respondTask(w http.ResponseWriter, task *model.Task, msg string) {
	h.respondJSON(w, http.StatusOK, map[string]any{
		"task":   task,
		"status": true,
		"msg":    msg,
	})
}

func (h *TaskHandler) respondMessage(w http.ResponseWriter, status int, msg string) {
	h.respondJSON(w, status, map[string]any{
		"status": status < http.StatusBadRequest,
		"msg":    msg,
	})
}

func (h *TaskHandler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			h.logger.Error("failed to encode response", slog.Any("error", err))
		}
	}
}
