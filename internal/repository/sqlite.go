package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hiroki-koketsu/go-task-manager/internal/model"
)

// taskRow is the tasks table. Deletes are hard deletes.
type taskRow struct {
	ID          string     `gorm:"primarykey;size:24"`
	Owner       string     `gorm:"size:64;not null;index"`
	Title       string     `gorm:"not null"`
	Description string     `gorm:"not null"`
	Status      string     `gorm:"size:32;not null"`
	Priority    string     `gorm:"size:16;not null"`
	DueDate     *time.Time `gorm:"column:due_date"`
	CreatedAt   time.Time  `gorm:"autoCreateTime:false"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime:false"`
}

// TableName returns the table name for taskRow.
func (taskRow) TableName() string {
	return "tasks"
}

func (r *taskRow) toModel() *model.Task {
	t := &model.Task{
		ID:          r.ID,
		Owner:       r.Owner,
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.DueDate != nil {
		due := r.DueDate.UTC()
		t.DueDate = &due
	}
	return t
}

// SQLStore stores tasks in a SQL database through GORM.
type SQLStore struct {
	db *gorm.DB
}

// OpenSQLite opens (or creates) the SQLite database at path and migrates the
// tasks table.
func OpenSQLite(path string) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return NewSQLStore(db)
}

// NewSQLStore wraps an open GORM connection and migrates the tasks table.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&taskRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tasks table: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Insert assigns an id and timestamps to task and writes it.
func (s *SQLStore) Insert(ctx context.Context, task *model.Task) error {
	ctx, span := tracer.Start(ctx, "SQLStore.Insert",
		trace.WithAttributes(attribute.String("task.owner", task.Owner)),
	)
	defer span.End()

	now := nowFunc()
	row := taskRow{
		ID:          newID(),
		Owner:       task.Owner,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		DueDate:     task.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create task: %w", err)
	}

	task.ID = row.ID
	task.CreatedAt = now
	task.UpdatedAt = now
	span.SetAttributes(attribute.String("task.id", task.ID))
	return nil
}

// FindByOwner returns every task owned by owner, oldest first.
func (s *SQLStore) FindByOwner(ctx context.Context, owner string) ([]*model.Task, error) {
	ctx, span := tracer.Start(ctx, "SQLStore.FindByOwner")
	defer span.End()

	var rows []taskRow
	if err := s.db.WithContext(ctx).Where("owner = ?", owner).Order("created_at, id").Find(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to find tasks: %w", err)
	}

	tasks := make([]*model.Task, 0, len(rows))
	for i := range rows {
		tasks = append(tasks, rows[i].toModel())
	}
	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	return tasks, nil
}

// FindOne returns the task with id only if it belongs to owner.
func (s *SQLStore) FindOne(ctx context.Context, owner, id string) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "SQLStore.FindOne",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	return s.first(ctx, span, "id = ? AND owner = ?", id, owner)
}

// FindByID retrieves a task by its ID regardless of owner.
func (s *SQLStore) FindByID(ctx context.Context, id string) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "SQLStore.FindByID",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	return s.first(ctx, span, "id = ?", id)
}

func (s *SQLStore) first(ctx context.Context, span trace.Span, query string, args ...any) (*model.Task, error) {
	var row taskRow
	err := s.db.WithContext(ctx).Where(query, args...).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		span.SetAttributes(attribute.Bool("task.found", false))
		return nil, ErrTaskNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	span.SetAttributes(attribute.Bool("task.found", true))
	return row.toModel(), nil
}

// Save writes the mutable fields of task and stamps UpdatedAt.
func (s *SQLStore) Save(ctx context.Context, task *model.Task) error {
	ctx, span := tracer.Start(ctx, "SQLStore.Save",
		trace.WithAttributes(attribute.String("task.id", task.ID)),
	)
	defer span.End()

	now := nowFunc()
	// A map is used so that a nil due date is written as NULL.
	result := s.db.WithContext(ctx).Model(&taskRow{}).Where("id = ?", task.ID).Updates(map[string]any{
		"title":       task.Title,
		"description": task.Description,
		"status":      task.Status,
		"priority":    task.Priority,
		"due_date":    task.DueDate,
		"updated_at":  now,
	})
	if err := result.Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update task: %w", err)
	}
	if result.RowsAffected == 0 {
		span.SetAttributes(attribute.Bool("task.found", false))
		return ErrTaskNotFound
	}

	task.UpdatedAt = now
	span.SetAttributes(attribute.Bool("task.found", true))
	return nil
}

// Delete removes a task by ID.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "SQLStore.Delete",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	result := s.db.WithContext(ctx).Delete(&taskRow{}, "id = ?", id)
	if err := result.Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if result.RowsAffected == 0 {
		span.SetAttributes(attribute.Bool("task.found", false))
		return ErrTaskNotFound
	}
	span.SetAttributes(attribute.Bool("task.found", true))
	return nil
}

// Count returns the number of stored tasks.
func (s *SQLStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&taskRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return n, nil
}

// Close closes the underlying connection pool.
func (s *SQLStore) Close(_ context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
