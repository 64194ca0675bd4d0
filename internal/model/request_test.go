package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptional_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantSet   bool
		wantNull  bool
		wantValue string
	}{
		{name: "absent key", body: `{}`},
		{name: "explicit null", body: `{"title":null}`, wantSet: true, wantNull: true},
		{name: "empty string", body: `{"title":""}`, wantSet: true},
		{name: "value", body: `{"title":"Buy milk"}`, wantSet: true, wantValue: "Buy milk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req UpdateTaskRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))

			assert.Equal(t, tt.wantSet, req.Title.Set)
			assert.Equal(t, tt.wantNull, req.Title.Null)
			assert.Equal(t, tt.wantValue, req.Title.Value)
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "date only", input: "2026-02-19", want: time.Date(2026, 2, 19, 0, 0, 0, 0, time.UTC)},
		{name: "rfc3339", input: "2026-02-19T10:30:00+02:00", want: time.Date(2026, 2, 19, 8, 30, 0, 0, time.UTC)},
		{name: "padded", input: " 2026-02-19 ", want: time.Date(2026, 2, 19, 0, 0, 0, 0, time.UTC)},
		{name: "garbage", input: "next tuesday", wantErr: true},
		{name: "day out of range", input: "2026-02-31", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
		})
	}
}

func TestDate_UnmarshalJSON(t *testing.T) {
	var req CreateTaskRequest
	require.NoError(t, json.Unmarshal([]byte(`{"dueDate":""}`), &req))
	assert.Nil(t, req.DueDate.Ptr())

	require.NoError(t, json.Unmarshal([]byte(`{"dueDate":"2026-03-01"}`), &req))
	require.NotNil(t, req.DueDate.Ptr())
	assert.Equal(t, 2026, req.DueDate.Year())

	err := json.Unmarshal([]byte(`{"dueDate":"soon"}`), &req)
	assert.Error(t, err)
}

func TestCreateTaskRequest_ValidateAndNormalize(t *testing.T) {
	t.Run("missing title", func(t *testing.T) {
		req := CreateTaskRequest{Description: "2%"}
		assert.Equal(t, ErrTitleRequired, req.Validate())
	})

	t.Run("missing description", func(t *testing.T) {
		req := CreateTaskRequest{Title: "Buy milk"}
		assert.Equal(t, ErrDescriptionRequired, req.Validate())
	})

	t.Run("defaults", func(t *testing.T) {
		req := CreateTaskRequest{Title: "Buy milk", Description: "2%"}
		require.NoError(t, req.Validate())
		require.NoError(t, req.Normalize())
		assert.Equal(t, DefaultStatus, req.Status)
		assert.Equal(t, PriorityLow, req.Priority)
	})

	t.Run("canonicalizes", func(t *testing.T) {
		req := CreateTaskRequest{Title: "a", Description: "b", Status: "in progress", Priority: "HIGH"}
		require.NoError(t, req.Normalize())
		assert.Equal(t, StatusInProgress, req.Status)
		assert.Equal(t, PriorityHigh, req.Priority)
	})

	t.Run("unknown status", func(t *testing.T) {
		req := CreateTaskRequest{Title: "a", Description: "b", Status: "blocked"}
		assert.Equal(t, ErrInvalidStatus, req.Normalize())
	})

	t.Run("unknown priority", func(t *testing.T) {
		req := CreateTaskRequest{Title: "a", Description: "b", Priority: "urgent"}
		assert.Equal(t, ErrInvalidPriority, req.Normalize())
	})
}

func TestUpdateTaskRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{name: "empty body", body: `{}`, wantErr: ErrNoUpdateFields},
		{name: "only priority", body: `{"priority":"High"}`, wantErr: ErrNoUpdateFields},
		{name: "empty strings", body: `{"title":"","description":"","status":""}`, wantErr: ErrNoUpdateFields},
		{name: "status only", body: `{"status":"Completed"}`},
		{name: "title only", body: `{"title":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req UpdateTaskRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			err := req.Validate()
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestUpdateTaskRequest_Apply(t *testing.T) {
	due := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	base := func() *Task {
		d := due
		return &Task{
			Title:       "Buy milk",
			Description: "2%",
			Status:      DefaultStatus,
			Priority:    PriorityLow,
			DueDate:     &d,
		}
	}

	t.Run("empty values keep stored values", func(t *testing.T) {
		var req UpdateTaskRequest
		require.NoError(t, json.Unmarshal([]byte(`{"title":"","description":"","status":"","priority":"","dueDate":""}`), &req))
		task := base()
		req.Apply(task)
		assert.Equal(t, base(), task)
	})

	t.Run("provided values replace", func(t *testing.T) {
		var req UpdateTaskRequest
		require.NoError(t, json.Unmarshal([]byte(`{"status":"Completed","dueDate":"2026-05-05"}`), &req))
		require.NoError(t, req.Normalize())
		task := base()
		req.Apply(task)
		assert.Equal(t, StatusCompleted, task.Status)
		assert.Equal(t, "Buy milk", task.Title)
		require.NotNil(t, task.DueDate)
		assert.Equal(t, time.May, task.DueDate.Month())
	})

	t.Run("null due date clears", func(t *testing.T) {
		var req UpdateTaskRequest
		require.NoError(t, json.Unmarshal([]byte(`{"status":"Pending","dueDate":null}`), &req))
		task := base()
		req.Apply(task)
		assert.Nil(t, task.DueDate)
	})
}

func TestTask_Clone(t *testing.T) {
	due := time.Now()
	orig := &Task{ID: "1", Title: "a", DueDate: &due}
	c := orig.Clone()

	c.Title = "b"
	*c.DueDate = due.Add(time.Hour)

	assert.Equal(t, "a", orig.Title)
	assert.True(t, orig.DueDate.Equal(due))
	assert.Nil(t, (*Task)(nil).Clone())
}
