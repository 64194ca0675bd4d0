package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the date-only form used by the UI's date input.
const DateLayout = "2006-01-02"

// Optional records whether a JSON key was present and whether it was null.
type Optional[T any] struct {
	Value T
	Set   bool
	Null  bool
}

// Some returns a present, non-null Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Date is a due date accepted as "2006-01-02" or RFC3339. The zero value means
// no date was given; null and "" both decode to it.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("dueDate: %w", err)
	}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := ParseDate(*raw)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.Format(time.RFC3339))
}

// Ptr returns nil for the zero Date.
func (d Date) Ptr() *time.Time {
	if d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// ParseDate parses a date-only or RFC3339 value. Date-only values are the
// start of that day in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("dueDate: use date (YYYY-MM-DD) or RFC3339 datetime")
}

// CreateTaskRequest represents the request body for creating a task.
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status,omitempty"`
	DueDate     Date   `json:"dueDate"`
	Priority    string `json:"priority,omitempty"`
}

// Validate checks if the CreateTaskRequest is valid.
func (r *CreateTaskRequest) Validate() error {
	if r.Title == "" {
		return ErrTitleRequired
	}
	if r.Description == "" {
		return ErrDescriptionRequired
	}
	return nil
}

// UpdateTaskRequest represents the request body for updating a task. A field
// replaces the stored value only when it is present and non-empty.
type UpdateTaskRequest struct {
	Title       Optional[string] `json:"title"`
	Description Optional[string] `json:"description"`
	Status      Optional[string] `json:"status"`
	DueDate     Optional[Date]   `json:"dueDate"`
	Priority    Optional[string] `json:"priority"`
}

// Normalize fills defaults and canonicalizes status and priority.
func (r *CreateTaskRequest) Normalize() error {
	if r.Status == "" {
		r.Status = DefaultStatus
	} else {
		v, ok := ParseStatus(r.Status)
		if !ok {
			return ErrInvalidStatus
		}
		r.Status = v
	}
	if r.Priority == "" {
		r.Priority = DefaultPriority
	} else {
		v, ok := ParsePriority(r.Priority)
		if !ok {
			return ErrInvalidPriority
		}
		r.Priority = v
	}
	return nil
}

// Normalize canonicalizes the provided status and priority.
func (r *UpdateTaskRequest) Normalize() error {
	if provided(r.Status) {
		v, ok := ParseStatus(r.Status.Value)
		if !ok {
			return ErrInvalidStatus
		}
		r.Status.Value = v
	}
	if provided(r.Priority) {
		v, ok := ParsePriority(r.Priority.Value)
		if !ok {
			return ErrInvalidPriority
		}
		r.Priority.Value = v
	}
	return nil
}

// Validate requires at least one of title, description or status.
func (r *UpdateTaskRequest) Validate() error {
	if !provided(r.Title) && !provided(r.Description) && !provided(r.Status) {
		return ErrNoUpdateFields
	}
	return nil
}

// Apply merges the provided fields of r into t. Empty values keep the stored
// value. An explicit null dueDate clears it. Status and priority must already
// be canonical.
func (r *UpdateTaskRequest) Apply(t *Task) {
	if provided(r.Title) {
		t.Title = r.Title.Value
	}
	if provided(r.Description) {
		t.Description = r.Description.Value
	}
	if provided(r.Status) {
		t.Status = r.Status.Value
	}
	if provided(r.Priority) {
		t.Priority = r.Priority.Value
	}
	switch {
	case r.DueDate.Set && r.DueDate.Null:
		t.DueDate = nil
	case r.DueDate.Set && !r.DueDate.Value.IsZero():
		t.DueDate = r.DueDate.Value.Ptr()
	}
}

func provided(o Optional[string]) bool {
	return o.Set && !o.Null && o.Value != ""
}
