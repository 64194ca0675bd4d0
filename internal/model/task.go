package model

import (
	"strings"
	"time"
)

// Task represents a todo item owned by a single user.
type Task struct {
	ID          string     `json:"_id"`
	Owner       string     `json:"user"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Clone returns a copy of t that shares no memory with it.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	return &c
}

const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"

	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// Stored defaults for new tasks. The lowercase status matches what the
// document schema has always written and compares equal to StatusPending.
const (
	DefaultStatus   = "pending"
	DefaultPriority = PriorityLow
)

var (
	// Statuses lists the allowed status values in display order.
	Statuses = []string{StatusPending, StatusInProgress, StatusCompleted}
	// Priorities lists the allowed priority values in display order.
	Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh}
)

// ParseStatus returns the canonical spelling of s, matched case-insensitively.
func ParseStatus(s string) (string, bool) {
	return canonical(s, Statuses)
}

// ParsePriority returns the canonical spelling of s, matched case-insensitively.
func ParsePriority(s string) (string, bool) {
	return canonical(s, Priorities)
}

func canonical(s string, allowed []string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, v := range allowed {
		if strings.EqualFold(s, v) {
			return v, true
		}
	}
	return "", false
}
