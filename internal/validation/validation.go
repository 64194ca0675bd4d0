// Package validation holds the pure input checks shared by the API and the UI.
package validation

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hiroki-koketsu/go-task-manager/internal/model"
)

// IsValidID reports whether id is a well-formed task identifier: a
// 24-character hexadecimal ObjectID.
func IsValidID(id string) bool {
	return primitive.IsValidObjectID(id)
}

// NormalizeID returns the canonical lower-case form of a task identifier.
// Hex digits are accepted in either case.
func NormalizeID(id string) (string, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return "", false
	}
	return oid.Hex(), true
}

// TaskForm is the raw state of the task form as the user typed it.
type TaskForm struct {
	Title       string
	Description string
	Status      string
	DueDate     string
	Priority    string
}

// FieldErrors maps form field names to a message.
type FieldErrors map[string]string

// ValidateTaskForm checks a task form before it is submitted.
func ValidateTaskForm(f TaskForm) FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(f.Title) == "" {
		errs["title"] = "Title is required"
	}
	if strings.TrimSpace(f.Description) == "" {
		errs["description"] = "Description is required"
	}
	if d := strings.TrimSpace(f.DueDate); d != "" {
		if _, err := model.ParseDate(d); err != nil {
			errs["dueDate"] = "Due date must be a valid date"
		}
	}
	if _, ok := model.ParseStatus(f.Status); !ok {
		errs["status"] = "Status must be one of " + strings.Join(model.Statuses, ", ")
	}
	if _, ok := model.ParsePriority(f.Priority); !ok {
		errs["priority"] = "Priority must be one of " + strings.Join(model.Priorities, ", ")
	}
	return errs
}
