package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestIsValidID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{name: "generated id", id: primitive.NewObjectID().Hex(), want: true},
		{name: "uppercase hex", id: "65A1B2C3D4E5F60718293A4B", want: true},
		{name: "empty", id: ""},
		{name: "too short", id: "65a1b2c3d4e5f60718293a4"},
		{name: "too long", id: "65a1b2c3d4e5f60718293a4bc"},
		{name: "non hex", id: "zza1b2c3d4e5f60718293a4b"},
		{name: "uuid", id: "0b7c6f7e-8f3a-4c1d-9e2b-3a4b5c6d7e8f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidID(tt.id))
		})
	}
}

func TestNormalizeID(t *testing.T) {
	id, ok := NormalizeID("65A1B2C3D4E5F60718293A4B")
	assert.True(t, ok)
	assert.Equal(t, "65a1b2c3d4e5f60718293a4b", id)

	id, ok = NormalizeID("65a1b2c3d4e5f60718293a4b")
	assert.True(t, ok)
	assert.Equal(t, "65a1b2c3d4e5f60718293a4b", id)

	_, ok = NormalizeID("not-an-id")
	assert.False(t, ok)
}

func TestValidateTaskForm(t *testing.T) {
	valid := TaskForm{
		Title:       "Buy milk",
		Description: "2%",
		Status:      "Pending",
		Priority:    "Low",
	}

	tests := []struct {
		name       string
		mutate     func(f *TaskForm)
		wantFields []string
	}{
		{name: "valid", mutate: func(f *TaskForm) {}},
		{name: "valid with date", mutate: func(f *TaskForm) { f.DueDate = "2026-12-24" }},
		{name: "blank title", mutate: func(f *TaskForm) { f.Title = "   " }, wantFields: []string{"title"}},
		{name: "blank description", mutate: func(f *TaskForm) { f.Description = "" }, wantFields: []string{"description"}},
		{name: "bad date", mutate: func(f *TaskForm) { f.DueDate = "24/12/2026" }, wantFields: []string{"dueDate"}},
		{name: "unknown status", mutate: func(f *TaskForm) { f.Status = "Blocked" }, wantFields: []string{"status"}},
		{name: "unknown priority", mutate: func(f *TaskForm) { f.Priority = "" }, wantFields: []string{"priority"}},
		{
			name:       "everything wrong",
			mutate:     func(f *TaskForm) { *f = TaskForm{DueDate: "x"} },
			wantFields: []string{"title", "description", "dueDate", "status", "priority"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid
			tt.mutate(&f)
			errs := ValidateTaskForm(f)

			assert.Len(t, errs, len(tt.wantFields))
			for _, field := range tt.wantFields {
				assert.Contains(t, errs, field)
			}
		})
	}
}
