// Package repository persists tasks. Every store implements the same contract:
// records are copied in and out, ids are ObjectID hex strings assigned on
// insert, and CreatedAt/UpdatedAt are stamped on write.
package repository

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
)

// ErrTaskNotFound is returned when no task matches a lookup.
var ErrTaskNotFound = errors.New("task not found")

var tracer = otel.Tracer("github.com/hiroki-koketsu/go-task-manager/internal/repository")

// nowFunc is overridden in tests that need stable timestamps.
var nowFunc = func() time.Time { return time.Now().UTC() }

func newID() string {
	return primitive.NewObjectID().Hex()
}
