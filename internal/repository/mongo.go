package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hiroki-koketsu/go-task-manager/internal/model"
)

const tasksCollection = "tasks"

// taskDocument is the stored shape of a task in the tasks collection.
type taskDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	User        string             `bson:"user"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Status      string             `bson:"status"`
	Priority    string             `bson:"priority"`
	DueDate     *time.Time         `bson:"dueDate,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d *taskDocument) toModel() *model.Task {
	t := &model.Task{
		ID:          d.ID.Hex(),
		Owner:       d.User,
		Title:       d.Title,
		Description: d.Description,
		Status:      d.Status,
		Priority:    d.Priority,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
	if d.DueDate != nil {
		due := d.DueDate.UTC()
		t.DueDate = &due
	}
	return t
}

// MongoStore stores tasks as documents in MongoDB.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to uri, verifies the connection and ensures the
// owner index exists.
func NewMongoStore(ctx context.Context, uri, database string, timeout time.Duration) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	coll := client.Database(database).Collection(tasksCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo create index: %w", err)
	}

	return &MongoStore{client: client, coll: coll}, nil
}

// Insert assigns an id and timestamps to task and writes it.
func (s *MongoStore) Insert(ctx context.Context, task *model.Task) error {
	ctx, span := tracer.Start(ctx, "MongoStore.Insert",
		trace.WithAttributes(attribute.String("task.owner", task.Owner)),
	)
	defer span.End()

	now := nowFunc()
	doc := taskDocument{
		ID:          primitive.NewObjectID(),
		User:        task.Owner,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		DueDate:     task.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert task: %w", err)
	}

	task.ID = doc.ID.Hex()
	task.CreatedAt = now
	task.UpdatedAt = now
	span.SetAttributes(attribute.String("task.id", task.ID))
	return nil
}

// FindByOwner returns every task owned by owner.
func (s *MongoStore) FindByOwner(ctx context.Context, owner string) ([]*model.Task, error) {
	ctx, span := tracer.Start(ctx, "MongoStore.FindByOwner")
	defer span.End()

	cur, err := s.coll.Find(ctx, bson.M{"user": owner}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to find tasks: %w", err)
	}
	var docs []taskDocument
	if err := cur.All(ctx, &docs); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}

	tasks := make([]*model.Task, 0, len(docs))
	for i := range docs {
		tasks = append(tasks, docs[i].toModel())
	}
	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	return tasks, nil
}

// FindOne returns the task with id only if it belongs to owner.
func (s *MongoStore) FindOne(ctx context.Context, owner, id string) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "MongoStore.FindOne",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrTaskNotFound
	}
	return s.findOne(ctx, span, bson.M{"_id": oid, "user": owner})
}

// FindByID retrieves a task by its ID regardless of owner.
func (s *MongoStore) FindByID(ctx context.Context, id string) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "MongoStore.FindByID",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrTaskNotFound
	}
	return s.findOne(ctx, span, bson.M{"_id": oid})
}

func (s *MongoStore) findOne(ctx context.Context, span trace.Span, filter bson.M) (*model.Task, error) {
	var doc taskDocument
	err := s.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		span.SetAttributes(attribute.Bool("task.found", false))
		return nil, ErrTaskNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	span.SetAttributes(attribute.Bool("task.found", true))
	return doc.toModel(), nil
}

// Save writes the mutable fields of task and stamps UpdatedAt. Owner and
// CreatedAt are never rewritten.
func (s *MongoStore) Save(ctx context.Context, task *model.Task) error {
	ctx, span := tracer.Start(ctx, "MongoStore.Save",
		trace.WithAttributes(attribute.String("task.id", task.ID)),
	)
	defer span.End()

	oid, err := primitive.ObjectIDFromHex(task.ID)
	if err != nil {
		return ErrTaskNotFound
	}

	now := nowFunc()
	set := bson.M{
		"title":       task.Title,
		"description": task.Description,
		"status":      task.Status,
		"priority":    task.Priority,
		"updatedAt":   now,
	}
	update := bson.M{"$set": set}
	if task.DueDate != nil {
		set["dueDate"] = *task.DueDate
	} else {
		update["$unset"] = bson.M{"dueDate": ""}
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update task: %w", err)
	}
	if res.MatchedCount == 0 {
		span.SetAttributes(attribute.Bool("task.found", false))
		return ErrTaskNotFound
	}

	task.UpdatedAt = now
	span.SetAttributes(attribute.Bool("task.found", true))
	return nil
}

// Delete removes a task.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "MongoStore.Delete",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrTaskNotFound
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if res.DeletedCount == 0 {
		span.SetAttributes(attribute.Bool("task.found", false))
		return ErrTaskNotFound
	}
	span.SetAttributes(attribute.Bool("task.found", true))
	return nil
}

// Count returns the number of stored tasks.
func (s *MongoStore) Count(ctx context.Context) (int64, error) {
	n, err := s.coll.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return n, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// drop removes the collection; used by tests against a real server.
func (s *MongoStore) drop(ctx context.Context) error {
	return s.coll.Drop(ctx)
}
