package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"todoapi/internal/apperrors"
	"todoapi/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TasksCollection is the MongoDB collection holding tasks.
const TasksCollection = "tasks"

type taskDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Completed   bool               `bson:"completed"`
	Owner       primitive.ObjectID `bson:"owner"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func (d *taskDocument) toModel() *models.Task {
	return &models.Task{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Completed:   d.Completed,
		OwnerID:     d.Owner.Hex(),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// MongoTaskRepository is a MongoDB implementation of TaskRepository.
type MongoTaskRepository struct {
	coll *mongo.Collection
}

// NewMongoTaskRepository creates a new instance of MongoTaskRepository.
func NewMongoTaskRepository(db *mongo.Database) *MongoTaskRepository {
	return &MongoTaskRepository{
		coll: db.Collection(TasksCollection),
	}
}

func (r *MongoTaskRepository) Create(ctx context.Context, task *models.Task) error {
	owner, err := primitive.ObjectIDFromHex(task.OwnerID)
	if err != nil {
		return fmt.Errorf("owner id %q: %w", task.OwnerID, apperrors.ErrMalformedID)
	}
	now := time.Now().UTC()
	doc := taskDocument{
		ID:          primitive.NewObjectID(),
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		Owner:       owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	*task = *doc.toModel()
	return nil
}

func (r *MongoTaskRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Task, error) {
	tasks := make([]models.Task, 0)
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return tasks, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"owner": owner}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks for owner %s: %w", ownerID, err)
	}
	var docs []taskDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	for i := range docs {
		tasks = append(tasks, *docs[i].toModel())
	}
	return tasks, nil
}

func (r *MongoTaskRepository) GetByIDForOwner(ctx context.Context, id, ownerID string) (*models.Task, error) {
	filter, err := ownedTaskFilter(id, ownerID)
	if err != nil {
		return nil, err
	}
	var doc taskDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, taskLookupError(id, err)
	}
	return doc.toModel(), nil
}

func (r *MongoTaskRepository) UpdateForOwner(ctx context.Context, id, ownerID string, patch models.TaskPatch) (*models.Task, error) {
	if patch.IsEmpty() {
		return r.GetByIDForOwner(ctx, id, ownerID)
	}
	filter, err := ownedTaskFilter(id, ownerID)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range patch.Fields() {
		set[k] = v
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc taskDocument
	if err := r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&doc); err != nil {
		return nil, taskLookupError(id, err)
	}
	return doc.toModel(), nil
}

func (r *MongoTaskRepository) DeleteForOwner(ctx context.Context, id, ownerID string) (*models.Task, error) {
	filter, err := ownedTaskFilter(id, ownerID)
	if err != nil {
		return nil, err
	}
	var doc taskDocument
	if err := r.coll.FindOneAndDelete(ctx, filter).Decode(&doc); err != nil {
		return nil, taskLookupError(id, err)
	}
	return doc.toModel(), nil
}

// ownedTaskFilter builds the {_id, owner} filter every scoped operation uses.
func ownedTaskFilter(id, ownerID string) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("task id %q: %w", id, apperrors.ErrMalformedID)
	}
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", id, apperrors.ErrNotFound)
	}
	return bson.M{"_id": oid, "owner": owner}, nil
}

func taskLookupError(id string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("task %s: %w", id, apperrors.ErrNotFound)
	}
	return fmt.Errorf("failed to access task %s: %w", id, err)
}
