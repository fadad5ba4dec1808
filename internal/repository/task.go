package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskpad/taskpad-go/internal/model"
)

var ErrTaskNotFound = errors.New("task not found")

// TaskRepository handles task persistence operations. Every single-document
// operation filters on both _id and user_id, so a task belonging to another
// user is indistinguishable from a missing one.
type TaskRepository struct {
	coll *mongo.Collection
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db *mongo.Database) *TaskRepository {
	return &TaskRepository{coll: db.Collection("tasks")}
}

// ownerFilter is the compound predicate enforcing task ownership.
func ownerFilter(id, ownerID primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "user_id": ownerID}
}

// Create inserts a new task and sets the generated ID and timestamps on the
// task struct. The caller must have stamped UserID already.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	now := time.Now().UTC()
	task.ID = primitive.NewObjectID()
	task.CreatedAt = now
	task.UpdatedAt = now

	_, err := r.coll.InsertOne(ctx, task)
	return err
}

// ListByOwner retrieves all tasks owned by the given user, newest first.
func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]model.Task, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"user_id": ownerID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tasks []model.Task
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetByIDForOwner retrieves a task by id, scoped to its owner.
func (r *TaskRepository) GetByIDForOwner(ctx context.Context, id, ownerID primitive.ObjectID) (*model.Task, error) {
	task := &model.Task{}
	err := r.coll.FindOne(ctx, ownerFilter(id, ownerID)).Decode(task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// UpdateByIDForOwner applies a partial update to a task, scoped to its
// owner, and returns the post-update document. updated_at is refreshed on
// every call regardless of which fields changed.
func (r *TaskRepository) UpdateByIDForOwner(ctx context.Context, id, ownerID primitive.ObjectID, patch model.TaskPatch) (*model.Task, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Completed != nil {
		set["completed"] = *patch.Completed
	}
	if patch.DueDate != nil {
		set["due_date"] = *patch.DueDate
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}

	task := &model.Task{}
	err := r.coll.FindOneAndUpdate(ctx, ownerFilter(id, ownerID), bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// DeleteByIDForOwner removes a task, scoped to its owner, and returns the
// deleted document.
func (r *TaskRepository) DeleteByIDForOwner(ctx context.Context, id, ownerID primitive.ObjectID) (*model.Task, error) {
	task := &model.Task{}
	err := r.coll.FindOneAndDelete(ctx, ownerFilter(id, ownerID)).Decode(task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}
