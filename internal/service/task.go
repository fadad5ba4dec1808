package service

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskpad/taskpad-go/internal/model"
	"github.com/taskpad/taskpad-go/internal/repository"
)

var (
	ErrTitleRequired       = errors.New("title is required")
	ErrDescriptionRequired = errors.New("description is required")
	ErrInvalidStatus       = errors.New("invalid task status")
	ErrInvalidCategory     = errors.New("invalid task category")
	ErrTaskNotFound        = errors.New("task not found")
)

// TaskService handles task business logic. All operations are scoped to the
// owning user; ownership never comes from the request body.
type TaskService struct {
	store TaskStore
}

// NewTaskService creates a new TaskService.
func NewTaskService(store TaskStore) *TaskService {
	return &TaskService{store: store}
}

// parseTaskID turns a path parameter into an ObjectID. Anything that is not
// a well-formed id cannot name an existing task, so it maps to not-found.
func parseTaskID(taskID string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return primitive.NilObjectID, ErrTaskNotFound
	}
	return id, nil
}

// Create creates a task owned by ownerID. Status defaults to pending.
func (s *TaskService) Create(ctx context.Context, ownerID primitive.ObjectID, req model.CreateTaskRequest) (*model.Task, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, ErrTitleRequired
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, ErrDescriptionRequired
	}

	status := req.Status
	if status == "" {
		status = model.StatusPending
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if req.Category != "" && !req.Category.Valid() {
		return nil, ErrInvalidCategory
	}

	task := &model.Task{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
		DueDate:     req.DueDate,
		Status:      status,
		Category:    req.Category,
		UserID:      ownerID,
	}

	if err := s.store.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// List returns all tasks owned by ownerID.
func (s *TaskService) List(ctx context.Context, ownerID primitive.ObjectID) ([]model.Task, error) {
	return s.store.ListByOwner(ctx, ownerID)
}

// Get returns a single task by id, scoped to ownerID.
func (s *TaskService) Get(ctx context.Context, ownerID primitive.ObjectID, taskID string) (*model.Task, error) {
	id, err := parseTaskID(taskID)
	if err != nil {
		return nil, err
	}

	task, err := s.store.GetByIDForOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// Update applies a partial update to a task, scoped to ownerID, and returns
// the updated task.
func (s *TaskService) Update(ctx context.Context, ownerID primitive.ObjectID, taskID string, req model.UpdateTaskRequest) (*model.Task, error) {
	id, err := parseTaskID(taskID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return nil, ErrTitleRequired
	}
	if req.Description != nil && strings.TrimSpace(*req.Description) == "" {
		return nil, ErrDescriptionRequired
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if req.Category != nil && *req.Category != "" && !req.Category.Valid() {
		return nil, ErrInvalidCategory
	}

	patch := model.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
		DueDate:     req.DueDate,
		Status:      req.Status,
		Category:    req.Category,
	}

	task, err := s.store.UpdateByIDForOwner(ctx, id, ownerID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// Delete removes a task, scoped to ownerID, and returns the deleted task.
func (s *TaskService) Delete(ctx context.Context, ownerID primitive.ObjectID, taskID string) (*model.Task, error) {
	id, err := parseTaskID(taskID)
	if err != nil {
		return nil, err
	}

	task, err := s.store.DeleteByIDForOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}
