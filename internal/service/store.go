package service

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskpad/taskpad-go/internal/model"
)

// UserStore is the persistence surface AuthService depends on. It is
// satisfied by *repository.UserRepository.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	ListAll(ctx context.Context) ([]model.User, error)
}

// TaskStore is the persistence surface TaskService depends on. It is
// satisfied by *repository.TaskRepository. Every single-task operation is
// scoped by owner at the query level.
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]model.Task, error)
	GetByIDForOwner(ctx context.Context, id, ownerID primitive.ObjectID) (*model.Task, error)
	UpdateByIDForOwner(ctx context.Context, id, ownerID primitive.ObjectID, patch model.TaskPatch) (*model.Task, error)
	DeleteByIDForOwner(ctx context.Context, id, ownerID primitive.ObjectID) (*model.Task, error)
}
