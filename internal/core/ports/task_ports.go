package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/taskboard/internal/core/domain"
)

type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	ExistsByTitle(ctx context.Context, projectID uuid.UUID, title string) (bool, error)
	GetByID(ctx context.Context, projectID, taskID uuid.UUID) (*domain.Task, error)
	List(ctx context.Context, projectID uuid.UUID, filter domain.TaskFilter) ([]domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, projectID, taskID uuid.UUID) (bool, error)
	ListAssigned(ctx context.Context, userID uuid.UUID) ([]domain.Task, error)
	ListOverdue(ctx context.Context, userID uuid.UUID, now time.Time) ([]domain.Task, error)
}

type CreateTaskInput struct {
	Title       string
	Description *string
	Status      *domain.TaskStatus
	Priority    *domain.TaskPriority
	DueDate     *time.Time
	AssigneeID  *uuid.UUID
}

// UpdateTaskInput is a partial update. Unassign clears the assignee and wins over AssigneeID.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *domain.TaskStatus
	Priority    *domain.TaskPriority
	DueDate     *time.Time
	AssigneeID  *uuid.UUID
	Unassign    bool
}

type TaskService interface {
	Create(ctx context.Context, projectID, creatorID uuid.UUID, input CreateTaskInput) (*domain.Task, error)
	List(ctx context.Context, projectID, userID uuid.UUID, filter domain.TaskFilter) ([]domain.Task, error)
	Get(ctx context.Context, projectID, taskID, userID uuid.UUID) (*domain.Task, error)
	Update(ctx context.Context, projectID, taskID, userID uuid.UUID, input UpdateTaskInput) (*domain.Task, error)
	Delete(ctx context.Context, projectID, taskID, userID uuid.UUID) error
	ListAssigned(ctx context.Context, userID uuid.UUID) ([]domain.Task, error)
	ListOverdue(ctx context.Context, userID uuid.UUID) ([]domain.Task, error)
}
