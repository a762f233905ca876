package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/taskboard/internal/core/domain"
	"github.com/vncsmyrnk/taskboard/internal/core/ports"
)

const notProjectMember = "You are not a member of this project"

type taskService struct {
	tasks ports.TaskRepository
	authz *Authorizer
	now   func() time.Time
}

func NewTaskService(tasks ports.TaskRepository, authz *Authorizer) ports.TaskService {
	return &taskService{
		tasks: tasks,
		authz: authz,
		now:   time.Now,
	}
}

func (s *taskService) Create(ctx context.Context, projectID, creatorID uuid.UUID, input ports.CreateTaskInput) (*domain.Task, error) {
	if _, err := s.authz.RequireMember(ctx, projectID, creatorID, notProjectMember); err != nil {
		return nil, err
	}

	task := &domain.Task{
		ID:          uuid.New(),
		ProjectID:   projectID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Status:      domain.TaskTodo,
		Priority:    domain.PriorityMedium,
		DueDate:     input.DueDate,
		AssigneeID:  input.AssigneeID,
		CreatorID:   creatorID,
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, domain.NewValidation("Invalid task priority")
		}
		task.Priority = *input.Priority
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, domain.NewValidation("Invalid task status")
		}
		task.ApplyStatus(*input.Status, s.now())
	}

	exists, err := s.tasks.ExistsByTitle(ctx, projectID, task.Title)
	if err != nil {
		return nil, fmt.Errorf("failed to check task title: %w", err)
	}
	if exists {
		return nil, domain.ErrDuplicateTaskTitle
	}

	if err := s.requireAssignee(ctx, projectID, task.AssigneeID); err != nil {
		return nil, err
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		if errors.Is(err, domain.ErrDuplicateTaskTitle) || errors.Is(err, domain.ErrAssigneeNotMember) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

func (s *taskService) List(ctx context.Context, projectID, userID uuid.UUID, filter domain.TaskFilter) ([]domain.Task, error) {
	if _, err := s.authz.RequireMember(ctx, projectID, userID, notProjectMember); err != nil {
		return nil, err
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, domain.NewValidation("Invalid task status")
	}
	if filter.Priority != nil && !filter.Priority.Valid() {
		return nil, domain.NewValidation("Invalid task priority")
	}

	tasks, err := s.tasks.List(ctx, projectID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (s *taskService) Get(ctx context.Context, projectID, taskID, userID uuid.UUID) (*domain.Task, error) {
	if _, err := s.authz.RequireMember(ctx, projectID, userID, notProjectMember); err != nil {
		return nil, err
	}
	return s.find(ctx, projectID, taskID)
}

func (s *taskService) Update(ctx context.Context, projectID, taskID, userID uuid.UUID, input ports.UpdateTaskInput) (*domain.Task, error) {
	if _, err := s.authz.RequireMember(ctx, projectID, userID, notProjectMember); err != nil {
		return nil, err
	}

	task, err := s.find(ctx, projectID, taskID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title != task.Title {
			exists, err := s.tasks.ExistsByTitle(ctx, projectID, title)
			if err != nil {
				return nil, fmt.Errorf("failed to check task title: %w", err)
			}
			if exists {
				return nil, domain.ErrDuplicateTaskTitle
			}
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = input.Description
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, domain.NewValidation("Invalid task priority")
		}
		task.Priority = *input.Priority
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, domain.NewValidation("Invalid task status")
		}
		task.ApplyStatus(*input.Status, s.now())
	}
	if input.DueDate != nil {
		task.DueDate = input.DueDate
	}

	switch {
	case input.Unassign:
		task.AssigneeID = nil
		task.Assignee = nil
	case input.AssigneeID != nil:
		if err := s.requireAssignee(ctx, projectID, input.AssigneeID); err != nil {
			return nil, err
		}
		if task.AssigneeID == nil || *task.AssigneeID != *input.AssigneeID {
			task.Assignee = nil
		}
		task.AssigneeID = input.AssigneeID
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		if errors.Is(err, domain.ErrDuplicateTaskTitle) || errors.Is(err, domain.ErrAssigneeNotMember) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return task, nil
}

func (s *taskService) Delete(ctx context.Context, projectID, taskID, userID uuid.UUID) error {
	if _, err := s.authz.RequireMember(ctx, projectID, userID, notProjectMember); err != nil {
		return err
	}

	deleted, err := s.tasks.Delete(ctx, projectID, taskID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if !deleted {
		return domain.NewNotFound("Task not found")
	}
	return nil
}

func (s *taskService) ListAssigned(ctx context.Context, userID uuid.UUID) ([]domain.Task, error) {
	tasks, err := s.tasks.ListAssigned(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned tasks: %w", err)
	}
	return tasks, nil
}

func (s *taskService) ListOverdue(ctx context.Context, userID uuid.UUID) ([]domain.Task, error) {
	tasks, err := s.tasks.ListOverdue(ctx, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue tasks: %w", err)
	}
	return tasks, nil
}

func (s *taskService) find(ctx context.Context, projectID, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, projectID, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil {
		return nil, domain.NewNotFound("Task not found")
	}
	return task, nil
}

func (s *taskService) requireAssignee(ctx context.Context, projectID uuid.UUID, assigneeID *uuid.UUID) error {
	if assigneeID == nil {
		return nil
	}
	ok, err := s.authz.IsMember(ctx, projectID, *assigneeID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrAssigneeNotMember
	}
	return nil
}
