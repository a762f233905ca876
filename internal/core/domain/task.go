package domain

import (
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskTodo       TaskStatus = "TODO"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskDone       TaskStatus = "DONE"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskDone:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "LOW"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityHigh   TaskPriority = "HIGH"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID          uuid.UUID    `json:"id"`
	ProjectID   uuid.UUID    `json:"projectId"`
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
	AssigneeID  *uuid.UUID   `json:"assigneeId,omitempty"`
	CreatorID   uuid.UUID    `json:"creatorId"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`

	Assignee *UserSummary `json:"assignee,omitempty"`
	Creator  *UserSummary `json:"creator,omitempty"`
}

// ApplyStatus moves the task to status. Every transition into DONE stamps CompletedAt;
// leaving DONE keeps the last stamp.
func (t *Task) ApplyStatus(status TaskStatus, now time.Time) {
	if status == TaskDone && (t.Status != TaskDone || t.CompletedAt == nil) {
		t.CompletedAt = &now
	}
	t.Status = status
}

// TaskFilter narrows a project's task list. UnassignedOnly selects tasks with no assignee.
type TaskFilter struct {
	Status         *TaskStatus
	Priority       *TaskPriority
	AssigneeID     *uuid.UUID
	UnassignedOnly bool
}
