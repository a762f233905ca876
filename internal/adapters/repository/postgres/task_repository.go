package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/taskboard/internal/core/domain"
	"github.com/vncsmyrnk/taskboard/internal/core/ports"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type taskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) ports.TaskRepository {
	return &taskRepository{db: db}
}

func selectTasks() sq.SelectBuilder {
	return psql.Select(
		"t.id", "t.project_id", "t.title", "t.description", "t.status", "t.priority", "t.due_date",
		"t.assignee_id", "t.creator_id", "t.completed_at", "t.created_at", "t.updated_at",
		"a.email", "a.username", "c.email", "c.username",
	).
		From("tasks t").
		LeftJoin("users a ON a.id = t.assignee_id").
		LeftJoin("users c ON c.id = t.creator_id")
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	query := `
		INSERT INTO tasks (id, project_id, title, description, status, priority, due_date, assignee_id, creator_id, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		task.ID,
		task.ProjectID,
		task.Title,
		nullString(task.Description),
		task.Status,
		task.Priority,
		nullTime(task.DueDate),
		nullUUID(task.AssigneeID),
		task.CreatorID,
		nullTime(task.CompletedAt),
	).Scan(&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return mapTaskWriteError(err, "insert")
	}
	return nil
}

func (r *taskRepository) ExistsByTitle(ctx context.Context, projectID uuid.UUID, title string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM tasks WHERE project_id = $1 AND title = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, projectID, title).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check task title: %w", err)
	}
	return exists, nil
}

func (r *taskRepository) GetByID(ctx context.Context, projectID, taskID uuid.UUID) (*domain.Task, error) {
	tasks, err := r.query(ctx, selectTasks().Where(sq.Eq{"t.id": taskID, "t.project_id": projectID}))
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	return &tasks[0], nil
}

func (r *taskRepository) List(ctx context.Context, projectID uuid.UUID, filter domain.TaskFilter) ([]domain.Task, error) {
	builder := selectTasks().Where(sq.Eq{"t.project_id": projectID})
	if filter.Status != nil {
		builder = builder.Where(sq.Eq{"t.status": *filter.Status})
	}
	if filter.Priority != nil {
		builder = builder.Where(sq.Eq{"t.priority": *filter.Priority})
	}
	switch {
	case filter.UnassignedOnly:
		builder = builder.Where(sq.Eq{"t.assignee_id": nil})
	case filter.AssigneeID != nil:
		builder = builder.Where(sq.Eq{"t.assignee_id": *filter.AssigneeID})
	}
	return r.query(ctx, builder.OrderBy("t.created_at DESC"))
}

// Update never clears completed_at; a non-null stamp replaces the stored one.
func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	query := `
		UPDATE tasks SET
			title = $3,
			description = $4,
			status = $5,
			priority = $6,
			due_date = $7,
			assignee_id = $8,
			completed_at = COALESCE($9, completed_at),
			updated_at = now()
		WHERE id = $1 AND project_id = $2
		RETURNING completed_at, updated_at
	`
	var completedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query,
		task.ID,
		task.ProjectID,
		task.Title,
		nullString(task.Description),
		task.Status,
		task.Priority,
		nullTime(task.DueDate),
		nullUUID(task.AssigneeID),
		nullTime(task.CompletedAt),
	).Scan(&completedAt, &task.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewNotFound("Task not found")
		}
		return mapTaskWriteError(err, "update")
	}
	task.CompletedAt = timePtr(completedAt)
	return nil
}

func (r *taskRepository) Delete(ctx context.Context, projectID, taskID uuid.UUID) (bool, error) {
	query := `DELETE FROM tasks WHERE id = $1 AND project_id = $2`
	res, err := r.db.ExecContext(ctx, query, taskID, projectID)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *taskRepository) ListAssigned(ctx context.Context, userID uuid.UUID) ([]domain.Task, error) {
	return r.query(ctx, selectTasks().
		Where(sq.Eq{"t.assignee_id": userID}).
		OrderBy("t.due_date ASC NULLS LAST", "t.created_at DESC"))
}

func (r *taskRepository) ListOverdue(ctx context.Context, userID uuid.UUID, now time.Time) ([]domain.Task, error) {
	return r.query(ctx, selectTasks().
		Where(sq.Eq{"t.assignee_id": userID}).
		Where(sq.Lt{"t.due_date": now}).
		Where(sq.NotEq{"t.status": domain.TaskDone}).
		OrderBy("t.due_date ASC"))
}

func (r *taskRepository) query(ctx context.Context, builder sq.SelectBuilder) ([]domain.Task, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build task query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

func scanTask(rows *sql.Rows) (*domain.Task, error) {
	var (
		t                               domain.Task
		description                     sql.NullString
		dueDate, completedAt            sql.NullTime
		assigneeID, creatorID           uuid.NullUUID
		assigneeEmail, assigneeUsername sql.NullString
		creatorEmail, creatorUsername   sql.NullString
	)
	err := rows.Scan(
		&t.ID, &t.ProjectID, &t.Title, &description, &t.Status, &t.Priority, &dueDate,
		&assigneeID, &creatorID, &completedAt, &t.CreatedAt, &t.UpdatedAt,
		&assigneeEmail, &assigneeUsername, &creatorEmail, &creatorUsername,
	)
	if err != nil {
		return nil, err
	}

	t.Description = stringPtr(description)
	t.DueDate = timePtr(dueDate)
	t.CompletedAt = timePtr(completedAt)
	if assigneeID.Valid {
		id := assigneeID.UUID
		t.AssigneeID = &id
		t.Assignee = &domain.UserSummary{ID: id, Email: assigneeEmail.String, Username: stringPtr(assigneeUsername)}
	}
	if creatorID.Valid {
		t.CreatorID = creatorID.UUID
		t.Creator = &domain.UserSummary{ID: creatorID.UUID, Email: creatorEmail.String, Username: stringPtr(creatorUsername)}
	}
	return &t, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func mapTaskWriteError(err error, op string) error {
	switch {
	case constraintViolation(err, uniqueViolation, "tasks_project_title_key"):
		return domain.ErrDuplicateTaskTitle
	case constraintViolation(err, foreignKeyViolation, "tasks_assignee_member_fkey"):
		return domain.ErrAssigneeNotMember
	}
	return fmt.Errorf("failed to %s task: %w", op, err)
}
