package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/taskboard/internal/core/domain"
	"github.com/vncsmyrnk/taskboard/internal/core/ports"
)

const projectColumns = `p.id, p.name, p.description, p.status, p.owner_id, p.created_at, p.updated_at`

type projectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) ports.ProjectRepository {
	return &projectRepository{
		db: db,
	}
}

func (r *projectRepository) CreateWithOwner(ctx context.Context, project *domain.Project) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	queryProject := `
		INSERT INTO projects (id, name, description, status, owner_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, queryProject,
		project.ID, project.Name, nullString(project.Description), project.Status, project.OwnerID,
	).Scan(&project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		if constraintViolation(err, uniqueViolation, "projects_owner_name_key") {
			return domain.ErrDuplicateProjectName
		}
		return fmt.Errorf("failed to insert project: %w", err)
	}

	queryOwner := `
		INSERT INTO project_members (project_id, user_id, role)
		VALUES ($1, $2, $3)
	`
	if _, err := tx.ExecContext(ctx, queryOwner, project.ID, project.OwnerID, domain.ProjectRoleOwner); err != nil {
		return fmt.Errorf("failed to insert owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *projectRepository) ExistsByName(ctx context.Context, ownerID uuid.UUID, name string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM projects WHERE owner_id = $1 AND name = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, ownerID, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check project name: %w", err)
	}
	return exists, nil
}

func (r *projectRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects p WHERE p.id = $1`

	var project domain.Project
	var description sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&project.ID, &project.Name, &description, &project.Status, &project.OwnerID, &project.CreatedAt, &project.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	project.Description = stringPtr(description)
	return &project, nil
}

func (r *projectRepository) GetDetails(ctx context.Context, id uuid.UUID) (*domain.ProjectDetails, error) {
	query := `
		SELECT ` + projectColumns + `, o.id, o.email, o.username,
			(SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id)
		FROM projects p
		JOIN users o ON o.id = p.owner_id
		WHERE p.id = $1
	`

	var details domain.ProjectDetails
	var description, ownerUsername sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&details.ID, &details.Name, &description, &details.Status, &details.OwnerID, &details.CreatedAt, &details.UpdatedAt,
		&details.Owner.ID, &details.Owner.Email, &ownerUsername,
		&details.TaskCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get project details: %w", err)
	}
	details.Description = stringPtr(description)
	details.Owner.Username = stringPtr(ownerUsername)

	members, err := listMembers(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	details.Members = members

	return &details, nil
}

func (r *projectRepository) ListForMember(ctx context.Context, userID uuid.UUID) ([]domain.ProjectOverview, error) {
	query := `
		SELECT ` + projectColumns + `, o.id, o.email, o.username,
			(SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id),
			(SELECT COUNT(*) FROM project_members pm WHERE pm.project_id = p.id)
		FROM projects p
		JOIN project_members m ON m.project_id = p.id AND m.user_id = $1
		JOIN users o ON o.id = p.owner_id
		ORDER BY p.updated_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []domain.ProjectOverview{}
	for rows.Next() {
		var p domain.ProjectOverview
		var description, ownerUsername sql.NullString
		if err := rows.Scan(
			&p.ID, &p.Name, &description, &p.Status, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt,
			&p.Owner.ID, &p.Owner.Email, &ownerUsername,
			&p.TaskCount, &p.MemberCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		p.Description = stringPtr(description)
		p.Owner.Username = stringPtr(ownerUsername)
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

func (r *projectRepository) Update(ctx context.Context, id uuid.UUID, patch ports.ProjectPatch) (*domain.Project, error) {
	builder := sq.Update("projects").
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING id, name, description, status, owner_id, created_at, updated_at").
		PlaceholderFormat(sq.Dollar)
	if patch.Name != nil {
		builder = builder.Set("name", *patch.Name)
	}
	if patch.Description != nil {
		builder = builder.Set("description", *patch.Description)
	}
	if patch.Status != nil {
		builder = builder.Set("status", *patch.Status)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build project update: %w", err)
	}

	var project domain.Project
	var description sql.NullString
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&project.ID, &project.Name, &description, &project.Status, &project.OwnerID, &project.CreatedAt, &project.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFound("Project not found")
		}
		if constraintViolation(err, uniqueViolation, "projects_owner_name_key") {
			return nil, domain.ErrDuplicateProjectName
		}
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	project.Description = stringPtr(description)
	return &project, nil
}

// Delete removes the project; members and tasks go with it through ON DELETE CASCADE.
func (r *projectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM projects WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return domain.NewNotFound("Project not found")
	}
	return nil
}
