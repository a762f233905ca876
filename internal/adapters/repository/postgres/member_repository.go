package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/taskboard/internal/core/domain"
	"github.com/vncsmyrnk/taskboard/internal/core/ports"
)

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type memberRepository struct {
	db *sql.DB
}

func NewMemberRepository(db *sql.DB) ports.MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) Get(ctx context.Context, projectID, userID uuid.UUID) (*domain.ProjectMember, error) {
	query := `
		SELECT project_id, user_id, role, joined_at
		FROM project_members
		WHERE project_id = $1 AND user_id = $2
	`
	var m domain.ProjectMember
	err := r.db.QueryRowContext(ctx, query, projectID, userID).Scan(&m.ProjectID, &m.UserID, &m.Role, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return &m, nil
}

func (r *memberRepository) List(ctx context.Context, projectID uuid.UUID) ([]domain.ProjectMember, error) {
	return listMembers(ctx, r.db, projectID)
}

func listMembers(ctx context.Context, q queryer, projectID uuid.UUID) ([]domain.ProjectMember, error) {
	query := `
		SELECT m.project_id, m.user_id, m.role, m.joined_at, u.email, u.username
		FROM project_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.project_id = $1
		ORDER BY m.joined_at ASC
	`
	rows, err := q.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []domain.ProjectMember{}
	for rows.Next() {
		var m domain.ProjectMember
		var email string
		var username sql.NullString
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.Role, &m.JoinedAt, &email, &username); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.User = &domain.UserSummary{ID: m.UserID, Email: email, Username: stringPtr(username)}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}

func (r *memberRepository) Add(ctx context.Context, member *domain.ProjectMember) error {
	query := `
		INSERT INTO project_members (project_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING joined_at
	`
	err := r.db.QueryRowContext(ctx, query, member.ProjectID, member.UserID, member.Role).Scan(&member.JoinedAt)
	if err != nil {
		if constraintViolation(err, uniqueViolation, "project_members_pkey") {
			return domain.ErrAlreadyMember
		}
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

func (r *memberRepository) UpdateRole(ctx context.Context, projectID, userID uuid.UUID, role domain.ProjectRole) error {
	query := `UPDATE project_members SET role = $3 WHERE project_id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, projectID, userID, role)
	if err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}
	return expectOne(res, domain.NewNotFound("Member not found in this project"))
}

// TransferOwnership demotes before it promotes so the single-owner index never sees two owners.
func (r *memberRepository) TransferOwnership(ctx context.Context, projectID, from, to uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	demote := `
		UPDATE project_members SET role = 'MEMBER'
		WHERE project_id = $1 AND user_id = $2 AND role = 'OWNER'
	`
	res, err := tx.ExecContext(ctx, demote, projectID, from)
	if err != nil {
		return fmt.Errorf("failed to demote owner: %w", err)
	}
	if err := expectOne(res, domain.NewForbidden("Only project owner can update member roles")); err != nil {
		return err
	}

	promote := `
		UPDATE project_members SET role = 'OWNER'
		WHERE project_id = $1 AND user_id = $2
	`
	res, err = tx.ExecContext(ctx, promote, projectID, to)
	if err != nil {
		return fmt.Errorf("failed to promote member: %w", err)
	}
	if err := expectOne(res, domain.NewNotFound("Member not found in this project")); err != nil {
		return err
	}

	repoint := `UPDATE projects SET owner_id = $2, updated_at = now() WHERE id = $1`
	res, err = tx.ExecContext(ctx, repoint, projectID, to)
	if err != nil {
		if constraintViolation(err, uniqueViolation, "projects_owner_name_key") {
			return domain.ErrNewOwnerHasProject
		}
		return fmt.Errorf("failed to update project owner: %w", err)
	}
	if err := expectOne(res, domain.NewNotFound("Project not found")); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *memberRepository) Remove(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	query := `DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, projectID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *memberRepository) CountOwners(ctx context.Context, projectID, excludeUserID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM project_members
		WHERE project_id = $1 AND role = 'OWNER' AND user_id <> $2
	`
	var n int
	if err := r.db.QueryRowContext(ctx, query, projectID, excludeUserID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count owners: %w", err)
	}
	return n, nil
}

func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n != 1 {
		return notFound
	}
	return nil
}
