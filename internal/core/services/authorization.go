package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/taskboard/internal/core/domain"
	"github.com/vncsmyrnk/taskboard/internal/core/ports"
)

// Authorizer holds the membership and role checks shared by project, member and task operations.
type Authorizer struct {
	members ports.MemberRepository
}

func NewAuthorizer(members ports.MemberRepository) *Authorizer {
	return &Authorizer{members: members}
}

// RequireMember returns the caller's membership or a ForbiddenError carrying denied.
func (a *Authorizer) RequireMember(ctx context.Context, projectID, userID uuid.UUID, denied string) (*domain.ProjectMember, error) {
	member, err := a.members.Get(ctx, projectID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	if member == nil {
		return nil, domain.NewForbidden(denied)
	}
	return member, nil
}

// RequireOwner is RequireMember restricted to the OWNER role.
func (a *Authorizer) RequireOwner(ctx context.Context, projectID, userID uuid.UUID, denied string) (*domain.ProjectMember, error) {
	member, err := a.RequireMember(ctx, projectID, userID, denied)
	if err != nil {
		return nil, err
	}
	if member.Role != domain.ProjectRoleOwner {
		return nil, domain.NewForbidden(denied)
	}
	return member, nil
}

// IsMember reports whether userID holds any membership row in the project.
func (a *Authorizer) IsMember(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	member, err := a.members.Get(ctx, projectID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get membership: %w", err)
	}
	return member != nil, nil
}

// CanLeave rejects the departure of a project's last OWNER.
func (a *Authorizer) CanLeave(ctx context.Context, member *domain.ProjectMember) error {
	if member.Role != domain.ProjectRoleOwner {
		return nil
	}
	others, err := a.members.CountOwners(ctx, member.ProjectID, member.UserID)
	if err != nil {
		return fmt.Errorf("failed to count owners: %w", err)
	}
	if others == 0 {
		return domain.NewForbidden("Project owner cannot leave. Promote another member to owner first or delete the project.")
	}
	return nil
}
