package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vncsmyrnk/taskboard/internal/core/domain"
	"github.com/vncsmyrnk/taskboard/internal/core/ports"
)

type memberService struct {
	members  ports.MemberRepository
	projects ports.ProjectRepository
	users    ports.UserRepository
	authz    *Authorizer
}

func NewMemberService(members ports.MemberRepository, projects ports.ProjectRepository, users ports.UserRepository, authz *Authorizer) ports.MemberService {
	return &memberService{
		members:  members,
		projects: projects,
		users:    users,
		authz:    authz,
	}
}

func (s *memberService) Add(ctx context.Context, projectID, requesterID uuid.UUID, input ports.AddMemberInput) (*domain.ProjectMember, error) {
	if _, err := s.authz.RequireOwner(ctx, projectID, requesterID, "Only project owner can add members"); err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = domain.ProjectRoleMember
	}
	if !role.Valid() {
		return nil, domain.NewValidation("Invalid project role")
	}
	// A project has exactly one owner; ownership moves through UpdateRole.
	if role == domain.ProjectRoleOwner {
		return nil, domain.NewValidation("A project can only have one owner. Add the user as a member and transfer ownership")
	}

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.NewNotFound("User with this email does not exist")
	}

	existing, err := s.members.Get(ctx, projectID, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrAlreadyMember
	}

	member := &domain.ProjectMember{
		ProjectID: projectID,
		UserID:    user.ID,
		Role:      role,
		User:      &domain.UserSummary{ID: user.ID, Email: user.Email, Username: user.Username},
	}
	if err := s.members.Add(ctx, member); err != nil {
		if errors.Is(err, domain.ErrAlreadyMember) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	log.Info().Str("project_id", projectID.String()).Str("user_id", user.ID.String()).Msg("member added")
	return member, nil
}

func (s *memberService) List(ctx context.Context, projectID, userID uuid.UUID) ([]domain.ProjectMember, error) {
	if _, err := s.authz.RequireMember(ctx, projectID, userID, "You do not have access to this project"); err != nil {
		return nil, err
	}

	members, err := s.members.List(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

func (s *memberService) UpdateRole(ctx context.Context, projectID, targetUserID, requesterID uuid.UUID, role domain.ProjectRole) (*domain.ProjectMember, error) {
	if _, err := s.authz.RequireOwner(ctx, projectID, requesterID, "Only project owner can update member roles"); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, domain.NewValidation("Invalid project role")
	}

	target, err := s.members.Get(ctx, projectID, targetUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	if target == nil {
		return nil, domain.NewNotFound("Member not found in this project")
	}
	if target.Role == role {
		return target, nil
	}

	switch role {
	case domain.ProjectRoleOwner:
		project, err := s.projects.GetByID(ctx, projectID)
		if err != nil {
			return nil, fmt.Errorf("failed to get project: %w", err)
		}
		if project == nil {
			return nil, domain.NewNotFound("Project not found")
		}
		// Names are unique per owner.
		taken, err := s.projects.ExistsByName(ctx, targetUserID, project.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to check project name: %w", err)
		}
		if taken {
			return nil, domain.ErrNewOwnerHasProject
		}

		if err := s.members.TransferOwnership(ctx, projectID, requesterID, targetUserID); err != nil {
			return nil, fmt.Errorf("failed to transfer ownership: %w", err)
		}
		log.Info().
			Str("project_id", projectID.String()).
			Str("from", requesterID.String()).
			Str("to", targetUserID.String()).
			Msg("ownership transferred")
	default:
		// The only OWNER row belongs to the requester.
		if target.Role == domain.ProjectRoleOwner {
			return nil, domain.NewForbidden("Cannot demote project owner. Promote another member to owner instead")
		}
		if err := s.members.UpdateRole(ctx, projectID, targetUserID, role); err != nil {
			return nil, fmt.Errorf("failed to update member role: %w", err)
		}
	}

	target.Role = role
	return target, nil
}

func (s *memberService) Remove(ctx context.Context, projectID, targetUserID, requesterID uuid.UUID) error {
	if _, err := s.authz.RequireOwner(ctx, projectID, requesterID, "Only project owner can remove members"); err != nil {
		return err
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to get project: %w", err)
	}
	if project == nil {
		return domain.NewNotFound("Project not found")
	}

	target, err := s.members.Get(ctx, projectID, targetUserID)
	if err != nil {
		return fmt.Errorf("failed to get membership: %w", err)
	}
	if target == nil {
		return domain.NewNotFound("Member not found in this project")
	}
	if targetUserID == project.OwnerID {
		return domain.NewForbidden("Cannot remove project owner from project")
	}

	if _, err := s.members.Remove(ctx, projectID, targetUserID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

func (s *memberService) Leave(ctx context.Context, projectID, userID uuid.UUID) error {
	member, err := s.members.Get(ctx, projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to get membership: %w", err)
	}
	if member == nil {
		return domain.NewNotFound("You are not a member of this project")
	}

	if err := s.authz.CanLeave(ctx, member); err != nil {
		return err
	}

	if _, err := s.members.Remove(ctx, projectID, userID); err != nil {
		return fmt.Errorf("failed to leave project: %w", err)
	}

	log.Info().Str("project_id", projectID.String()).Str("user_id", userID.String()).Msg("member left project")
	return nil
}
