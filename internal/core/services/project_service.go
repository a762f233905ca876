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

type projectService struct {
	projects ports.ProjectRepository
	users    ports.UserRepository
	authz    *Authorizer
}

func NewProjectService(projects ports.ProjectRepository, users ports.UserRepository, authz *Authorizer) ports.ProjectService {
	return &projectService{
		projects: projects,
		users:    users,
		authz:    authz,
	}
}

func (s *projectService) Create(ctx context.Context, ownerID uuid.UUID, input ports.CreateProjectInput) (*domain.Project, error) {
	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if owner == nil {
		return nil, domain.NewNotFound("User not found")
	}

	name := strings.TrimSpace(input.Name)
	exists, err := s.projects.ExistsByName(ctx, ownerID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check project name: %w", err)
	}
	if exists {
		return nil, domain.ErrDuplicateProjectName
	}

	project := &domain.Project{
		ID:          uuid.New(),
		Name:        name,
		Description: input.Description,
		Status:      domain.ProjectActive,
		OwnerID:     ownerID,
	}
	if err := s.projects.CreateWithOwner(ctx, project); err != nil {
		if errors.Is(err, domain.ErrDuplicateProjectName) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	log.Info().Str("project_id", project.ID.String()).Str("owner_id", ownerID.String()).Msg("project created")
	return project, nil
}

func (s *projectService) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.ProjectOverview, error) {
	projects, err := s.projects.ListForMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

func (s *projectService) Get(ctx context.Context, projectID, userID uuid.UUID) (*domain.ProjectDetails, error) {
	if _, err := s.authz.RequireMember(ctx, projectID, userID, "You do not have access to this project"); err != nil {
		return nil, err
	}

	details, err := s.projects.GetDetails(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if details == nil {
		return nil, domain.NewNotFound("Project not found")
	}
	return details, nil
}

func (s *projectService) Update(ctx context.Context, projectID, userID uuid.UUID, patch ports.ProjectPatch) (*domain.Project, error) {
	if _, err := s.authz.RequireOwner(ctx, projectID, userID, "Only project owners can update project details"); err != nil {
		return nil, err
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if project == nil {
		return nil, domain.NewNotFound("Project not found")
	}

	if patch.Status != nil && !patch.Status.Valid() {
		return nil, domain.NewValidation("Invalid project status")
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
		if name != project.Name {
			exists, err := s.projects.ExistsByName(ctx, project.OwnerID, name)
			if err != nil {
				return nil, fmt.Errorf("failed to check project name: %w", err)
			}
			if exists {
				return nil, domain.ErrDuplicateProjectName
			}
		}
	}

	updated, err := s.projects.Update(ctx, projectID, patch)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateProjectName) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return updated, nil
}

func (s *projectService) Delete(ctx context.Context, projectID, userID uuid.UUID) error {
	const denied = "Only project owner can delete this project"
	if _, err := s.authz.RequireOwner(ctx, projectID, userID, denied); err != nil {
		return err
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to get project: %w", err)
	}
	if project == nil {
		return domain.NewNotFound("Project not found")
	}
	if project.OwnerID != userID {
		return domain.NewForbidden(denied)
	}

	if err := s.projects.Delete(ctx, projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	log.Info().Str("project_id", projectID.String()).Msg("project deleted")
	return nil
}
