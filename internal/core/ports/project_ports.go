package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/taskboard/internal/core/domain"
)

type ProjectRepository interface {
	// CreateWithOwner inserts the project and its OWNER membership row in one transaction.
	CreateWithOwner(ctx context.Context, project *domain.Project) error
	ExistsByName(ctx context.Context, ownerID uuid.UUID, name string) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	GetDetails(ctx context.Context, id uuid.UUID) (*domain.ProjectDetails, error)
	ListForMember(ctx context.Context, userID uuid.UUID) ([]domain.ProjectOverview, error)
	Update(ctx context.Context, id uuid.UUID, patch ProjectPatch) (*domain.Project, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type MemberRepository interface {
	Get(ctx context.Context, projectID, userID uuid.UUID) (*domain.ProjectMember, error)
	List(ctx context.Context, projectID uuid.UUID) ([]domain.ProjectMember, error)
	Add(ctx context.Context, member *domain.ProjectMember) error
	UpdateRole(ctx context.Context, projectID, userID uuid.UUID, role domain.ProjectRole) error
	// TransferOwnership demotes from, promotes to and repoints projects.owner_id in one transaction.
	TransferOwnership(ctx context.Context, projectID, from, to uuid.UUID) error
	Remove(ctx context.Context, projectID, userID uuid.UUID) (bool, error)
	CountOwners(ctx context.Context, projectID, excludeUserID uuid.UUID) (int, error)
}

type ProjectPatch struct {
	Name        *string
	Description *string
	Status      *domain.ProjectStatus
}

type CreateProjectInput struct {
	Name        string
	Description *string
}

type ProjectService interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreateProjectInput) (*domain.Project, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.ProjectOverview, error)
	Get(ctx context.Context, projectID, userID uuid.UUID) (*domain.ProjectDetails, error)
	Update(ctx context.Context, projectID, userID uuid.UUID, patch ProjectPatch) (*domain.Project, error)
	Delete(ctx context.Context, projectID, userID uuid.UUID) error
}

type AddMemberInput struct {
	Email string
	Role  domain.ProjectRole
}

type MemberService interface {
	Add(ctx context.Context, projectID, requesterID uuid.UUID, input AddMemberInput) (*domain.ProjectMember, error)
	List(ctx context.Context, projectID, userID uuid.UUID) ([]domain.ProjectMember, error)
	UpdateRole(ctx context.Context, projectID, targetUserID, requesterID uuid.UUID, role domain.ProjectRole) (*domain.ProjectMember, error)
	Remove(ctx context.Context, projectID, targetUserID, requesterID uuid.UUID) error
	Leave(ctx context.Context, projectID, userID uuid.UUID) error
}
