package domain

import (
	"time"

	"github.com/google/uuid"
)

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "ACTIVE"
	ProjectCompleted ProjectStatus = "COMPLETED"
	ProjectArchived  ProjectStatus = "ARCHIVED"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectCompleted, ProjectArchived:
		return true
	}
	return false
}

type ProjectRole string

const (
	ProjectRoleOwner  ProjectRole = "OWNER"
	ProjectRoleMember ProjectRole = "MEMBER"
)

func (r ProjectRole) Valid() bool {
	return r == ProjectRoleOwner || r == ProjectRoleMember
}

type Project struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	Description *string       `json:"description,omitempty"`
	Status      ProjectStatus `json:"status"`
	OwnerID     uuid.UUID     `json:"ownerId"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

type ProjectMember struct {
	ProjectID uuid.UUID    `json:"projectId"`
	UserID    uuid.UUID    `json:"userId"`
	Role      ProjectRole  `json:"role"`
	JoinedAt  time.Time    `json:"joinedAt"`
	User      *UserSummary `json:"user,omitempty"`
}

// ProjectOverview is a row of the caller's project list.
type ProjectOverview struct {
	Project
	Owner       UserSummary `json:"owner"`
	TaskCount   int         `json:"taskCount"`
	MemberCount int         `json:"memberCount"`
}

// ProjectDetails is a single project with its owner, members and task count.
type ProjectDetails struct {
	Project
	Owner     UserSummary     `json:"owner"`
	Members   []ProjectMember `json:"members"`
	TaskCount int             `json:"taskCount"`
}
