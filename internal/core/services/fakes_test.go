package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/taskboard/internal/adapters/token"
	"github.com/vncsmyrnk/taskboard/internal/core/domain"
	"github.com/vncsmyrnk/taskboard/internal/core/ports"
)

type memberKey struct {
	projectID uuid.UUID
	userID    uuid.UUID
}

// memStore backs every in-memory repository so cross-table behavior matches the database.
type memStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*domain.User
	tokens   map[uuid.UUID]*domain.RefreshToken
	projects map[uuid.UUID]*domain.Project
	members  map[memberKey]*domain.ProjectMember
	tasks    map[uuid.UUID]*domain.Task
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[uuid.UUID]*domain.User{},
		tokens:   map[uuid.UUID]*domain.RefreshToken{},
		projects: map[uuid.UUID]*domain.Project{},
		members:  map[memberKey]*domain.ProjectMember{},
		tasks:    map[uuid.UUID]*domain.Task{},
	}
}

func (s *memStore) summary(id uuid.UUID) *domain.UserSummary {
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	return &domain.UserSummary{ID: u.ID, Email: u.Email, Username: u.Username}
}

type memUserRepo struct{ *memStore }

func (r memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (r memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (r memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return domain.ErrUserExists
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	c := *user
	r.users[user.ID] = &c
	return nil
}

func (r memUserRepo) ConsumeVerificationToken(_ context.Context, tok string, now time.Time) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.IsVerified || u.VerificationToken == nil || *u.VerificationToken != tok {
			continue
		}
		if u.VerificationTokenExpiry == nil || !u.VerificationTokenExpiry.After(now) {
			return nil, nil
		}
		u.IsVerified = true
		u.VerificationToken = nil
		u.VerificationTokenExpiry = nil
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (r memUserRepo) SetPasswordResetToken(_ context.Context, userID uuid.UUID, tok string, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return errors.New("user not found")
	}
	u.PasswordResetToken = &tok
	u.PasswordResetExpiry = &expiry
	return nil
}

func (r memUserRepo) ConsumePasswordResetToken(_ context.Context, tok, hash string, now time.Time) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.PasswordResetToken == nil || *u.PasswordResetToken != tok {
			continue
		}
		if u.PasswordResetExpiry == nil || !u.PasswordResetExpiry.After(now) {
			return nil, nil
		}
		u.PasswordHash = hash
		u.PasswordResetToken = nil
		u.PasswordResetExpiry = nil
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (r memUserRepo) ClearExpiredRecoveryTokens(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, u := range r.users {
		if u.VerificationTokenExpiry != nil && !u.VerificationTokenExpiry.After(now) {
			u.VerificationToken, u.VerificationTokenExpiry = nil, nil
			n++
		}
		if u.PasswordResetExpiry != nil && !u.PasswordResetExpiry.After(now) {
			u.PasswordResetToken, u.PasswordResetExpiry = nil, nil
			n++
		}
	}
	return n, nil
}

type memTokenRepo struct{ *memStore }

func (r memTokenRepo) Store(_ context.Context, t *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *t
	r.tokens[t.ID] = &c
	return nil
}

func (r memTokenRepo) Rotate(_ context.Context, oldID, userID uuid.UUID, now time.Time, next *domain.RefreshToken) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.tokens[oldID]
	if !ok || old.UserID != userID || old.Revoked || !old.ExpiresAt.After(now) {
		return false, nil
	}
	delete(r.tokens, oldID)
	c := *next
	r.tokens[next.ID] = &c
	return true, nil
}

func (r memTokenRepo) DeleteByHash(_ context.Context, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.tokens {
		if t.TokenHash == hash {
			delete(r.tokens, id)
		}
	}
	return nil
}

func (r memTokenRepo) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.tokens {
		if t.UserID == userID {
			delete(r.tokens, id)
		}
	}
	return nil
}

func (r memTokenRepo) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, t := range r.tokens {
		if t.Revoked || !t.ExpiresAt.After(now) {
			delete(r.tokens, id)
			n++
		}
	}
	return n, nil
}

func (r memTokenRepo) count(userID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.tokens {
		if t.UserID == userID {
			n++
		}
	}
	return n
}

type memProjectRepo struct{ *memStore }

func (r memProjectRepo) CreateWithOwner(_ context.Context, p *domain.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.projects {
		if existing.OwnerID == p.OwnerID && existing.Name == p.Name {
			return domain.ErrDuplicateProjectName
		}
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	c := *p
	r.projects[p.ID] = &c
	r.members[memberKey{p.ID, p.OwnerID}] = &domain.ProjectMember{
		ProjectID: p.ID, UserID: p.OwnerID, Role: domain.ProjectRoleOwner, JoinedAt: p.CreatedAt,
	}
	return nil
}

func (r memProjectRepo) ExistsByName(_ context.Context, ownerID uuid.UUID, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.projects {
		if p.OwnerID == ownerID && p.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (r memProjectRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (r memProjectRepo) GetDetails(_ context.Context, id uuid.UUID) (*domain.ProjectDetails, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, nil
	}
	d := &domain.ProjectDetails{Project: *p, Members: r.listMembers(id), TaskCount: r.taskCount(id)}
	if owner := r.summary(p.OwnerID); owner != nil {
		d.Owner = *owner
	}
	return d, nil
}

func (r memProjectRepo) ListForMember(_ context.Context, userID uuid.UUID) ([]domain.ProjectOverview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ProjectOverview
	for key := range r.members {
		if key.userID != userID {
			continue
		}
		p := r.projects[key.projectID]
		o := domain.ProjectOverview{Project: *p, TaskCount: r.taskCount(p.ID), MemberCount: len(r.listMembers(p.ID))}
		if owner := r.summary(p.OwnerID); owner != nil {
			o.Owner = *owner
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r memProjectRepo) Update(_ context.Context, id uuid.UUID, patch ports.ProjectPatch) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, domain.NewNotFound("Project not found")
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = patch.Description
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	p.UpdatedAt = time.Now()
	c := *p
	return &c, nil
}

func (r memProjectRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[id]; !ok {
		return domain.NewNotFound("Project not found")
	}
	delete(r.projects, id)
	for key := range r.members {
		if key.projectID == id {
			delete(r.members, key)
		}
	}
	for tid, t := range r.tasks {
		if t.ProjectID == id {
			delete(r.tasks, tid)
		}
	}
	return nil
}

func (s *memStore) listMembers(projectID uuid.UUID) []domain.ProjectMember {
	var out []domain.ProjectMember
	for key, m := range s.members {
		if key.projectID == projectID {
			c := *m
			c.User = s.summary(m.UserID)
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out
}

func (s *memStore) taskCount(projectID uuid.UUID) int {
	n := 0
	for _, t := range s.tasks {
		if t.ProjectID == projectID {
			n++
		}
	}
	return n
}

type memMemberRepo struct{ *memStore }

func (r memMemberRepo) Get(_ context.Context, projectID, userID uuid.UUID) (*domain.ProjectMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[memberKey{projectID, userID}]
	if !ok {
		return nil, nil
	}
	c := *m
	return &c, nil
}

func (r memMemberRepo) List(_ context.Context, projectID uuid.UUID) ([]domain.ProjectMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listMembers(projectID), nil
}

func (r memMemberRepo) Add(_ context.Context, m *domain.ProjectMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := memberKey{m.ProjectID, m.UserID}
	if _, ok := r.members[key]; ok {
		return domain.ErrAlreadyMember
	}
	m.JoinedAt = time.Now()
	c := *m
	r.members[key] = &c
	return nil
}

func (r memMemberRepo) UpdateRole(_ context.Context, projectID, userID uuid.UUID, role domain.ProjectRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[memberKey{projectID, userID}]
	if !ok {
		return domain.NewNotFound("Member not found in this project")
	}
	m.Role = role
	return nil
}

func (r memMemberRepo) TransferOwnership(_ context.Context, projectID, from, to uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.members[memberKey{projectID, from}]
	if !ok || current.Role != domain.ProjectRoleOwner {
		return domain.NewForbidden("Only project owner can transfer ownership")
	}
	next, ok := r.members[memberKey{projectID, to}]
	if !ok {
		return domain.NewNotFound("Member not found in this project")
	}
	name := r.projects[projectID].Name
	for id, p := range r.projects {
		if id != projectID && p.OwnerID == to && p.Name == name {
			return domain.ErrNewOwnerHasProject
		}
	}
	current.Role = domain.ProjectRoleMember
	next.Role = domain.ProjectRoleOwner
	r.projects[projectID].OwnerID = to
	return nil
}

func (r memMemberRepo) Remove(_ context.Context, projectID, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := memberKey{projectID, userID}
	if _, ok := r.members[key]; !ok {
		return false, nil
	}
	delete(r.members, key)
	for _, t := range r.tasks {
		if t.ProjectID == projectID && t.AssigneeID != nil && *t.AssigneeID == userID {
			t.AssigneeID = nil
		}
	}
	return true, nil
}

func (r memMemberRepo) CountOwners(_ context.Context, projectID, exclude uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for key, m := range r.members {
		if key.projectID == projectID && key.userID != exclude && m.Role == domain.ProjectRoleOwner {
			n++
		}
	}
	return n, nil
}

type memTaskRepo struct{ *memStore }

func (r memTaskRepo) Create(_ context.Context, t *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.tasks {
		if existing.ProjectID == t.ProjectID && existing.Title == t.Title {
			return domain.ErrDuplicateTaskTitle
		}
	}
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	c := *t
	r.tasks[t.ID] = &c
	return nil
}

func (r memTaskRepo) ExistsByTitle(_ context.Context, projectID uuid.UUID, title string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.ProjectID == projectID && t.Title == title {
			return true, nil
		}
	}
	return false, nil
}

func (r memTaskRepo) GetByID(_ context.Context, projectID, taskID uuid.UUID) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[taskID]
	if !ok || t.ProjectID != projectID {
		return nil, nil
	}
	c := *t
	return &c, nil
}

func (r memTaskRepo) List(_ context.Context, projectID uuid.UUID, f domain.TaskFilter) ([]domain.Task, error) {
	return r.collect(func(t *domain.Task) bool {
		switch {
		case t.ProjectID != projectID:
			return false
		case f.Status != nil && t.Status != *f.Status:
			return false
		case f.Priority != nil && t.Priority != *f.Priority:
			return false
		case f.UnassignedOnly && t.AssigneeID != nil:
			return false
		case f.AssigneeID != nil && (t.AssigneeID == nil || *t.AssigneeID != *f.AssigneeID):
			return false
		}
		return true
	}), nil
}

func (r memTaskRepo) Update(_ context.Context, t *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.tasks[t.ID]
	if !ok {
		return domain.NewNotFound("Task not found")
	}
	if t.CompletedAt == nil {
		t.CompletedAt = existing.CompletedAt
	}
	t.UpdatedAt = time.Now()
	c := *t
	r.tasks[t.ID] = &c
	return nil
}

func (r memTaskRepo) Delete(_ context.Context, projectID, taskID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[taskID]
	if !ok || t.ProjectID != projectID {
		return false, nil
	}
	delete(r.tasks, taskID)
	return true, nil
}

func (r memTaskRepo) ListAssigned(_ context.Context, userID uuid.UUID) ([]domain.Task, error) {
	return r.collect(func(t *domain.Task) bool {
		return t.AssigneeID != nil && *t.AssigneeID == userID
	}), nil
}

func (r memTaskRepo) ListOverdue(_ context.Context, userID uuid.UUID, now time.Time) ([]domain.Task, error) {
	return r.collect(func(t *domain.Task) bool {
		return t.AssigneeID != nil && *t.AssigneeID == userID &&
			t.DueDate != nil && t.DueDate.Before(now) && t.Status != domain.TaskDone
	}), nil
}

func (r memTaskRepo) collect(keep func(*domain.Task) bool) []domain.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Task
	for _, t := range r.tasks {
		if keep(t) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// plainHasher stores passwords with a fixed prefix so tests stay fast.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (plainHasher) Verify(password, encoded string) (bool, error) {
	return encoded == "hashed:"+password, nil
}

type recordingMailer struct {
	mu           sync.Mutex
	verification map[string]string
	reset        map[string]string
	err          error
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{verification: map[string]string{}, reset: map[string]string{}}
}

func (m *recordingMailer) SendVerificationEmail(_ context.Context, to, tok string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.verification[to] = tok
	return nil
}

func (m *recordingMailer) SendPasswordResetEmail(_ context.Context, to, tok string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.reset[to] = tok
	return nil
}

type stubVerifier struct {
	payload *ports.TokenPayload
}

func (v stubVerifier) Verify(_ context.Context, tok, _ string) (*ports.TokenPayload, error) {
	if tok != "valid-google-token" {
		return nil, errors.New("invalid token")
	}
	return v.payload, nil
}

type testEnv struct {
	store    *memStore
	users    memUserRepo
	tokens   memTokenRepo
	mailer   *recordingMailer
	codec    *token.Codec
	sessions ports.SessionManager
	recovery ports.RecoveryManager
	auth     *AuthService
	projects ports.ProjectService
	members  ports.MemberService
	tasks    ports.TaskService
}

func newTestEnv(t *testing.T, opts ...AuthOption) *testEnv {
	t.Helper()

	codec, err := token.NewCodec(token.Config{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	})
	require.NoError(t, err)

	store := newMemStore()
	env := &testEnv{
		store:  store,
		users:  memUserRepo{store},
		tokens: memTokenRepo{store},
		mailer: newRecordingMailer(),
		codec:  codec,
	}
	members := memMemberRepo{store}
	projects := memProjectRepo{store}
	authz := NewAuthorizer(members)

	env.sessions = NewSessionService(env.tokens, env.users, codec)
	env.recovery = NewRecoveryService(env.users, env.sessions, RecoveryConfig{
		VerificationTTL:  24 * time.Hour,
		PasswordResetTTL: 15 * time.Minute,
	})
	env.auth = NewAuthService(env.users, env.sessions, env.recovery, plainHasher{}, env.mailer, opts...)
	env.projects = NewProjectService(projects, env.users, authz)
	env.members = NewMemberService(members, projects, env.users, authz)
	env.tasks = NewTaskService(memTaskRepo{store}, authz)
	return env
}

// createUser inserts a verified user whose password is "Password1!".
func (e *testEnv) createUser(t *testing.T, email string) *domain.User {
	t.Helper()
	username := strings.Split(email, "@")[0]
	u := &domain.User{
		Email:        email,
		Username:     &username,
		PasswordHash: "hashed:Password1!",
		Role:         domain.RoleUser,
		IsVerified:   true,
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

func (e *testEnv) createProject(t *testing.T, owner *domain.User, name string) *domain.Project {
	t.Helper()
	p, err := e.projects.Create(context.Background(), owner.ID, ports.CreateProjectInput{Name: name})
	require.NoError(t, err)
	return p
}

func (e *testEnv) addMember(t *testing.T, project *domain.Project, owner, user *domain.User) {
	t.Helper()
	_, err := e.members.Add(context.Background(), project.ID, owner.ID, ports.AddMemberInput{Email: user.Email})
	require.NoError(t, err)
}
