package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/projecthub-dev/projecthub/internal/domain/document"
	"github.com/projecthub-dev/projecthub/internal/domain/membership"
	"github.com/projecthub-dev/projecthub/internal/domain/project"
	"github.com/projecthub-dev/projecthub/internal/domain/role"
	"github.com/projecthub-dev/projecthub/internal/domain/user"
)

// Store is the in-memory backend. One mutex guards all four tables so a
// cascade (project or user delete) happens in a single lock scope, same
// atomicity the postgres FKs give us.
type Store struct {
	mu          sync.RWMutex
	users       map[string]user.User
	projects    map[string]project.Project
	memberships map[string]membership.Membership // keyed projectID|userID
	documents   map[string]document.Document
}

func NewStore() *Store {
	return &Store{
		users:       make(map[string]user.User),
		projects:    make(map[string]project.Project),
		memberships: make(map[string]membership.Membership),
		documents:   make(map[string]document.Document),
	}
}

func pairKey(projectID, userID string) string {
	return projectID + "|" + userID
}

// --- users

func (s *Store) CreateUser(ctx context.Context, email, passwordHash, name string, r role.Role) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return user.User{}, user.ErrEmailAlreadyUsed
		}
	}

	now := time.Now().UTC()
	u := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         r,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *Store) UpdateRole(ctx context.Context, id string, r role.Role) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	u.Role = r
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return u, nil
}

// DeleteUser cascades membership removal; projects created by the user stay
// (ownership is an audit fact), but a lead slot pointing at the user is
// cleared.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(s.users, id)

	for key, m := range s.memberships {
		if m.UserID == id {
			delete(s.memberships, key)
		}
	}

	for pid, p := range s.projects {
		if p.ProjectLeadID != nil && *p.ProjectLeadID == id {
			p.ProjectLeadID = nil
			s.projects[pid] = p
		}
	}
	return nil
}

// --- projects

func (s *Store) CreateProject(ctx context.Context, req project.CreateProjectRequest, createdBy string) (project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	status := project.Status(req.Status)
	if req.Status == "" {
		status = project.StatusActive
	}

	p := project.Project{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Status:      status,
		Deadline:    req.Deadline,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.projects[p.ID] = p
	return p, nil
}

func (s *Store) GetProject(ctx context.Context, id string) (project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return project.Project{}, project.ErrNotFound
	}
	return p, nil
}

func (s *Store) List(ctx context.Context) ([]project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]project.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) ListByMember(ctx context.Context, userID string) ([]project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]project.Project, 0)
	for _, m := range s.memberships {
		if m.UserID != userID {
			continue
		}
		if p, ok := s.projects[m.ProjectID]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) UpdateProject(ctx context.Context, id string, req project.UpdateProjectRequest) (project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok {
		return project.Project{}, project.ErrNotFound
	}

	p.Name = req.Name
	p.Description = req.Description
	p.Status = project.Status(req.Status)
	p.Deadline = req.Deadline
	p.UpdatedAt = time.Now().UTC()
	s.projects[id] = p
	return p, nil
}

func (s *Store) SetLead(ctx context.Context, projectID string, leadID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[projectID]
	if !ok {
		return project.ErrNotFound
	}
	p.ProjectLeadID = leadID
	p.UpdatedAt = time.Now().UTC()
	s.projects[projectID] = p
	return nil
}

// DeleteProject cascades memberships and documents with the project, all
// under one lock.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return project.ErrNotFound
	}
	delete(s.projects, id)

	for key, m := range s.memberships {
		if m.ProjectID == id {
			delete(s.memberships, key)
		}
	}
	for docID, d := range s.documents {
		if d.ProjectID == id {
			delete(s.documents, docID)
		}
	}
	return nil
}

// --- memberships

func (s *Store) Add(ctx context.Context, m membership.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(m.ProjectID, m.UserID)
	if _, exists := s.memberships[key]; exists {
		return membership.ErrDuplicate
	}
	s.memberships[key] = m
	return nil
}

func (s *Store) Remove(ctx context.Context, projectID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// absent membership: deliberately a no-op
	delete(s.memberships, pairKey(projectID, userID))
	return nil
}

func (s *Store) ListByProject(ctx context.Context, projectID string) ([]membership.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]membership.Membership, 0)
	for _, m := range s.memberships {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]membership.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]membership.Membership, 0)
	for _, m := range s.memberships {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

// --- documents

func (s *Store) CreateDocument(ctx context.Context, d document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[d.ProjectID]; !ok {
		return project.ErrNotFound
	}
	s.documents[d.ID] = d
	return nil
}

func (s *Store) ListDocuments(ctx context.Context, projectID string) ([]document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]document.Document, 0)
	for _, d := range s.documents {
		if d.ProjectID == projectID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) DeleteDocument(ctx context.Context, projectID, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.documents[docID]
	if !ok || d.ProjectID != projectID {
		return document.ErrNotFound
	}
	delete(s.documents, docID)
	return nil
}

func (s *Store) CountByProjects(ctx context.Context, projectIDs []string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(projectIDs))
	for _, id := range projectIDs {
		wanted[id] = struct{}{}
	}

	total := 0
	for _, d := range s.documents {
		if _, ok := wanted[d.ProjectID]; ok {
			total++
		}
	}
	return total, nil
}
