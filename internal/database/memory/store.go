// Package memory is a process-local implementation of the store contracts.
// It backs the test suites and STORE_DRIVER=memory local runs; it enforces
// the same uniqueness and conditional-update rules as the Postgres store.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/fittogether/internal/common"
	"github.com/jason-s-yu/fittogether/internal/models"
)

type Store struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]*models.User
	requests map[uuid.UUID]*models.PartnerRequest
	posts    map[uuid.UUID]*models.Post
}

func New() *Store {
	return &Store{
		users:    make(map[uuid.UUID]*models.User),
		requests: make(map[uuid.UUID]*models.PartnerRequest),
		posts:    make(map[uuid.UUID]*models.Post),
	}
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.Partners = slices.Clone(u.Partners)
	return &c
}

// CreateUser stores u. Emails are unique case-insensitively.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; ok {
		return common.ErrConflict
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return common.ErrConflict
		}
	}
	s.users[u.ID] = copyUser(u)
	return nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return copyUser(u), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return copyUser(u), nil
		}
	}
	return nil, common.ErrNotFound
}

func (s *Store) UpdateAvatar(ctx context.Context, id uuid.UUID, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return common.ErrNotFound
	}
	u.AvatarURL = url
	return nil
}

func (s *Store) GetProfiles(ctx context.Context, ids []uuid.UUID) ([]models.PublicProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.PublicProfile, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u.Profile())
		}
	}
	return out, nil
}

func (s *Store) AddPartner(ctx context.Context, userID, partnerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	if _, ok := s.users[partnerID]; !ok {
		return common.ErrNotFound
	}
	if !u.HasPartner(partnerID) {
		u.Partners = append(u.Partners, partnerID)
	}
	return nil
}

func (s *Store) RemovePartner(ctx context.Context, userID, partnerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[userID]; ok {
		u.Partners = slices.DeleteFunc(u.Partners, func(id uuid.UUID) bool { return id == partnerID })
	}
	return nil
}

func (s *Store) PullPartnerEverywhere(ctx context.Context, partnerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		u.Partners = slices.DeleteFunc(u.Partners, func(id uuid.UUID) bool { return id == partnerID })
	}
	return nil
}

// DeleteUser removes the record along with any partner reference or request
// that still points at it, matching the cascade the Postgres schema applies.
func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.users, id)
	for _, u := range s.users {
		u.Partners = slices.DeleteFunc(u.Partners, func(p uuid.UUID) bool { return p == id })
	}
	for rid, r := range s.requests {
		if r.From == id || r.To == id {
			delete(s.requests, rid)
		}
	}
	return nil
}

// InsertRequest fails with common.ErrNotFound when either user is gone.
func (s *Store) InsertRequest(ctx context.Context, req *models.PartnerRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[req.From]; !ok {
		return common.ErrNotFound
	}
	if _, ok := s.users[req.To]; !ok {
		return common.ErrNotFound
	}

	for _, r := range s.requests {
		if r.Status == models.StatusPending && r.From == req.From && r.To == req.To {
			return common.ErrConflict
		}
	}
	c := *req
	s.requests[req.ID] = &c
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id uuid.UUID) (*models.PartnerRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (s *Store) FindPendingRequest(ctx context.Context, from, to uuid.UUID) (*models.PartnerRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.requests {
		if r.Status == models.StatusPending && r.From == from && r.To == to {
			c := *r
			return &c, nil
		}
	}
	return nil, common.ErrNotFound
}

func (s *Store) TransitionRequest(ctx context.Context, id uuid.UUID, from, to models.RequestStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	r.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *Store) listPending(match func(*models.PartnerRequest) bool) []models.PartnerRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.PartnerRequest{}
	for _, r := range s.requests {
		if r.Status == models.StatusPending && match(r) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *Store) ListPendingTo(ctx context.Context, userID uuid.UUID) ([]models.PartnerRequest, error) {
	return s.listPending(func(r *models.PartnerRequest) bool { return r.To == userID }), nil
}

func (s *Store) ListPendingFrom(ctx context.Context, userID uuid.UUID) ([]models.PartnerRequest, error) {
	return s.listPending(func(r *models.PartnerRequest) bool { return r.From == userID }), nil
}

func (s *Store) DeleteRequestsByUser(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, r := range s.requests {
		if r.From == userID || r.To == userID {
			delete(s.requests, id)
		}
	}
	return nil
}

func (s *Store) CreatePost(ctx context.Context, p *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *p
	s.posts[p.ID] = &c
	return nil
}

func (s *Store) GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (s *Store) ListPostsByAuthor(ctx context.Context, authorID uuid.UUID) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Post{}
	for _, p := range s.posts {
		if p.AuthorID == authorID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeletePost(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return common.ErrNotFound
	}
	delete(s.posts, id)
	return nil
}

func (s *Store) DeletePostsByAuthor(ctx context.Context, authorID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.posts {
		if p.AuthorID == authorID {
			delete(s.posts, id)
		}
	}
	return nil
}
