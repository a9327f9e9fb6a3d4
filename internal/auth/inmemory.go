package auth

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// InMemoryUsers implements UserStore with in-process concurrency safety.
// Used by handler tests and local development without Postgres.
type InMemoryUsers struct {
	mu    sync.RWMutex
	users map[string]*User
}

var _ UserStore = (*InMemoryUsers)(nil)

// NewInMemoryUsers creates an empty directory.
func NewInMemoryUsers() *InMemoryUsers {
	return &InMemoryUsers{users: make(map[string]*User)}
}

func (s *InMemoryUsers) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) || strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicate
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *InMemoryUsers) Find(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *InMemoryUsers) FindByUsername(ctx context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryUsers) ListByRole(ctx context.Context, role string) ([]*User, error) {
	role = NormalizeRole(role)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*User
	for _, u := range s.users {
		if u.Role != role {
			continue
		}
		cp := *u
		cp.PasswordHash = ""
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
