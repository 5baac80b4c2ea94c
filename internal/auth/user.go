// Package auth handles accounts and sessions: registration, login, user
// administration and the bearer tokens the HTTP layer hands out.
package auth

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kidsquiz/quiz-server/internal/domain"
)

// User is an account. PasswordHash never leaves the package boundary in JSON.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity converts the user into the acting identity passed to the stores.
func (u User) Identity() domain.Identity {
	return domain.Identity{UserID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin}
}

// UserStore persists accounts.
type UserStore interface {
	// Create inserts an account. Duplicate usernames fail with ConflictError.
	Create(ctx context.Context, username, passwordHash string, isAdmin bool) (User, error)
	Get(ctx context.Context, id int64) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	// List returns all accounts ordered by id.
	List(ctx context.Context) ([]User, error)
	// Rename changes the username. Duplicates fail with ConflictError.
	Rename(ctx context.Context, id int64, username string) error
	SetAdmin(ctx context.Context, id int64, isAdmin bool) error
	SetPassword(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
	CountAdmins(ctx context.Context) (int, error)
}

// MemoryUsers is an in-memory UserStore implementation for tests.
type MemoryUsers struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]*User
}

// NewMemoryUsers creates an empty in-memory user store.
func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{users: make(map[int64]*User)}
}

func (s *MemoryUsers) Create(_ context.Context, username, passwordHash string, isAdmin bool) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			return User{}, domain.Conflict("username %q already taken", username)
		}
	}
	s.nextID++
	u := &User{
		ID:           s.nextID,
		Username:     username,
		PasswordHash: passwordHash,
		IsAdmin:      isAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[u.ID] = u
	return *u, nil
}

func (s *MemoryUsers) Get(_ context.Context, id int64) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, domain.NotFound("user", id)
	}
	return *u, nil
}

func (s *MemoryUsers) GetByUsername(_ context.Context, username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return *u, nil
		}
	}
	return User{}, domain.NotFound("user", 0)
}

func (s *MemoryUsers) List(_ context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryUsers) Rename(_ context.Context, id int64, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return domain.NotFound("user", id)
	}
	for _, other := range s.users {
		if other.ID != id && other.Username == username {
			return domain.Conflict("username %q already taken", username)
		}
	}
	u.Username = username
	return nil
}

func (s *MemoryUsers) SetAdmin(_ context.Context, id int64, isAdmin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return domain.NotFound("user", id)
	}
	u.IsAdmin = isAdmin
	return nil
}

func (s *MemoryUsers) SetPassword(_ context.Context, id int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return domain.NotFound("user", id)
	}
	u.PasswordHash = passwordHash
	return nil
}

func (s *MemoryUsers) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return domain.NotFound("user", id)
	}
	delete(s.users, id)
	return nil
}

func (s *MemoryUsers) CountAdmins(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, u := range s.users {
		if u.IsAdmin {
			n++
		}
	}
	return n, nil
}
