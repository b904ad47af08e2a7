// Package memory is a map-backed account store for tests and single-process demos.
package memory

import (
	"context"
	"strings"
	"sync"

	tokenAuth "github.com/MrEthical07/tokenAuth"
)

// Store holds accounts in memory. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	byEmail map[string]tokenAuth.UserRecord
	nextID  int64
}

// New returns an empty store. Member ids start at 1.
func New() *Store {
	return &Store{byEmail: map[string]tokenAuth.UserRecord{}, nextID: 1}
}

func key(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) FindByEmail(_ context.Context, email string) (tokenAuth.UserRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byEmail[key(email)]
	return rec, ok, nil
}

func (s *Store) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byEmail[key(email)]
	return ok, nil
}

// CreateUser returns tokenAuth.ErrAccountExists when the email is taken.
func (s *Store) CreateUser(_ context.Context, in tokenAuth.CreateUserInput) (tokenAuth.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(in.Email)
	if _, ok := s.byEmail[k]; ok {
		return tokenAuth.UserRecord{}, tokenAuth.ErrAccountExists
	}

	rec := tokenAuth.UserRecord{
		MemberID:     s.nextID,
		Email:        strings.TrimSpace(in.Email),
		Nickname:     in.Nickname,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
	}
	s.nextID++
	s.byEmail[k] = rec
	return rec, nil
}

// SetRole changes the role of an existing account. It reports whether the account exists.
func (s *Store) SetRole(email string, role tokenAuth.Role) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byEmail[key(email)]
	if !ok {
		return false
	}
	rec.Role = role
	s.byEmail[key(email)] = rec
	return true
}
