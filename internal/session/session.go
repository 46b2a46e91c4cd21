// Package session persists the bearer credential for authenticated tiers.
// Clearing the session never touches the guest quota ledger, which lives
// in its own store; a guest cannot recover a spent trial by logging out.
package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"doc-translator/internal/domain"
)

// Store holds the current session credential and account tier, backed by
// a JSON file so the session survives app restarts.
type Store struct {
	mu    sync.RWMutex
	path  string
	token string
	tier  domain.Tier
}

// persisted is the on-disk session shape.
type persisted struct {
	Token string      `json:"token"`
	Tier  domain.Tier `json:"tier"`
}

// NewStore creates a session store reading from path if it exists.
// A missing or unreadable file yields an anonymous guest session.
func NewStore(path string) *Store {
	s := &Store{path: path, tier: domain.TierGuest}

	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return s
	}
	if p.Token != "" && p.Tier != "" {
		s.token = p.Token
		s.tier = p.Tier
	}
	return s
}

// Token returns the bearer credential, empty for guests.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Tier returns the current account tier; guests when no session exists.
func (s *Store) Tier() domain.Tier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tier
}

// Authenticated reports whether a bearer credential is present.
func (s *Store) Authenticated() bool {
	return s.Token() != ""
}

// Save stores a new credential and tier and persists them.
func (s *Store) Save(token string, tier domain.Tier) error {
	if token == "" {
		return errors.New("empty session token")
	}
	if tier != domain.TierFree && tier != domain.TierPaid {
		return errors.New("authenticated session requires free or paid tier")
	}

	s.mu.Lock()
	s.token = token
	s.tier = tier
	s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(persisted{Token: token, Tier: tier}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Clear drops the credential and returns the store to guest tier. The
// session file is removed; a missing file is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.tier = domain.TierGuest
	s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
