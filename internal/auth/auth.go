// Package auth manages API keys and role-based access for the parties that
// write to the ledger: labs, auditors and government observers.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/juanpablocruz/flightrec/pkg/storage"
)

// Role of an authorized party.
type Role string

const (
	RoleLab        Role = "lab"
	RoleAuditor    Role = "auditor"
	RoleGovernment Role = "government"
)

func (r Role) Valid() bool {
	switch r {
	case RoleLab, RoleAuditor, RoleGovernment:
		return true
	}
	return false
}

// Party is a registered API consumer. Only the hash of its key is kept.
type Party struct {
	ID         string    `json:"party_id"`
	Name       string    `json:"name"`
	Role       Role      `json:"role"`
	APIKeyHash string    `json:"api_key_hash"`
	CreatedAt  time.Time `json:"created_at"`
	IsActive   bool      `json:"is_active"`
}

// Store keeps registered parties and answers key lookups.
type Store struct {
	mu      sync.Mutex
	parties map[string]Party
	state   *storage.StateFile
}

type persistedState struct {
	Parties []Party `json:"parties"`
}

// NewStore loads parties from the state file; a corrupt file starts empty.
func NewStore(state *storage.StateFile) *Store {
	s := &Store{parties: make(map[string]Party), state: state}
	var st persistedState
	if state != nil && state.Load(&st) {
		for _, p := range st.Parties {
			s.parties[p.ID] = p
		}
	}
	return s
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func newAPIKey() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("draw api key: %w", err)
	}
	return "afr_" + base64.RawURLEncoding.EncodeToString(b[:]), nil
}

// Register creates a party and returns it with the plaintext API key, which
// is never stored or shown again.
func (s *Store) Register(name string, role Role) (Party, string, error) {
	if name == "" {
		return Party{}, "", fmt.Errorf("party name is required")
	}
	if !role.Valid() {
		return Party{}, "", fmt.Errorf("invalid role %q", role)
	}

	key, err := newAPIKey()
	if err != nil {
		return Party{}, "", err
	}
	p := Party{
		ID:         "party_" + uuid.NewString(),
		Name:       name,
		Role:       role,
		APIKeyHash: hashKey(key),
		CreatedAt:  time.Now().UTC(),
		IsActive:   true,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.parties[p.ID] = p
	if err := s.persistLocked(); err != nil {
		delete(s.parties, p.ID)
		return Party{}, "", err
	}
	return p, key, nil
}

// VerifyKey resolves an API key to its active party.
func (s *Store) VerifyKey(key string) (Party, bool) {
	want := hashKey(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.parties {
		if p.IsActive && p.APIKeyHash == want {
			return p, true
		}
	}
	return Party{}, false
}

// Get returns a party by id.
func (s *Store) Get(id string) (Party, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parties[id]
	return p, ok
}

// List returns every party, active or not, newest first.
func (s *Store) List() []Party {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Party, 0, len(s.parties))
	for _, p := range s.parties {
		out = append(out, p)
	}
	sortPartiesByCreation(out)
	return out
}

// Revoke deactivates a party's key.
func (s *Store) Revoke(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parties[id]
	if !ok {
		return false
	}
	p.IsActive = false
	s.parties[id] = p
	_ = s.persistLocked()
	return true
}

// RotateKey issues a fresh key for an active party, invalidating the old
// one. Returns the new plaintext key.
func (s *Store) RotateKey(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parties[id]
	if !ok || !p.IsActive {
		return "", false
	}
	key, err := newAPIKey()
	if err != nil {
		return "", false
	}
	p.APIKeyHash = hashKey(key)
	s.parties[id] = p
	if err := s.persistLocked(); err != nil {
		return "", false
	}
	return key, true
}

// Reset drops every party. Demo use only.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parties = make(map[string]Party)
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	if s.state == nil {
		return nil
	}
	st := persistedState{Parties: make([]Party, 0, len(s.parties))}
	for _, p := range s.parties {
		st.Parties = append(st.Parties, p)
	}
	sortPartiesByCreation(st.Parties)
	return s.state.Save(st)
}

func sortPartiesByCreation(parties []Party) {
	sort.Slice(parties, func(i, j int) bool {
		return parties[i].CreatedAt.After(parties[j].CreatedAt)
	})
}
