package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eddigital/lti-blogs/internal/identity"
	"github.com/eddigital/lti-blogs/internal/lti"
)

// ErrSessionNotFound is returned when no live session matches the token.
var ErrSessionNotFound = errors.New("session not found")

// State is the server-side session for one launch. It is created fresh at
// the start of every launch (killing whatever session the browser presented)
// and lives at most one launch plus one staff follow-up request.
type State struct {
	Token         uuid.UUID
	Authenticated bool
	UserID        uuid.UUID
	BlogID        uuid.UUID

	// Staff cross-view fields, populated by the handoff workflow at launch
	// time and consumed by the follow-up sign-in request.
	StaffMode           bool
	StaffRoles          lti.RoleSet
	StaffIdentity       identity.Attributes
	StaffCourseID       string
	StaffResourceLinkID string

	ExpiresAt time.Time
}

// Store persists session state between a launch and its follow-up request.
type Store interface {
	Create(ctx context.Context, st *State) error
	Get(ctx context.Context, token uuid.UUID) (*State, error)
	Delete(ctx context.Context, token uuid.UUID) error
	// DeleteExpired removes sessions past their expiry, returning the count.
	DeleteExpired(ctx context.Context) int
}

// MemoryStore is an in-process Store. Session state is deliberately
// transient: it must never outlive the launch it belongs to, so there is
// nothing to persist across restarts.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]State
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates a MemoryStore whose sessions expire after ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]State),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create assigns the state a fresh token and expiry and stores a copy.
func (s *MemoryStore) Create(_ context.Context, st *State) error {
	st.Token = uuid.New()
	st.ExpiresAt = s.now().Add(s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[st.Token] = *st

	return nil
}

// Get returns a copy of the live session for the token. Expired sessions
// are treated as absent.
func (s *MemoryStore) Get(_ context.Context, token uuid.UUID) (*State, error) {
	s.mu.RLock()
	st, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok || s.now().After(st.ExpiresAt) {
		return nil, ErrSessionNotFound
	}

	return &st, nil
}

// Delete removes the session. Deleting an absent token is a no-op.
func (s *MemoryStore) Delete(_ context.Context, token uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// DeleteExpired removes all sessions past their expiry.
func (s *MemoryStore) DeleteExpired(_ context.Context) int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, st := range s.sessions {
		if now.After(st.ExpiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}

	return removed
}
