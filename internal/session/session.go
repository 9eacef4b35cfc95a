// Package session holds who is acting: the role, the account they act as,
// the active client selection and the authenticated coach whose data is
// loaded. It is passed explicitly to everything that needs it.
package session

import (
	"errors"
	"sync"

	"alcyxob/flexcoach/internal/domain"
)

var ErrInvalidRole = errors.New("invalid role")

// Session is safe for concurrent use.
type Session struct {
	mu               sync.RWMutex
	role             domain.Role
	accountID        string
	activeID         string
	coachID          string
	remoteConfigured bool
}

// New creates a coach-role session. remoteConfigured is the static half of
// the readiness flag (a remote store is configured at all).
func New(remoteConfigured bool) *Session {
	return &Session{role: domain.RoleCoach, remoteConfigured: remoteConfigured}
}

func (s *Session) Role() domain.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// AccountID is the id of the client account acting, when role is client.
func (s *Session) AccountID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accountID
}

// ActiveID is the currently selected client.
func (s *Session) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// CoachID is the owner of the loaded data set; empty when unauthenticated.
func (s *Session) CoachID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coachID
}

// Authenticated reports whether an actor has logged in.
func (s *Session) Authenticated() bool {
	return s.CoachID() != ""
}

// RemoteReady is the readiness gate: a remote store is configured and an
// authenticated actor owns the session. When false the core runs
// cache-only and no network call is attempted.
func (s *Session) RemoteReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remoteConfigured && s.coachID != ""
}

// SetRole switches the acting role.
func (s *Session) SetRole(r domain.Role) error {
	if !r.Valid() {
		return ErrInvalidRole
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.role = r
	return nil
}

// SetAccountID sets the acting client account.
func (s *Session) SetAccountID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accountID = id
}

// SetActiveID selects a client; an empty id clears the selection.
func (s *Session) SetActiveID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = id
}

// Login installs the identity carried by verified claims.
func (s *Session) Login(c *Claims) error {
	if !c.Role.Valid() {
		return ErrInvalidRole
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.role = c.Role
	switch c.Role {
	case domain.RoleCoach:
		s.coachID = c.UserID
		s.accountID = ""
	case domain.RoleClient:
		s.coachID = c.CoachID
		s.accountID = c.UserID
		s.activeID = c.UserID
	}
	return nil
}

// Logout drops the identity and selection; the role falls back to coach.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.role = domain.RoleCoach
	s.coachID = ""
	s.accountID = ""
	s.activeID = ""
}
