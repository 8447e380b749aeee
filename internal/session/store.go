// Package session holds the process-wide authentication state. A single
// Store is constructed at startup and passed by reference to every
// consumer; the transport reads it before each outgoing request so it
// always observes the latest tokens, never a snapshot.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"bazario-admin/internal/domain"
	"bazario-admin/internal/storage"
)

// Watcher is invoked synchronously after every session mutation.
type Watcher func(s *domain.Session)

type Store struct {
	mu       sync.RWMutex
	current  domain.Session
	store    storage.Store
	watchers map[int]Watcher
	nextID   int
}

// NewStore creates a session store backed by st. A previously persisted
// session is restored if present; a corrupt record is discarded rather
// than failing startup.
func NewStore(st storage.Store) (*Store, error) {
	s := &Store{
		store:    st,
		watchers: make(map[int]Watcher),
	}

	raw, err := st.Get(storage.KeyAuth)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}

	if err := json.Unmarshal(raw, &s.current); err != nil {
		_ = st.Delete(storage.KeyAuth)
		s.current = domain.Session{}
	}
	return s, nil
}

// Current returns a copy of the live session.
func (s *Store) Current() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// IsLogged reports whether a signed-in session exists.
func (s *Store) IsLogged() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.IsLogged
}

// AccessToken returns the live access token, or empty when signed out.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Tokens.AccessToken
}

// UserID returns the signed-in user's id, or empty when signed out.
// Safe to call on a sessionless store.
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current.User == nil {
		return ""
	}
	return s.current.User.ID
}

// RefreshToken returns the live refresh token, or empty when signed out.
func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Tokens.RefreshToken
}

// SignIn replaces the session after a successful authentication.
func (s *Store) SignIn(user *domain.User, tokens domain.Tokens) error {
	return s.set(domain.Session{User: user, Tokens: tokens, IsLogged: true})
}

// SetTokens swaps in a refreshed token pair, keeping the signed-in user.
func (s *Store) SetTokens(tokens domain.Tokens) error {
	s.mu.RLock()
	next := s.current
	s.mu.RUnlock()

	next.Tokens = tokens
	return s.set(next)
}

// Clear signs the session out.
func (s *Store) Clear() error {
	return s.set(domain.Session{})
}

// Watch registers a watcher notified synchronously on every mutation.
// The returned function unregisters it.
func (s *Store) Watch(w Watcher) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = w
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

func (s *Store) set(next domain.Session) error {
	s.mu.Lock()
	s.current = next
	watchers := make([]Watcher, 0, len(s.watchers))
	for _, w := range s.watchers {
		watchers = append(watchers, w)
	}
	s.mu.Unlock()

	var persistErr error
	if next.IsLogged {
		raw, err := json.Marshal(next)
		if err != nil {
			persistErr = fmt.Errorf("failed to marshal session: %w", err)
		} else if err := s.store.Set(storage.KeyAuth, raw); err != nil {
			persistErr = fmt.Errorf("failed to persist session: %w", err)
		}
	} else {
		if err := s.store.Delete(storage.KeyAuth); err != nil {
			persistErr = fmt.Errorf("failed to clear persisted session: %w", err)
		}
	}

	snapshot := next
	for _, w := range watchers {
		w(&snapshot)
	}
	return persistErr
}
