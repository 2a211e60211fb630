package service

import (
	"context"
	"sync"

	"github.com/layer-3/carbx/core"
	"github.com/layer-3/carbx/ports"
)

// SessionStore exposes the cached backend session and the flags derived from it
type SessionStore struct {
	store   ports.QueryStore
	backend ports.Backend

	mu       sync.Mutex
	inflight int
	authErr  error
}

// NewSessionStore creates a session store over the query cache
func NewSessionStore(store ports.QueryStore, backend ports.Backend) *SessionStore {
	return &SessionStore{
		store:   store,
		backend: backend,
	}
}

// Session returns the cached session, nil when there is none
func (s *SessionStore) Session() *core.Session {
	entry, ok := s.store.Get(ports.KeyAuthMe)
	if !ok {
		return nil
	}
	session, _ := entry.Data.(*core.Session)
	return session
}

// HasBackendSession reports whether the last successful /auth/me fetch returned a session
func (s *SessionStore) HasBackendSession() bool {
	entry, ok := s.store.Get(ports.KeyAuthMe)
	if !ok || entry.Status != ports.QuerySuccess {
		return false
	}
	session, _ := entry.Data.(*core.Session)
	return session != nil
}

// IsAuthLoading reports whether a session fetch, nonce request or verification is in flight
func (s *SessionStore) IsAuthLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// AuthError returns the error of the last failed verification, nil after a successful one
func (s *SessionStore) AuthError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authErr
}

// Refresh refetches /auth/me through the cache
func (s *SessionStore) Refresh(ctx context.Context) (*core.Session, error) {
	done := s.track()
	defer done()

	data, err := s.store.Fetch(ctx, ports.KeyAuthMe, func(ctx context.Context) (any, error) {
		return s.backend.FetchAuthMe(ctx)
	})
	if err != nil {
		return nil, err
	}
	session, _ := data.(*core.Session)
	return session, nil
}

// Put stores session as the current one
func (s *SessionStore) Put(session *core.Session) {
	s.store.Set(ports.KeyAuthMe, session)
}

// Clear marks the session absent
func (s *SessionStore) Clear() {
	s.store.Set(ports.KeyAuthMe, (*core.Session)(nil))
}

func (s *SessionStore) track() func() {
	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		s.inflight--
		s.mu.Unlock()
	}
}

func (s *SessionStore) setAuthError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authErr = err
}
