package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fdg312/nutricart/internal/storage"
	"github.com/google/uuid"
)

// SessionsMemoryStorage — in-memory storage для сессий
type SessionsMemoryStorage struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]storage.Session
}

func NewSessionsMemoryStorage() *SessionsMemoryStorage {
	return &SessionsMemoryStorage{
		sessions: make(map[uuid.UUID]storage.Session),
	}
}

func (s *SessionsMemoryStorage) CreateSession(ctx context.Context, session *storage.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}

	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now

	s.sessions[session.ID] = cloneSession(*session)
	return nil
}

func (s *SessionsMemoryStorage) GetSession(ctx context.Context, id uuid.UUID) (*storage.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	copied := cloneSession(session)
	return &copied, nil
}

func (s *SessionsMemoryStorage) UpdateSession(ctx context.Context, session *storage.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sessions[session.ID]
	if !ok {
		return storage.ErrNotFound
	}

	session.CreatedAt = existing.CreatedAt
	session.UpdatedAt = time.Now().UTC()
	s.sessions[session.ID] = cloneSession(*session)
	return nil
}

func (s *SessionsMemoryStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return storage.ErrNotFound
	}

	delete(s.sessions, id)
	return nil
}

func cloneSession(s storage.Session) storage.Session {
	if s.Allergies != nil {
		s.Allergies = append([]string(nil), s.Allergies...)
	}
	return s
}
