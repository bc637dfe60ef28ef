package session

import (
	"context"
	"sync"
	"time"
)

type MemoryStore struct {
	sessions sync.Map
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Create(ctx context.Context, sess *Session) error {
	s.sessions.Store(sess.ID, sess)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	val, ok := s.sessions.Load(id)
	if !ok {
		return nil, nil
	}
	sess := val.(*Session)
	if sess.Expired(time.Now()) {
		s.sessions.Delete(id)
		return nil, nil
	}
	return sess, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.sessions.Delete(id)
	return nil
}
