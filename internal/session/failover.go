package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// FailoverStore uses primary until it errors, then serves from fallback and
// retries primary once per recovery interval.
type FailoverStore struct {
	primary   Store
	fallback  Store
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	recovery  time.Duration
}

func NewFailoverStore(primary, fallback Store, logger *zerolog.Logger) *FailoverStore {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FailoverStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		recovery: time.Minute,
	}
}

func (s *FailoverStore) markDown(err error) {
	s.logger.Error().Err(err).Msg("Primary session store failed, falling back to memory")
	s.isDown.Store(true)
	s.lastCheck.Store(time.Now().UnixNano())
}

func (s *FailoverStore) usePrimary() bool {
	if !s.isDown.Load() {
		return true
	}
	return time.Since(time.Unix(0, s.lastCheck.Load())) > s.recovery
}

func (s *FailoverStore) Create(ctx context.Context, sess *Session) error {
	if s.usePrimary() {
		err := s.primary.Create(ctx, sess)
		if err == nil {
			s.isDown.Store(false)
			return nil
		}
		s.markDown(err)
	}
	return s.fallback.Create(ctx, sess)
}

func (s *FailoverStore) Get(ctx context.Context, id string) (*Session, error) {
	if s.usePrimary() {
		sess, err := s.primary.Get(ctx, id)
		if err == nil {
			s.isDown.Store(false)
			if sess != nil {
				return sess, nil
			}
			// sessions created during an outage live only in the fallback
			return s.fallback.Get(ctx, id)
		}
		s.markDown(err)
	}
	return s.fallback.Get(ctx, id)
}

func (s *FailoverStore) Delete(ctx context.Context, id string) error {
	_ = s.fallback.Delete(ctx, id)
	if s.usePrimary() {
		err := s.primary.Delete(ctx, id)
		if err == nil {
			return nil
		}
		s.markDown(err)
	}
	return nil
}
