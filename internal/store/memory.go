package store

import (
	"context"
	"fmt"
	"time"

	"basegraph.app/intake/internal/model"
	"github.com/patrickmn/go-cache"
)

// memorySessionStore keeps encoded sessions in process memory. Entries
// expire ttl after their last write. Storing bytes rather than pointers means
// a caller mutating a loaded session never touches the stored copy.
type memorySessionStore struct {
	cache *cache.Cache
}

func NewMemorySessionStore(ttl time.Duration) SessionStore {
	cleanup := ttl / 2
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &memorySessionStore{
		cache: cache.New(ttl, cleanup),
	}
}

func (s *memorySessionStore) Get(_ context.Context, identity model.Identity) (*model.Session, error) {
	x, found := s.cache.Get(identity.Key())
	if !found {
		return nil, ErrSessionNotFound
	}
	data, ok := x.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected entry type %T", ErrSessionCorrupt, x)
	}
	return decodeSession(data)
}

func (s *memorySessionStore) Put(_ context.Context, session *model.Session) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}
	s.cache.Set(session.Identity.Key(), data, cache.DefaultExpiration)
	return nil
}

func (s *memorySessionStore) Remove(_ context.Context, identity model.Identity) error {
	s.cache.Delete(identity.Key())
	return nil
}
