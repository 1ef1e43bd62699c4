package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"basegraph.app/intake/internal/model"
	"github.com/redis/go-redis/v9"
)

type redisSessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, prefix string, ttl time.Duration) SessionStore {
	return &redisSessionStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *redisSessionStore) key(identity model.Identity) string {
	return s.prefix + ":session:" + identity.Key()
}

func (s *redisSessionStore) Get(ctx context.Context, identity model.Identity) (*model.Session, error) {
	data, err := s.client.Get(ctx, s.key(identity)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return decodeSession(data)
}

func (s *redisSessionStore) Put(ctx context.Context, session *model.Session) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(session.Identity), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (s *redisSessionStore) Remove(ctx context.Context, identity model.Identity) error {
	if err := s.client.Del(ctx, s.key(identity)).Err(); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
