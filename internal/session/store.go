// Package session holds per-login authentication state behind opaque tokens.
// The store is the serialization point between the HTTP layer and the login
// coordinator.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"twofa-service/internal/domain"
	"twofa-service/pkg/cache"
	"twofa-service/pkg/xerrors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Store interface {
	Create(ctx context.Context) (*domain.Session, error)
	Get(ctx context.Context, token string) (*domain.Session, error)
	Save(ctx context.Context, sess *domain.Session) error
	Delete(ctx context.Context, token string) error
}

const namespace = "session"

// RedisStore keeps sessions in Redis as JSON under uuid tokens.
type RedisStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewRedisStore(c *cache.Cache, ttl time.Duration) *RedisStore {
	return &RedisStore{cache: c, ttl: ttl}
}

func (s *RedisStore) Create(ctx context.Context) (*domain.Session, error) {
	sess := &domain.Session{Token: uuid.New().String()}
	if err := s.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (*domain.Session, error) {
	raw, err := s.cache.Get(ctx, namespace, token)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, xerrors.ErrSessionNotFound
		}
		return nil, err
	}

	var sess domain.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, err
	}
	sess.Token = token
	return &sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess *domain.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, namespace, sess.Token, string(raw), s.ttl)
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	return s.cache.Delete(ctx, namespace, token)
}

// MemoryStore is a process-local store for tests and single-node dev runs.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]domain.Session)}
}

func (s *MemoryStore) Create(_ context.Context) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := domain.Session{Token: uuid.New().String()}
	s.sessions[sess.Token] = sess
	out := sess
	return &out, nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil, xerrors.ErrSessionNotFound
	}
	out := sess
	return &out, nil
}

func (s *MemoryStore) Save(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.Token] = *sess
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, token)
	return nil
}
