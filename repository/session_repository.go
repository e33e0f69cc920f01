package repository

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"shortreels-web/models"
)

// SessionRepository persists orchestration sessions between page loads and
// payment redirects. Get returns (nil, nil) when no session exists.
type SessionRepository interface {
	Get(ctx context.Context, id string) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	Delete(ctx context.Context, id string) error
}

type RedisSessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionRepository(client *redis.Client, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{
		client: client,
		ttl:    ttl,
	}
}

func sessionKey(id string) string {
	return "session:sr:" + id
}

func (r *RedisSessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var s models.Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RedisSessionRepository) Save(ctx context.Context, s *models.Session) error {
	s.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, sessionKey(s.ID), data, r.ttl).Err()
}

func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, sessionKey(id)).Err()
}

// MemorySessionRepository keeps sessions in-process. Used when REDIS_URL is
// not configured and in tests. Values are stored encoded so callers get the
// same copy semantics as the redis implementation.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string][]byte)}
}

func (r *MemorySessionRepository) Get(_ context.Context, id string) (*models.Session, error) {
	r.mu.RLock()
	data, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *MemorySessionRepository) Save(_ context.Context, s *models.Session) error {
	s.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.sessions[s.ID] = data
	r.mu.Unlock()
	return nil
}

func (r *MemorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	return nil
}
