package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/messengerflow/inbox-service/internal/domain"
	apperrors "github.com/messengerflow/inbox-service/pkg/util"
)

const keyPrefix = "messengerflow:session:"

// Store persists active sessions. The full agent record is stored
// JSON-encoded per session, matching the legacy portal's session payload.
type Store interface {
	Save(ctx context.Context, sessionID string, agent domain.Agent, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (domain.Agent, error)
	Delete(ctx context.Context, sessionID string) error
	Count(ctx context.Context) (int, error)
}

// RedisStore backs sessions with Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps the client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Save writes the session record with the given lifetime.
func (s *RedisStore) Save(ctx context.Context, sessionID string, agent domain.Agent, ttl time.Duration) error {
	payload, err := json.Marshal(agent)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyPrefix+sessionID, payload, ttl).Err()
}

// Get loads the agent bound to a session id.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (domain.Agent, error) {
	payload, err := s.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Agent{}, apperrors.NewUnauthorized("session expired or revoked")
	}
	if err != nil {
		return domain.Agent{}, err
	}
	var agent domain.Agent
	if err := json.Unmarshal(payload, &agent); err != nil {
		return domain.Agent{}, err
	}
	return agent, nil
}

// Delete revokes a session.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, keyPrefix+sessionID).Err()
}

// Count reports the number of active sessions.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	var total int
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		total++
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	return total, nil
}

// MemoryStore is an in-process Store used in tests and when Redis is not
// configured.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
}

type memorySession struct {
	agent     domain.Agent
	expiresAt time.Time
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memorySession)}
}

// Save writes the session record.
func (s *MemoryStore) Save(_ context.Context, sessionID string, agent domain.Agent, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = memorySession{agent: agent, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Get loads the agent bound to a session id.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (domain.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || time.Now().After(sess.expiresAt) {
		delete(s.sessions, sessionID)
		return domain.Agent{}, apperrors.NewUnauthorized("session expired or revoked")
	}
	return sess.agent, nil
}

// Delete revokes a session.
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Count reports the number of live sessions.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	total := 0
	for _, sess := range s.sessions {
		if now.Before(sess.expiresAt) {
			total++
		}
	}
	return total, nil
}
