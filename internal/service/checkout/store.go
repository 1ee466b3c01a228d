package checkout

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roamsim/storefront-api/internal/model"
	apperrors "github.com/roamsim/storefront-api/pkg/errors"
)

// SessionStore holds checkout sessions for their TTL. Sessions are
// ephemeral by design; losing one only sends the buyer back to step 1.
type SessionStore interface {
	Get(ctx context.Context, id string) (*model.CheckoutSession, error)
	Save(ctx context.Context, session *model.CheckoutSession) error
}

type redisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore builds a redis-backed session store.
func NewRedisSessionStore(url string, ttl time.Duration) (SessionStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, apperrors.Configuration("invalid redis URL")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, apperrors.Network("redis connect", err)
	}
	return &redisSessionStore{client: client, ttl: ttl}, nil
}

func sessionKey(id string) string {
	return "checkout:" + id
}

func (s *redisSessionStore) Get(ctx context.Context, id string) (*model.CheckoutSession, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, apperrors.NotFound("checkout session", err)
	}
	if err != nil {
		return nil, apperrors.Network("redis get", err)
	}
	var session model.CheckoutSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, apperrors.Malformed("checkout session", err)
	}
	return &session, nil
}

func (s *redisSessionStore) Save(ctx context.Context, session *model.CheckoutSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return apperrors.Internal(err)
	}
	if err := s.client.Set(ctx, sessionKey(session.ID), data, s.ttl).Err(); err != nil {
		return apperrors.Network("redis set", err)
	}
	return nil
}

// MemorySessionStore is the in-process fallback used when redis is not
// configured, and in tests. TTL enforcement is best-effort on read.
type MemorySessionStore struct {
	mu       sync.RWMutex
	ttl      time.Duration
	sessions map[string]memoryEntry
}

type memoryEntry struct {
	session model.CheckoutSession
	savedAt time.Time
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		ttl:      ttl,
		sessions: make(map[string]memoryEntry),
	}
}

func (s *MemorySessionStore) Get(_ context.Context, id string) (*model.CheckoutSession, error) {
	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || (s.ttl > 0 && time.Since(entry.savedAt) > s.ttl) {
		return nil, apperrors.NotFound("checkout session", nil)
	}
	session := entry.session
	return &session, nil
}

func (s *MemorySessionStore) Save(_ context.Context, session *model.CheckoutSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = memoryEntry{session: *session, savedAt: time.Now()}
	return nil
}
