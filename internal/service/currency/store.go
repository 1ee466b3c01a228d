package currency

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/roamsim/storefront-api/pkg/errors"
)

// SelectionStore persists a client's chosen currency code durably across
// sessions until cleared.
type SelectionStore interface {
	Get(ctx context.Context, clientID string) (string, error)
	Set(ctx context.Context, clientID, code string) error
}

const selectionTTL = 365 * 24 * time.Hour

type redisStore struct {
	client *redis.Client
}

// NewRedisStore builds a redis-backed selection store.
func NewRedisStore(url string) (SelectionStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, apperrors.Configuration("invalid redis URL")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, apperrors.Network("redis connect", err)
	}
	return &redisStore{client: client}, nil
}

func (s *redisStore) key(clientID string) string {
	return "currency:" + clientID
}

func (s *redisStore) Get(ctx context.Context, clientID string) (string, error) {
	code, err := s.client.Get(ctx, s.key(clientID)).Result()
	if err == redis.Nil {
		return "", apperrors.NotFound("currency selection", err)
	}
	if err != nil {
		return "", apperrors.Network("redis get", err)
	}
	return code, nil
}

func (s *redisStore) Set(ctx context.Context, clientID, code string) error {
	if err := s.client.Set(ctx, s.key(clientID), code, selectionTTL).Err(); err != nil {
		return apperrors.Network("redis set", err)
	}
	return nil
}

// MemoryStore is the in-process fallback used when redis is not
// configured, and in tests.
type MemoryStore struct {
	mu         sync.RWMutex
	selections map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{selections: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, clientID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code, ok := s.selections[clientID]
	if !ok {
		return "", apperrors.NotFound("currency selection", nil)
	}
	return code, nil
}

func (s *MemoryStore) Set(_ context.Context, clientID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selections[clientID] = code
	return nil
}
