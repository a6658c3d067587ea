package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store persists carts for the length of a session
type Store interface {
	Get(ctx context.Context, subAdminID uuid.UUID) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, subAdminID uuid.UUID) error
}

// NewStore returns a Redis store, or an in-memory one when rdb is nil
func NewStore(rdb *redis.Client, ttl time.Duration) Store {
	if rdb == nil {
		return NewMemoryStore(ttl)
	}
	return NewRedisStore(rdb, ttl)
}

const keyPrefix = "cart:"

// RedisStore keeps each cart as one JSON value that expires after ttl of inactivity.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, subAdminID uuid.UUID) (*Cart, error) {
	raw, err := s.rdb.Get(ctx, keyPrefix+subAdminID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return New(subAdminID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get cart: %v", ErrStore, err)
	}

	var c Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: decode cart: %v", ErrStore, err)
	}
	if c.Lines == nil {
		c.Lines = []Line{}
	}
	return &c, nil
}

func (s *RedisStore) Save(ctx context.Context, c *Cart) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("%w: encode cart: %v", ErrStore, err)
	}
	if err := s.rdb.Set(ctx, keyPrefix+c.SubAdminID.String(), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: save cart: %v", ErrStore, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, subAdminID uuid.UUID) error {
	if err := s.rdb.Del(ctx, keyPrefix+subAdminID.String()).Err(); err != nil {
		return fmt.Errorf("%w: delete cart: %v", ErrStore, err)
	}
	return nil
}

type memoryEntry struct {
	cart      Cart
	expiresAt time.Time
}

// MemoryStore is the single-process fallback used when Redis is not configured
type MemoryStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	carts map[uuid.UUID]memoryEntry
	now   func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, carts: make(map[uuid.UUID]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, subAdminID uuid.UUID) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.carts[subAdminID]
	if !ok || (s.ttl > 0 && s.now().After(e.expiresAt)) {
		delete(s.carts, subAdminID)
		return New(subAdminID), nil
	}
	c := e.cart
	c.Lines = append([]Line{}, e.cart.Lines...)
	return &c, nil
}

func (s *MemoryStore) Save(_ context.Context, c *Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *c
	stored.Lines = append([]Line{}, c.Lines...)
	s.carts[c.SubAdminID] = memoryEntry{cart: stored, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, subAdminID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, subAdminID)
	return nil
}
