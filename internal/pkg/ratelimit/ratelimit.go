package ratelimit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"unionpass-api/internal/pkg/clock"

	redis "github.com/redis/go-redis/v9"
)

// Decision is the outcome of one acquire attempt
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Store admits at most one call per key per window
type Store interface {
	Acquire(ctx context.Context, key string, window time.Duration) (Decision, error)
}

// Sweeper is implemented by stores holding state that must be purged
type Sweeper interface {
	Sweep() int
}

// ==================== Memory ====================

// MemoryStore keeps the last admission per key behind a mutex
type MemoryStore struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries map[string]time.Time // key -> window end
}

func NewMemoryStore(c clock.Clock) *MemoryStore {
	if c == nil {
		c = clock.New()
	}
	return &MemoryStore{
		clock:   c,
		entries: make(map[string]time.Time),
	}
}

func (s *MemoryStore) Acquire(_ context.Context, key string, window time.Duration) (Decision, error) {
	if key == "" {
		return Decision{}, errors.New("rate limit key is empty")
	}
	if window <= 0 {
		return Decision{Allowed: true}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if until, ok := s.entries[key]; ok && now.Before(until) {
		return Decision{Allowed: false, RetryAfter: until.Sub(now)}, nil
	}
	s.entries[key] = now.Add(window)
	return Decision{Allowed: true}, nil
}

// Sweep drops keys whose window has closed and returns how many were removed
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	removed := 0
	for key, until := range s.entries {
		if !now.Before(until) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// ==================== Redis ====================

const keyPrefix = "unionpass:ratelimit:"

// RedisStore uses SET NX PX so admission is atomic across instances.
// Keys expire on their own, so it needs no sweeping.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Acquire(ctx context.Context, key string, window time.Duration) (Decision, error) {
	if s == nil || s.client == nil {
		return Decision{}, errors.New("rate limit client not configured")
	}
	if strings.TrimSpace(key) == "" {
		return Decision{}, errors.New("rate limit key is empty")
	}
	if window <= 0 {
		return Decision{Allowed: true}, nil
	}

	fullKey := keyPrefix + key
	ok, err := s.client.SetNX(ctx, fullKey, time.Now().UnixMilli(), window).Result()
	if err != nil {
		return Decision{}, err
	}
	if ok {
		return Decision{Allowed: true}, nil
	}

	ttl, err := s.client.PTTL(ctx, fullKey).Result()
	if err != nil {
		return Decision{}, err
	}
	if ttl < 0 {
		// key vanished or lost its expiry between the two calls
		ttl = window
	}
	return Decision{Allowed: false, RetryAfter: ttl}, nil
}
