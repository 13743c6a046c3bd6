package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	redisclient "github.com/dwayee/storefront/pkg/redis"
)

// Store persists the session of one device across restarts.
type Store interface {
	// Load returns nil without error when nothing is stored.
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
}

type kvStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	SessionKey(device string) string
}

// RedisStore keeps the session JSON under dw:session:<device>.
type RedisStore struct {
	kv    kvStore
	keyer sessionKeyer
	key   string
	ttl   time.Duration
}

// NewRedisStore constructs a store bound to a single device key.
func NewRedisStore(client *redisclient.Client, device string, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return newRedisStore(client, client, device, ttl)
}

func newRedisStore(kv kvStore, keyer sessionKeyer, device string, ttl time.Duration) (*RedisStore, error) {
	device = strings.TrimSpace(device)
	if device == "" {
		return nil, fmt.Errorf("session device is required")
	}
	if ttl < 0 {
		return nil, fmt.Errorf("session ttl must not be negative")
	}
	return &RedisStore{
		kv:    kv,
		keyer: keyer,
		key:   keyer.SessionKey(device),
		ttl:   ttl,
	}, nil
}

func (r *RedisStore) Load(ctx context.Context) (*Session, error) {
	raw, err := r.kv.Get(ctx, r.key)
	if err != nil {
		if errors.Is(err, redisclient.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("decode stored session: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	if !s.Valid() {
		return fmt.Errorf("refusing to store a session without token")
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.kv.Set(ctx, r.key, string(payload), r.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.kv.Del(ctx, r.key); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	current *Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	if !s.Valid() {
		return fmt.Errorf("refusing to store a session without token")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = s.Clone()
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	return nil
}
