package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
)

// DefaultCacheTTL is used when a configuration omits idempotency.cache_ttl.
const DefaultCacheTTL = 300 * time.Second

// CachedResult is what the check cache stores per key.
type CachedResult struct {
	Holds     bool      `json:"holds"`
	CheckedAt time.Time `json:"checked_at"`
}

// Cache stores idempotency-probe results keyed by a hash of
// (check_type, target, probe_command), so repeated probes against the same
// precondition within the TTL window skip the remote round trip.
type Cache interface {
	Get(ctx context.Context, check core.IdempotencyCheck) (CachedResult, bool, error)
	Set(ctx context.Context, check core.IdempotencyCheck, result CachedResult, ttl time.Duration) error
	Close() error
}

// CacheKey hashes a check the same way regardless of backend, so
// MemoryCache and RedisCache agree on what "the same check" means.
func CacheKey(check core.IdempotencyCheck) string {
	h := sha256.New()
	h.Write([]byte(string(check.CheckType)))
	h.Write([]byte{0})
	h.Write([]byte(check.Target))
	h.Write([]byte{0})
	h.Write([]byte(check.ProbeCommand))
	return hex.EncodeToString(h.Sum(nil))
}

// MemoryCache is an in-process Cache backed by core.Memory, used when
// idempotency.backend=memory (the default) or in tests.
type MemoryCache struct {
	store core.Memory
	mu    sync.Mutex
}

// NewMemoryCache wraps an in-memory store. Pass nil to get a fresh one.
func NewMemoryCache(store core.Memory) *MemoryCache {
	if store == nil {
		store = core.NewInMemoryStore()
	}
	return &MemoryCache{store: store}
}

func (c *MemoryCache) Get(ctx context.Context, check core.IdempotencyCheck) (CachedResult, bool, error) {
	raw, ok, err := c.store.Get(ctx, CacheKey(check))
	if err != nil || !ok {
		return CachedResult{}, false, err
	}
	var result CachedResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return CachedResult{}, false, fmt.Errorf("decode cached idempotency result: %w", err)
	}
	return result, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, check core.IdempotencyCheck, result CachedResult, ttl time.Duration) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode idempotency result: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return c.store.Set(ctx, CacheKey(check), string(raw), ttl)
}

func (c *MemoryCache) Close() error { return nil }

// RedisCache is a go-redis-backed Cache, namespaced and isolated to its own
// DB the way the teacher's RedisClient isolates framework concerns.
type RedisCache struct {
	client    *redis.Client
	namespace string
	logger    core.Logger
}

// RedisCacheOptions configures a RedisCache.
type RedisCacheOptions struct {
	RedisURL  string
	Namespace string
	Logger    core.Logger
}

// NewRedisCache dials Redis on core.RedisDBIdempotencyCache and verifies
// connectivity with a bounded Ping before returning.
func NewRedisCache(opts RedisCacheOptions) (*RedisCache, error) {
	if opts.RedisURL == "" {
		return nil, core.NewFrameworkError("idempotency.NewRedisCache", "config", core.ErrMissingConfig)
	}
	redisOpt, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		return nil, core.NewFrameworkError("idempotency.NewRedisCache", "config", fmt.Errorf("%w: %v", core.ErrInvalidConfig, err))
	}
	redisOpt.DB = core.RedisDBIdempotencyCache
	client := redis.NewClient(redisOpt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, core.NewFrameworkError("idempotency.NewRedisCache", "transport", fmt.Errorf("%w: %v", core.ErrConnectionFailed, err))
	}

	namespace := opts.Namespace
	if namespace == "" {
		namespace = "sshagent:idempotency"
	}
	logger := opts.Logger
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	logger.Info("idempotency redis cache connected", map[string]interface{}{
		"db":        core.RedisDBIdempotencyCache,
		"namespace": namespace,
	})

	return &RedisCache{client: client, namespace: namespace, logger: logger}, nil
}

func (r *RedisCache) formatKey(key string) string {
	return fmt.Sprintf("%s:%s", r.namespace, key)
}

func (r *RedisCache) Get(ctx context.Context, check core.IdempotencyCheck) (CachedResult, bool, error) {
	raw, err := r.client.Get(ctx, r.formatKey(CacheKey(check))).Result()
	if err == redis.Nil {
		return CachedResult{}, false, nil
	}
	if err != nil {
		return CachedResult{}, false, fmt.Errorf("idempotency cache get: %w", err)
	}
	var result CachedResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return CachedResult{}, false, fmt.Errorf("decode cached idempotency result: %w", err)
	}
	return result, true, nil
}

func (r *RedisCache) Set(ctx context.Context, check core.IdempotencyCheck, result CachedResult, ttl time.Duration) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode idempotency result: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return r.client.SetEX(ctx, r.formatKey(CacheKey(check)), raw, ttl).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

// NewCache selects a Cache implementation per configuration.
func NewCache(cfg core.IdempotencyConfig, logger core.Logger) (Cache, error) {
	switch cfg.Backend {
	case "redis":
		return NewRedisCache(RedisCacheOptions{RedisURL: cfg.RedisURL, Logger: logger})
	case "memory", "":
		return NewMemoryCache(nil), nil
	default:
		return nil, core.NewFrameworkError("idempotency.NewCache", "config", fmt.Errorf("%w: unknown backend %q", core.ErrInvalidConfig, cfg.Backend))
	}
}
