package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores validated oracle answers by request key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisConfig configures the Redis-backed cache.
type RedisConfig struct {
	Addr     string // e.g. localhost:6379
	Password string
	DB       int
	Prefix   string // key prefix, default "licitaciones:oracle:"
}

// RedisCache is a Cache on plain Redis strings.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects and verifies the server with a ping.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "licitaciones:oracle:"
	}
	return &RedisCache{client: client, prefix: cfg.Prefix}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+key, value, ttl).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

type cached struct {
	next   Oracle
	cache  Cache
	ttl    time.Duration
	model  string
	logger *slog.Logger
}

// NewCachedOracle answers repeated requests from cache. Cache failures are
// logged and fall through to o; only successful answers are stored.
func NewCachedOracle(o Oracle, cache Cache, model string, ttl time.Duration, logger *slog.Logger) Oracle {
	if cache == nil {
		return o
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &cached{next: o, cache: cache, ttl: ttl, model: model, logger: logger}
}

func (c *cached) ExtractNotice(ctx context.Context, req NoticeRequest) (NoticeFields, []byte, error) {
	key := CacheKey(c.model, req)

	if b, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn("llm.cache.get_failed", "error", err)
	} else if ok {
		var out NoticeFields
		if err := json.Unmarshal(b, &out); err == nil {
			c.logger.Debug("llm.cache.hit", "key", key)
			return out, b, nil
		}
		c.logger.Warn("llm.cache.corrupt_entry", "key", key)
	}

	fields, raw, err := c.next.ExtractNotice(ctx, req)
	if err != nil {
		return fields, raw, err
	}
	doc := raw
	if len(doc) == 0 {
		if doc, err = json.Marshal(fields); err != nil {
			return fields, raw, nil
		}
	}
	if err := c.cache.Set(ctx, key, doc, c.ttl); err != nil {
		c.logger.Warn("llm.cache.set_failed", "error", err)
	}
	return fields, raw, nil
}

// CacheKey is the sha256 of everything that shapes the answer.
func CacheKey(model string, req NoticeRequest) string {
	h := sha256.New()
	for _, part := range []string{model, req.Language, req.Source, strings.Join(req.Fields, ","), req.Text} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
