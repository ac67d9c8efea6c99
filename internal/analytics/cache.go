package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheVersionKey = "pagora:kpi:version"
	// BumpChannel carries the new cache version after every Bump.
	BumpChannel = "pagora.kpi.bump"
)

// Loader computes a value on a cache miss. Returning store=false hands the
// value back without writing it, which keeps degraded results out of Redis.
type Loader func(ctx context.Context) (value any, store bool, err error)

// Cache wraps Redis with versioned keys. A nil Cache or nil client computes
// every request.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// Version returns the current cache version, initialising it when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) || (err == nil && ver <= 0) {
		if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, fmt.Errorf("analytics: cache version: %w", err)
		}
		return c.client.Get(ctx, cacheVersionKey).Int64()
	}
	if err != nil {
		return 0, fmt.Errorf("analytics: cache version: %w", err)
	}
	return ver, nil
}

// BuildKey joins parts and appends the current version.
func (c *Cache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	joined := strings.Join(parts, ":")
	if !c.enabled() {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return joined + ":v" + strconv.FormatInt(ver, 10), nil
}

// FetchJSON decodes the cached value at key into dest, or runs loader and
// stores its JSON encoding with the cache TTL.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader Loader) error {
	if loader == nil {
		return errors.New("analytics: cache: loader required")
	}
	if c.enabled() {
		payload, err := c.client.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			return json.Unmarshal(payload, dest)
		case !errors.Is(err, redis.Nil):
			return fmt.Errorf("analytics: cache get: %w", err)
		}
	}
	value, store, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("analytics: cache encode: %w", err)
	}
	if store && c.enabled() {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			return fmt.Errorf("analytics: cache set: %w", err)
		}
	}
	return json.Unmarshal(raw, dest)
}

// Bump invalidates every cached KPI set by incrementing the version and
// publishes the new version on BumpChannel.
func (c *Cache) Bump(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return 0, fmt.Errorf("analytics: cache bump: %w", err)
	}
	if err := c.client.Publish(ctx, BumpChannel, strconv.FormatInt(ver, 10)).Err(); err != nil {
		return ver, fmt.Errorf("analytics: cache publish: %w", err)
	}
	return ver, nil
}

// ListenForInvalidation calls onBump with the version announced by every
// Bump, from this or another process, until ctx is done.
func (c *Cache) ListenForInvalidation(ctx context.Context, onBump func(version int64)) error {
	if !c.enabled() {
		return nil
	}
	pubsub := c.client.Subscribe(ctx, BumpChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("analytics: cache subscribe: %w", err)
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ver, err := strconv.ParseInt(msg.Payload, 10, 64)
				if err != nil {
					continue
				}
				if onBump != nil {
					onBump(ver)
				}
			}
		}
	}()
	return nil
}

func keyKPI(spec FilterSpec, now time.Time) string {
	return strings.Join([]string{"pagora", "kpi", now.Format("2006-01-02"), spec.CacheKey()}, ":")
}
