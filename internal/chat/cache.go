package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cancermitr/care-platform/pkg/logging"
)

var cacheTracer = otel.Tracer("cancermitr.internal.chat.cache")

const historyCacheTTL = 24 * time.Hour

// HistoryCache keeps the recent message window for each session in Redis so
// hot sessions skip the database read. A nil cache is a valid no-op.
type HistoryCache struct {
	client *redis.Client
	logger *logging.Logger
}

// NewHistoryCache wraps a Redis client. Pass nil to disable caching.
func NewHistoryCache(client *redis.Client, logger *logging.Logger) *HistoryCache {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &HistoryCache{client: client, logger: logger}
}

func historyKey(sessionToken string) string {
	return "chat:history:" + sessionToken
}

// Load returns the cached message window for the session, or nil on a miss.
// Cache failures are logged and treated as misses.
func (c *HistoryCache) Load(ctx context.Context, sessionToken string) []Message {
	if c == nil || c.client == nil {
		return nil
	}
	ctx, span := cacheTracer.Start(ctx, "chat.cache.load")
	defer span.End()

	raw, err := c.client.Get(ctx, historyKey(sessionToken)).Bytes()
	if err == redis.Nil {
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil
	}
	if err != nil {
		span.RecordError(err)
		c.logger.Warn("history cache read failed", "session", sessionToken, "error", err)
		return nil
	}

	var messages []Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		c.logger.Warn("history cache payload corrupt, ignoring", "session", sessionToken, "error", err)
		return nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", true), attribute.Int("cache.messages", len(messages)))
	return messages
}

// Save stores the message window for the session. Failures are logged, never
// surfaced; the database remains the source of truth.
func (c *HistoryCache) Save(ctx context.Context, sessionToken string, messages []Message) {
	if c == nil || c.client == nil {
		return
	}
	ctx, span := cacheTracer.Start(ctx, "chat.cache.save")
	defer span.End()

	raw, err := json.Marshal(messages)
	if err != nil {
		c.logger.Warn("history cache encode failed", "session", sessionToken, "error", err)
		return
	}
	if err := c.client.Set(ctx, historyKey(sessionToken), raw, historyCacheTTL).Err(); err != nil {
		span.RecordError(err)
		c.logger.Warn("history cache write failed", "session", sessionToken, "error", err)
	}
}

// Invalidate drops the cached window after a write that changes history.
func (c *HistoryCache) Invalidate(ctx context.Context, sessionToken string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, historyKey(sessionToken)).Err(); err != nil {
		c.logger.Warn("history cache invalidate failed", "session", sessionToken, "error", err)
	}
}

// NewRedisClient builds a go-redis client from config values, or nil when no
// address is configured.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("chat: redis ping: %w", err)
	}
	return client, nil
}
