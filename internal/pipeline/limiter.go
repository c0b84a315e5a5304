package pipeline

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"call-intelligence/pkg/logger"
	"call-intelligence/pkg/utils"
)

// Limiter admits a call into the pipeline. The returned release func must
// be called exactly once when the call finishes.
type Limiter interface {
	Acquire(ctx context.Context, workspaceID string) (release func(), err error)
}

const (
	defaultInflightTTL = 10 * time.Minute
	releaseTimeout     = 2 * time.Second
)

// RedisLimiter caps in-flight pipelines per workspace across every API and
// batch process sharing the Redis instance. Slots expire after ttl so a
// crashed process cannot hold them forever.
type RedisLimiter struct {
	rdb    *redis.Client
	limit  int
	ttl    time.Duration
	prefix string
}

func NewRedisLimiter(rdb *redis.Client, limit int, ttl time.Duration) *RedisLimiter {
	if ttl <= 0 {
		ttl = defaultInflightTTL
	}
	if limit <= 0 {
		limit = defaultBatchParallelism
	}
	return &RedisLimiter{rdb: rdb, limit: limit, ttl: ttl, prefix: "pipeline:inflight:"}
}

// Acquire admits the call when Redis is unreachable.
func (l *RedisLimiter) Acquire(ctx context.Context, workspaceID string) (func(), error) {
	key := l.prefix + workspaceID
	ok, err := utils.AcquireConcurrencyCap(ctx, l.rdb, key, l.limit, l.ttl)
	if err != nil {
		logger.From(ctx).Warn("concurrency cap unavailable, admitting call", "workspace_id", workspaceID, "err", err)
		return func() {}, nil
	}
	if !ok {
		return nil, ErrBusy
	}
	return func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := utils.ReleaseConcurrencyCap(rctx, l.rdb, key); err != nil {
			logger.From(ctx).Warn("concurrency cap release failed", "workspace_id", workspaceID, "err", err)
		}
	}, nil
}

// noLimit admits everything.
type noLimit struct{}

func (noLimit) Acquire(context.Context, string) (func(), error) { return func() {}, nil }
