package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"call-intelligence/internal/calls"
	"call-intelligence/pkg/logger"
)

const defaultCacheTTL = 30 * time.Second

// Cache serves dashboards from Redis and recomputes on miss. It observes
// call writes to drop stale snapshots.
type Cache struct {
	svc    *Service
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
}

func NewCache(svc *Service, rdb redis.Cmdable, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{svc: svc, rdb: rdb, ttl: ttl, prefix: "dashboard:"}
}

func (c *Cache) key(workspaceID string) string { return c.prefix + workspaceID }

// Dashboard returns a cached snapshot when present. Redis errors fall
// through to a fresh computation.
func (c *Cache) Dashboard(ctx context.Context, workspaceID string) (DashboardMetrics, error) {
	if workspaceID == "" {
		return DashboardMetrics{}, ErrInvalidRequest
	}
	log := logger.From(ctx)

	raw, err := c.rdb.Get(ctx, c.key(workspaceID)).Bytes()
	switch {
	case err == nil:
		var m DashboardMetrics
		if jerr := json.Unmarshal(raw, &m); jerr == nil {
			return m, nil
		}
		log.Warn("dashboard cache entry unreadable", "workspace_id", workspaceID)
	case !errors.Is(err, redis.Nil):
		log.Warn("dashboard cache get failed", "err", err)
	}

	m, err := c.svc.Dashboard(ctx, workspaceID)
	if err != nil {
		return DashboardMetrics{}, err
	}
	if b, err := json.Marshal(m); err == nil {
		if err := c.rdb.Set(ctx, c.key(workspaceID), b, c.ttl).Err(); err != nil {
			log.Warn("dashboard cache set failed", "err", err)
		}
	}
	return m, nil
}

func (c *Cache) Invalidate(ctx context.Context, workspaceID string) {
	if err := c.rdb.Del(ctx, c.key(workspaceID)).Err(); err != nil {
		logger.From(ctx).Warn("dashboard cache invalidate failed", "workspace_id", workspaceID, "err", err)
	}
}

func (c *Cache) CallRecorded(ctx context.Context, call calls.Call) {
	c.Invalidate(ctx, call.WorkspaceID)
}

func (c *Cache) StatusChanged(ctx context.Context, call calls.Call, _ calls.Status) {
	c.Invalidate(ctx, call.WorkspaceID)
}
