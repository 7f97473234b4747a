package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/config"
	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	dashboardKeyPrefix = "forecast:dashboard"
	scanBatchSize      = 100
)

// DashboardCache memoizes assembled dashboards per parameter set. Runs
// without a seed embed fresh randomness, so cache entries are scoped to
// the exact parameter hash and expire on a short TTL rather than being
// invalidated on writes.
type DashboardCache interface {
	GetDashboard(ctx context.Context, params domain.RunParams) (*domain.ForecastDashboard, bool, error)
	SetDashboard(ctx context.Context, params domain.RunParams, dashboard *domain.ForecastDashboard) error
	InvalidateAll(ctx context.Context) error
}

type redisDashboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopDashboardCache struct{}

func NewDashboardCache(cfg config.CacheConfig) (DashboardCache, error) {
	if !cfg.Enabled {
		return &noopDashboardCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisDashboardCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopDashboardCache() DashboardCache {
	return &noopDashboardCache{}
}

func (c *redisDashboardCache) GetDashboard(ctx context.Context, params domain.RunParams) (*domain.ForecastDashboard, bool, error) {
	key := buildDashboardKey(params)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var dashboard domain.ForecastDashboard
	if err := json.Unmarshal(payload, &dashboard); err != nil {
		return nil, false, fmt.Errorf("decode dashboard cache: %w", err)
	}

	return &dashboard, true, nil
}

func (c *redisDashboardCache) SetDashboard(ctx context.Context, params domain.RunParams, dashboard *domain.ForecastDashboard) error {
	key := buildDashboardKey(params)
	payload, err := json.Marshal(dashboard)
	if err != nil {
		return fmt.Errorf("encode dashboard cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisDashboardCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, dashboardKeyPrefix, scanBatchSize)
}

func (n *noopDashboardCache) GetDashboard(ctx context.Context, params domain.RunParams) (*domain.ForecastDashboard, bool, error) {
	return nil, false, nil
}

func (n *noopDashboardCache) SetDashboard(ctx context.Context, params domain.RunParams, dashboard *domain.ForecastDashboard) error {
	return nil
}

func (n *noopDashboardCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildDashboardKey(params domain.RunParams) string {
	return fmt.Sprintf("%s:%s", dashboardKeyPrefix, paramsHash(params))
}

// paramsHash builds a stable hash over the normalized parameter parts so
// equivalent requests share one entry regardless of query ordering.
func paramsHash(params domain.RunParams) string {
	parts := []string{
		"start=" + params.StartDate.String(),
		"end=" + params.EndDate.String(),
		fmt.Sprintf("horizon=%d", params.HorizonDays),
		fmt.Sprintf("factor=%.4f", params.SafetyFactor),
	}

	if params.Seed != nil {
		parts = append(parts, fmt.Sprintf("seed=%d", *params.Seed))
	}
	if params.Series != "" {
		parts = append(parts, "series="+strings.ToLower(strings.TrimSpace(params.Series)))
	}

	sort.Strings(parts)
	raw := strings.Join(parts, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
