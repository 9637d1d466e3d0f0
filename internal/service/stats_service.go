package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/handover-api/internal/dto"
	"github.com/noah-isme/handover-api/internal/models"
	appErrors "github.com/noah-isme/handover-api/pkg/errors"
)

const statsCacheKey = "handover:stats:dashboard"

type statsCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type statsSubmissionCounter interface {
	CountByStatus(ctx context.Context) (*models.SubmissionCounts, error)
}

type statsCodeCounter interface {
	CountActive(ctx context.Context, now time.Time) (int, error)
}

type statsUserCounter interface {
	CountByRole(ctx context.Context, role models.UserRole) (int, error)
}

type statsMetrics interface {
	RecordCacheOperation(hit bool)
}

// StatsService aggregates dashboard totals with a short-lived cache in
// front. Cache failures degrade to direct queries; the dashboard never
// breaks because redis is down.
type StatsService struct {
	submissions statsSubmissionCounter
	codes       statsCodeCounter
	users       statsUserCounter
	cache       statsCache
	metrics     statsMetrics
	logger      *zap.Logger
	ttl         time.Duration
}

// NewStatsService constructs the service. The cache may be nil.
func NewStatsService(submissions statsSubmissionCounter, codes statsCodeCounter, users statsUserCounter, cache statsCache, metrics statsMetrics, logger *zap.Logger, ttl time.Duration) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &StatsService{
		submissions: submissions,
		codes:       codes,
		users:       users,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		ttl:         ttl,
	}
}

// Dashboard returns the admin overview totals.
func (s *StatsService) Dashboard(ctx context.Context, actor *models.JWTClaims) (*dto.DashboardStats, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	if cached := s.fromCache(ctx); cached != nil {
		return cached, nil
	}

	counts, err := s.submissions.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count submissions")
	}
	activeCodes, err := s.codes.CountActive(ctx, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active codes")
	}
	activeSeekers, err := s.users.CountByRole(ctx, models.RoleSeeker)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count seekers")
	}

	stats := &dto.DashboardStats{
		TotalSubmissions:    counts.Total,
		PendingSubmissions:  counts.Pending,
		ApprovedSubmissions: counts.Approved,
		RejectedSubmissions: counts.Rejected,
		ActiveCodes:         activeCodes,
		ActiveSeekers:       activeSeekers,
	}
	s.toCache(ctx, stats)
	return stats, nil
}

func (s *StatsService) fromCache(ctx context.Context) *dto.DashboardStats {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, statsCacheKey)
	if err != nil || raw == "" {
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(false)
		}
		return nil
	}
	var stats dto.DashboardStats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		s.logger.Warn("discarding malformed stats cache entry", zap.Error(err))
		return nil
	}
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(true)
	}
	return &stats
}

func (s *StatsService) toCache(ctx context.Context, stats *dto.DashboardStats) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, statsCacheKey, string(raw), s.ttl); err != nil {
		s.logger.Warn("failed to cache dashboard stats", zap.Error(err))
	}
}

// RedisStatsCache adapts a redis client to the stats cache interface.
type RedisStatsCache struct {
	client *redis.Client
}

// NewRedisStatsCache wraps a redis client.
func NewRedisStatsCache(client *redis.Client) *RedisStatsCache {
	return &RedisStatsCache{client: client}
}

// Get fetches a cached value. Missing keys come back as empty strings.
func (c *RedisStatsCache) Get(ctx context.Context, key string) (string, error) {
	value, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return value, err
}

// Set stores a value with the given TTL.
func (c *RedisStatsCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}
