package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/handover-api/internal/dto"
	"github.com/noah-isme/handover-api/internal/models"
	appErrors "github.com/noah-isme/handover-api/pkg/errors"
)

type statsCountersStub struct {
	counts        models.SubmissionCounts
	activeCodes   int
	activeSeekers int
	queries       int
}

func (s *statsCountersStub) CountByStatus(ctx context.Context) (*models.SubmissionCounts, error) {
	s.queries++
	counts := s.counts
	return &counts, nil
}

func (s *statsCountersStub) CountActive(ctx context.Context, now time.Time) (int, error) {
	return s.activeCodes, nil
}

func (s *statsCountersStub) CountByRole(ctx context.Context, role models.UserRole) (int, error) {
	return s.activeSeekers, nil
}

type cacheStub struct {
	values map[string]string
	getErr error
	setErr error
}

func newCacheStub() *cacheStub {
	return &cacheStub{values: make(map[string]string)}
}

func (c *cacheStub) Get(ctx context.Context, key string) (string, error) {
	if c.getErr != nil {
		return "", c.getErr
	}
	return c.values[key], nil
}

func (c *cacheStub) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.values[key] = value
	return nil
}

func TestStatsDashboard(t *testing.T) {
	counters := &statsCountersStub{
		counts:        models.SubmissionCounts{Total: 10, Pending: 4, Approved: 5, Rejected: 1},
		activeCodes:   3,
		activeSeekers: 2,
	}
	cache := newCacheStub()
	svc := NewStatsService(counters, counters, counters, cache, nil, nil, time.Minute)

	stats, err := svc.Dashboard(context.Background(), adminClaims())
	require.NoError(t, err)
	require.Equal(t, 10, stats.TotalSubmissions)
	require.Equal(t, 4, stats.PendingSubmissions)
	require.Equal(t, 3, stats.ActiveCodes)
	require.Equal(t, 2, stats.ActiveSeekers)
	require.Equal(t, 1, counters.queries)

	// The second read is served from cache.
	again, err := svc.Dashboard(context.Background(), adminClaims())
	require.NoError(t, err)
	require.Equal(t, stats, again)
	require.Equal(t, 1, counters.queries)
}

func TestStatsDashboardDegradesWithoutCache(t *testing.T) {
	counters := &statsCountersStub{counts: models.SubmissionCounts{Total: 1, Pending: 1}}
	cache := newCacheStub()
	cache.getErr = fmt.Errorf("connection refused")
	cache.setErr = fmt.Errorf("connection refused")
	svc := NewStatsService(counters, counters, counters, cache, nil, nil, time.Minute)

	for i := 0; i < 2; i++ {
		stats, err := svc.Dashboard(context.Background(), adminClaims())
		require.NoError(t, err)
		require.Equal(t, 1, stats.TotalSubmissions)
	}
	require.Equal(t, 2, counters.queries)
}

func TestStatsDashboardNilCache(t *testing.T) {
	counters := &statsCountersStub{counts: models.SubmissionCounts{Total: 7}}
	svc := NewStatsService(counters, counters, counters, nil, nil, nil, 0)

	stats, err := svc.Dashboard(context.Background(), adminClaims())
	require.NoError(t, err)
	require.Equal(t, 7, stats.TotalSubmissions)
}

func TestStatsDashboardIgnoresMalformedCacheEntry(t *testing.T) {
	counters := &statsCountersStub{counts: models.SubmissionCounts{Total: 5}}
	cache := newCacheStub()
	cache.values[statsCacheKey] = "{not json"
	svc := NewStatsService(counters, counters, counters, cache, nil, nil, time.Minute)

	stats, err := svc.Dashboard(context.Background(), adminClaims())
	require.NoError(t, err)
	require.Equal(t, 5, stats.TotalSubmissions)

	// The bad entry was overwritten with a fresh one.
	var cached dto.DashboardStats
	require.NoError(t, json.Unmarshal([]byte(cache.values[statsCacheKey]), &cached))
	require.Equal(t, 5, cached.TotalSubmissions)
}

func TestStatsDashboardRequiresAdmin(t *testing.T) {
	counters := &statsCountersStub{}
	svc := NewStatsService(counters, counters, counters, nil, nil, nil, 0)

	_, err := svc.Dashboard(context.Background(), seekerClaims())
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}
