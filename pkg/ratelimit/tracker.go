package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for quota tracking.
var (
	quotaRemaining = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tripfetch_quota_remaining",
		Help: "Remaining requests in the current provider quota window",
	}, []string{"source"})

	quotaBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripfetch_quota_blocks_total",
		Help: "Total number of requests blocked due to critical quota",
	}, []string{"source"})

	quotaThrottlesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripfetch_quota_throttles_total",
		Help: "Total number of requests throttled due to low quota",
	}, []string{"source"})
)

// maxStateAge is how long observed quota state stays authoritative.
// Provider windows roll over (typically hourly), so older state must not
// block a fresh run.
const maxStateAge = time.Hour

// Tracker monitors per-source API quotas and gates requests.
// With a nil Redis client the tracker is a no-op that allows everything;
// quota headers are still the fetch client's signal of record via the
// 429 handling path.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewTracker creates a new quota tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
	}
}

// GetState retrieves the current quota state for a source from Redis.
// Returns a default healthy state if no data exists.
func (t *Tracker) GetState(ctx context.Context, source string) (*QuotaState, error) {
	if t.redis == nil {
		return healthyDefault(), nil
	}

	remaining, err := t.redis.Get(ctx, keyPrefix+source+fieldRemaining).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get quota remaining: %w", err)
	}
	if err == redis.Nil {
		t.logger.Debug().Str("source", source).Msg("No quota state in Redis, returning default healthy state")
		return healthyDefault(), nil
	}

	limit, err := t.redis.Get(ctx, keyPrefix+source+fieldLimit).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get quota limit: %w", err)
	}

	lastUpdateStr, err := t.redis.Get(ctx, keyPrefix+source+fieldLastUpdate).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get quota last update: %w", err)
	}

	var lastUpdate time.Time
	if lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &lastUpdate); err != nil {
			return nil, fmt.Errorf("parse quota last update: %w", err)
		}
	}

	state := &QuotaState{
		Remaining:  remaining,
		Limit:      limit,
		LastUpdate: lastUpdate,
	}
	state.UpdateHealth()

	return state, nil
}

// UpdateFromHeaders parses quota headers and updates Redis state.
// Sources without quota headers are simply not tracked.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, source string, headers http.Header) error {
	remainStr := headers.Get("X-Ratelimit-Remaining")
	if remainStr == "" {
		// Header not present - source does not expose its quota
		return nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse X-Ratelimit-Remaining header: %w", err)
	}

	// Limit header is optional
	limit := 0
	if limitStr := headers.Get("X-Ratelimit-Limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return fmt.Errorf("parse X-Ratelimit-Limit header: %w", err)
		}
	}

	now := time.Now()
	state := &QuotaState{
		Remaining:  remain,
		Limit:      limit,
		LastUpdate: now,
	}
	state.UpdateHealth()

	if t.redis != nil {
		// Store in Redis atomically
		pipe := t.redis.Pipeline()
		pipe.Set(ctx, keyPrefix+source+fieldRemaining, remain, maxStateAge)
		pipe.Set(ctx, keyPrefix+source+fieldLimit, limit, maxStateAge)

		lastUpdateJSON, err := json.Marshal(state.LastUpdate)
		if err != nil {
			return fmt.Errorf("marshal quota last update: %w", err)
		}
		pipe.Set(ctx, keyPrefix+source+fieldLastUpdate, lastUpdateJSON, maxStateAge)

		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("store quota state in redis: %w", err)
		}
	}

	quotaRemaining.WithLabelValues(source).Set(float64(remain))

	logEvent := t.logger.Info().
		Str("source", source).
		Int("remaining", remain).
		Int("limit", limit).
		Bool("is_healthy", state.IsHealthy)

	if state.NeedsCriticalBlock() {
		logEvent = t.logger.Error().Str("source", source).Int("remaining", remain)
		logEvent.Msg("Quota CRITICAL - requests will be blocked")
	} else if state.NeedsThrottling() {
		logEvent = t.logger.Warn().Str("source", source).Int("remaining", remain)
		logEvent.Msg("Quota WARNING - requests will be throttled")
	} else {
		logEvent.Msg("Quota state updated")
	}

	return nil
}

// ShouldAllowRequest checks if a request should be allowed based on the
// current quota state. Returns false if the request should be blocked due
// to critical quota. Returns true but may sleep for throttling when in the
// warning band.
func (t *Tracker) ShouldAllowRequest(ctx context.Context, source string) (bool, error) {
	state, err := t.GetState(ctx, source)
	if err != nil {
		return false, fmt.Errorf("get quota state: %w", err)
	}

	// Old windows have rolled over server-side
	if state.IsStale(maxStateAge) {
		return true, nil
	}

	// Critical: Block all requests
	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Str("source", source).
			Int("remaining", state.Remaining).
			Msg("Quota critical - blocking request")

		quotaBlocksTotal.WithLabelValues(source).Inc()
		return false, nil
	}

	// Warning: Apply throttling (1 second sleep)
	if state.NeedsThrottling() {
		t.logger.Warn().
			Str("source", source).
			Int("remaining", state.Remaining).
			Msg("Quota warning - throttling request")

		quotaThrottlesTotal.WithLabelValues(source).Inc()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}

	// Healthy: Allow request
	return true, nil
}

func healthyDefault() *QuotaState {
	return &QuotaState{
		Remaining:  100, // Assume healthy until we get real data
		LastUpdate: time.Now(),
		IsHealthy:  true,
	}
}
