// Package fetch provides the core per-item HTTP fetch client with pacing,
// quota gating, response caching, and failure classification.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wanderdata/tripfetch/pkg/cache"
	"github.com/wanderdata/tripfetch/pkg/catalog"
	"github.com/wanderdata/tripfetch/pkg/ratelimit"
	"github.com/wanderdata/tripfetch/pkg/store"
)

// Prometheus metrics for fetch operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripfetch_requests_total",
		Help: "Total source requests by source and status",
	}, []string{"source", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tripfetch_request_duration_seconds",
		Help:    "Source request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"source"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripfetch_errors_total",
		Help: "Total per-item failures by kind",
	}, []string{"kind"})

	paceWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tripfetch_pace_wait_seconds",
		Help:    "Time spent waiting out the inter-call delay",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2},
	})
)

// Requester is what a source must provide for per-item fetching.
// Implementations live in pkg/source.
type Requester interface {
	// Name identifies the source in logs, metrics, and cache keys.
	Name() string

	// NewRequest builds the GET request for one work item.
	NewRequest(ctx context.Context, item catalog.Item) (*http.Request, error)

	// ParsePayload validates and normalizes a 200 response body.
	// A schema violation must surface as an error so it is recorded as
	// malformed_response rather than a crash downstream.
	ParsePayload(body []byte) (map[string]any, error)

	// RateLimitStatus reports whether the given HTTP status signals
	// quota exhaustion for this source (429 everywhere; 403 for sources
	// that use it that way).
	RateLimitStatus(code int) bool
}

// Config holds the client configuration.
type Config struct {
	// Per-call connect/read timeout
	Timeout time.Duration

	// Pace is the minimum delay between consecutive calls, applied
	// regardless of outcome. This is a scheduling policy against
	// provider rate limits, not a retry knob.
	Pace time.Duration

	// User-Agent header sent with every request
	UserAgent string

	// Cache is the optional Redis response cache.
	Cache *cache.Manager

	// Quota is the optional shared quota tracker.
	Quota *ratelimit.Tracker
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:   30 * time.Second,
		Pace:      350 * time.Millisecond,
		UserAgent: "tripfetch/0.1.0",
	}
}

// Client fetches one work item at a time. It is not safe for concurrent
// use: runs are strictly sequential and the pacing state assumes a single
// caller.
type Client struct {
	httpClient *http.Client
	cache      *cache.Manager
	quota      *ratelimit.Tracker
	config     Config
	logger     zerolog.Logger
	lastCall   time.Time
}

// New creates a new fetch client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Pace < 0 {
		return nil, fmt.Errorf("pace must not be negative (got %v)", cfg.Pace)
	}

	logger := log.With().Str("component", "fetch-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache:  cfg.Cache,
		quota:  cfg.Quota,
		config: cfg,
		logger: logger,
	}, nil
}

// Fetch performs one item fetch and returns its outcome as a store record.
// All failures are classified; nothing escapes as a raw transport error.
func (c *Client) Fetch(ctx context.Context, src Requester, item catalog.Item) store.Record {
	source := src.Name()

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(source).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check quota
	if c.quota != nil {
		allowed, err := c.quota.ShouldAllowRequest(ctx, source)
		if err != nil {
			c.logger.Warn().Err(err).Str("source", source).Msg("Quota check failed, proceeding")
		} else if !allowed {
			c.logger.Warn().
				Str("source", source).
				Str("item", item.ID).
				Msg("Request blocked by quota tracker")
			requestsTotal.WithLabelValues(source, "quota_blocked").Inc()
			return c.failure(source, item, store.KindRateLimited, 0, ErrQuotaBlocked.Error())
		}
	}

	// Step 2: Enforce the inter-call delay
	if err := c.pace(ctx); err != nil {
		return c.failure(source, item, store.KindTimeout, 0, err.Error())
	}

	// Step 3: Build the request
	req, err := src.NewRequest(ctx, item)
	if err != nil {
		return c.failure(source, item, store.KindHTTPError, 0, fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	// Step 4: Check cache and prepare conditional request
	var cacheKey cache.Key
	var cachedEntry *cache.Entry
	if c.cache != nil {
		cacheKey = cache.Key{
			Source:      source,
			Endpoint:    req.URL.Path,
			QueryParams: req.URL.Query(),
		}
		cachedEntry, err = c.cache.Get(ctx, cacheKey)
		if err != nil && err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("source", source).Msg("Cache get error")
		}
		if cachedEntry != nil && cache.ShouldMakeConditionalRequest(cachedEntry) {
			cache.AddConditionalHeaders(req, cachedEntry)
			cache.ConditionalRequestsSent.Inc()
			c.logger.Debug().
				Str("source", source).
				Str("item", item.ID).
				Str("etag", cachedEntry.ETag).
				Msg("Making conditional request")
		}
	}

	// Step 5: Execute
	c.logger.Debug().
		Str("source", source).
		Str("item", item.ID).
		Str("url", req.URL.Redacted()).
		Msg("Fetching item")

	resp, err := c.httpClient.Do(req)
	c.lastCall = time.Now()
	if err != nil {
		c.logger.Warn().Err(err).
			Str("source", source).
			Str("item", item.ID).
			Msg("Request failed")
		requestsTotal.WithLabelValues(source, "network_error").Inc()
		return c.failure(source, item, store.KindTimeout, 0, err.Error())
	}
	defer resp.Body.Close()

	// Step 6: Update quota state from response headers
	if c.quota != nil {
		if err := c.quota.UpdateFromHeaders(ctx, source, resp.Header); err != nil {
			c.logger.Warn().Err(err).Str("source", source).Msg("Failed to update quota from headers")
		}
	}

	// Step 7: Handle 304 Not Modified - parse the cached body
	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		c.logger.Debug().
			Str("source", source).
			Str("item", item.ID).
			Msg("304 Not Modified - using cache")
		requestsTotal.WithLabelValues(source, "304").Inc()
		cache.NotModifiedResponses.Inc()

		if expiresStr := resp.Header.Get("Expires"); expiresStr != "" {
			if newExpires, err := http.ParseTime(expiresStr); err == nil {
				if err := c.cache.UpdateTTL(ctx, cacheKey, newExpires); err != nil {
					c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
				}
			}
		}

		return c.parse(src, item, cachedEntry.Data)
	}

	// Step 8: Classify non-200 statuses
	if src.RateLimitStatus(resp.StatusCode) {
		c.logger.Warn().
			Str("source", source).
			Str("item", item.ID).
			Int("status", resp.StatusCode).
			Msg("Rate limited")
		requestsTotal.WithLabelValues(source, fmt.Sprintf("%d", resp.StatusCode)).Inc()
		return c.failure(source, item, store.KindRateLimited, resp.StatusCode, resp.Status)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().
			Str("source", source).
			Str("item", item.ID).
			Int("status", resp.StatusCode).
			Msg("Request error")
		requestsTotal.WithLabelValues(source, fmt.Sprintf("%d", resp.StatusCode)).Inc()
		return c.failure(source, item, store.KindHTTPError, resp.StatusCode, resp.Status)
	}

	// Step 9: Cache the response, then parse the body
	if c.cache != nil {
		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if entry.TTL() > 0 {
			if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to cache response")
			}
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		requestsTotal.WithLabelValues(source, "read_error").Inc()
		return c.failure(source, item, store.KindTimeout, resp.StatusCode, fmt.Sprintf("read body: %v", err))
	}
	requestsTotal.WithLabelValues(source, "200").Inc()

	return c.parse(src, item, body)
}

// parse runs the source's schema validation over a response body.
func (c *Client) parse(src Requester, item catalog.Item, body []byte) store.Record {
	payload, err := src.ParsePayload(body)
	if err != nil {
		c.logger.Warn().Err(err).
			Str("source", src.Name()).
			Str("item", item.ID).
			Msg("Malformed response")
		return c.failure(src.Name(), item, store.KindMalformed, http.StatusOK, err.Error())
	}

	return store.Record{
		ID:        item.ID,
		Status:    store.StatusSuccess,
		Payload:   payload,
		FetchedAt: time.Now().UTC(),
	}
}

// pace waits out the remainder of the inter-call delay.
func (c *Client) pace(ctx context.Context) error {
	if c.config.Pace <= 0 || c.lastCall.IsZero() {
		return nil
	}
	wait := c.config.Pace - time.Since(c.lastCall)
	if wait <= 0 {
		return nil
	}

	paceWaitSeconds.Observe(wait.Seconds())
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
	case <-time.After(wait):
		return nil
	}
}

// failure builds a classified failure record and counts it.
func (c *Client) failure(source string, item catalog.Item, kind store.FailureKind, status int, detail string) store.Record {
	errorsTotal.WithLabelValues(string(kind)).Inc()
	return store.Record{
		ID:     item.ID,
		Status: store.StatusFailure,
		Error: &store.Failure{
			Kind:       kind,
			StatusCode: status,
			Detail:     detail,
		},
		FetchedAt: time.Now().UTC(),
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
