//go:build integration

package ratelimit

import (
	"context"
	"net/http"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestTracker_Integration_GetState(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	tracker := NewTracker(redisClient, logger)
	ctx := context.Background()

	// Default state when Redis is empty
	state, err := tracker.GetState(ctx, "unsplash")
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Remaining != 100 {
		t.Errorf("Default Remaining = %d, want 100", state.Remaining)
	}
	if !state.IsHealthy {
		t.Error("Default state should be healthy")
	}

	// Update from headers and retrieve
	headers := http.Header{}
	headers.Set("X-Ratelimit-Remaining", "37")
	headers.Set("X-Ratelimit-Limit", "50")

	if err := tracker.UpdateFromHeaders(ctx, "unsplash", headers); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	state, err = tracker.GetState(ctx, "unsplash")
	if err != nil {
		t.Fatalf("GetState() after update error = %v", err)
	}
	if state.Remaining != 37 {
		t.Errorf("Remaining = %d, want 37", state.Remaining)
	}
	if state.Limit != 50 {
		t.Errorf("Limit = %d, want 50", state.Limit)
	}
	if !state.IsHealthy {
		t.Error("State with 37 remaining should be healthy")
	}

	// State is tracked per source: another source stays at the default
	other, err := tracker.GetState(ctx, "numbeo")
	if err != nil {
		t.Fatalf("GetState() other source error = %v", err)
	}
	if other.Remaining != 100 {
		t.Errorf("Other source Remaining = %d, want default 100", other.Remaining)
	}
}

func TestTracker_Integration_ShouldAllowRequest(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	tracker := NewTracker(redisClient, logger)
	ctx := context.Background()

	// Critical quota blocks
	headers := http.Header{}
	headers.Set("X-Ratelimit-Remaining", "1")
	if err := tracker.UpdateFromHeaders(ctx, "unsplash", headers); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	allowed, err := tracker.ShouldAllowRequest(ctx, "unsplash")
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if allowed {
		t.Error("Request with 1 remaining should be blocked")
	}

	// Recovery allows again
	headers.Set("X-Ratelimit-Remaining", "40")
	if err := tracker.UpdateFromHeaders(ctx, "unsplash", headers); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	allowed, err = tracker.ShouldAllowRequest(ctx, "unsplash")
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if !allowed {
		t.Error("Request with 40 remaining should be allowed")
	}
}
