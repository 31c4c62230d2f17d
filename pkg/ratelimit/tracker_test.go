package ratelimit

import (
	"context"
	"net/http"
	"os"
	"testing"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

func TestUpdateFromHeaders_InvalidHeaders(t *testing.T) {
	tracker := NewTracker(nil, testLogger())

	tests := []struct {
		name         string
		remainHeader string
		limitHeader  string
		shouldError  bool
	}{
		{
			name:         "missing remain header",
			remainHeader: "",
			limitHeader:  "50",
			shouldError:  false, // Should return nil for missing headers
		},
		{
			name:         "invalid remain header",
			remainHeader: "invalid",
			limitHeader:  "50",
			shouldError:  true,
		},
		{
			name:         "invalid limit header",
			remainHeader: "40",
			limitHeader:  "invalid",
			shouldError:  true,
		},
		{
			name:         "remain without limit",
			remainHeader: "40",
			limitHeader:  "",
			shouldError:  false, // Limit header is optional
		},
		{
			name:         "both headers missing",
			remainHeader: "",
			limitHeader:  "",
			shouldError:  false, // Source does not expose its quota
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			if tt.remainHeader != "" {
				headers.Set("X-Ratelimit-Remaining", tt.remainHeader)
			}
			if tt.limitHeader != "" {
				headers.Set("X-Ratelimit-Limit", tt.limitHeader)
			}

			err := tracker.UpdateFromHeaders(context.Background(), "unsplash", headers)

			if tt.shouldError && err == nil {
				t.Error("Expected error but got nil")
			}
			if !tt.shouldError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestShouldAllowRequest_Logic(t *testing.T) {
	tests := []struct {
		name           string
		remaining      int
		expectBlock    bool
		expectThrottle bool
	}{
		{
			name:           "healthy - allow immediately",
			remaining:      100,
			expectBlock:    false,
			expectThrottle: false,
		},
		{
			name:           "at healthy threshold - allow immediately",
			remaining:      QuotaThresholdHealthy,
			expectBlock:    false,
			expectThrottle: false,
		},
		{
			name:           "warning - allow with throttle",
			remaining:      5,
			expectBlock:    false,
			expectThrottle: true,
		},
		{
			name:           "critical - block",
			remaining:      1,
			expectBlock:    true,
			expectThrottle: false,
		},
		{
			name:           "at critical threshold - allow",
			remaining:      QuotaThresholdCritical,
			expectBlock:    false,
			expectThrottle: true, // Still in warning range
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &QuotaState{
				Remaining: tt.remaining,
			}
			state.UpdateHealth()

			shouldBlock := state.NeedsCriticalBlock()
			shouldThrottle := state.NeedsThrottling()

			if shouldBlock != tt.expectBlock {
				t.Errorf("NeedsCriticalBlock() = %v, want %v (remaining=%d)", shouldBlock, tt.expectBlock, tt.remaining)
			}

			if shouldThrottle != tt.expectThrottle {
				t.Errorf("NeedsThrottling() = %v, want %v (remaining=%d)", shouldThrottle, tt.expectThrottle, tt.remaining)
			}
		})
	}
}

func TestGetState_NilRedisDefaults(t *testing.T) {
	tracker := NewTracker(nil, testLogger())

	state, err := tracker.GetState(context.Background(), "numbeo")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !state.IsHealthy {
		t.Error("Default state should be healthy")
	}
	if state.NeedsCriticalBlock() {
		t.Error("Default state should not block")
	}
}
