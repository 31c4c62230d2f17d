// Package ratelimit tracks per-source API quota state and gates requests.
// It monitors X-Ratelimit-Remaining / X-Ratelimit-Limit style response
// headers so a run stops burning quota before the provider starts
// rejecting calls, and shares that state via Redis so successive runs
// see the same remaining budget.
package ratelimit

import (
	"time"
)

// Redis key fragments for quota state storage, completed per source as
// tripfetch:quota:<source>:<field>.
const (
	keyPrefix       = "tripfetch:quota:"
	fieldRemaining  = ":remaining"
	fieldLimit      = ":limit"
	fieldLastUpdate = ":last_update"
)

// Thresholds for quota decisions.
const (
	// QuotaThresholdCritical blocks requests when the remaining quota
	// falls below this value, leaving headroom for a manual retry.
	QuotaThresholdCritical = 2

	// QuotaThresholdWarning applies throttling when the remaining quota
	// falls below this value, stretching the budget across the run.
	QuotaThresholdWarning = 10

	// QuotaThresholdHealthy indicates normal operation.
	QuotaThresholdHealthy = 25
)

// QuotaState is the last observed quota window for one source.
type QuotaState struct {
	// Remaining is the number of requests left in the current window.
	// Extracted from the X-Ratelimit-Remaining header.
	Remaining int `json:"remaining"`

	// Limit is the window size, when the provider reports it.
	Limit int `json:"limit"`

	// LastUpdate is when this state was last refreshed from headers.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining >= QuotaThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state data is older than the given duration.
// Quota windows roll over server-side, so stale state should not block runs.
func (s *QuotaState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests should be blocked.
func (s *QuotaState) NeedsCriticalBlock() bool {
	return s.Remaining < QuotaThresholdCritical
}

// NeedsThrottling returns true if requests should be throttled.
func (s *QuotaState) NeedsThrottling() bool {
	return s.Remaining < QuotaThresholdWarning && !s.NeedsCriticalBlock()
}

// UpdateHealth updates the IsHealthy field based on current Remaining.
func (s *QuotaState) UpdateHealth() {
	s.IsHealthy = s.Remaining >= QuotaThresholdHealthy
}
