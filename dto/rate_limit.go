package dto

import (
	"time"

	"github.com/assurea/courtier_api/model"
)

// RequestContext carries the request identifiers attached to every
// emitted security event.
type RequestContext struct {
	IP        string
	UserAgent string
	Endpoint  string
}

// RateLimitStats is a point-in-time snapshot of the limiter store for
// the admin endpoints.
type RateLimitStats struct {
	ActiveCounters int                                       `json:"active_counters"`
	TrackedIPs     int                                       `json:"tracked_ips"`
	BlockedIPs     int                                       `json:"blocked_ips"`
	Configs        map[model.Endpoint]*model.RateLimitConfig `json:"configs"`
	Timestamp      time.Time                                 `json:"timestamp"`
}

// RateLimitResult is the verdict returned by the rate limiter for one
// request, covering every applicable scope.
type RateLimitResult struct {
	Allowed     bool              `json:"allowed"`
	Blocked     bool              `json:"blocked,omitempty"`
	Remaining   int               `json:"remaining"`
	Limit       int               `json:"limit"`
	ResetTime   time.Time         `json:"reset_time"`
	RiskScore   float64           `json:"risk_score"`
	ThreatLevel model.ThreatLevel `json:"threat_level"`
	Scope       string            `json:"scope,omitempty"`
}

func (r *RateLimitResult) RetryAfterSeconds(now time.Time) int {
	d := r.ResetTime.Sub(now)
	if d <= 0 {
		return 0
	}
	secs := int(d / time.Second)
	if d%time.Second > 0 {
		secs++
	}
	return secs
}
