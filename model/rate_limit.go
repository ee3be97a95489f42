package model

import "time"

// RateLimitCounter tracks one client within one scope. A counter whose
// ResetTime has passed is logically expired and must be treated as absent.
type RateLimitCounter struct {
	Count     int
	ResetTime time.Time
	Attempts  []time.Time
}

func (c *RateLimitCounter) Expired(now time.Time) bool {
	return now.After(c.ResetTime)
}

// ThreatState is the per-IP escalation record. It is created on the first
// rate-limit violation and survives block expiry so repeat offenders climb
// the blocking tiers; only a whole-store reset clears it.
type ThreatState struct {
	SuspiciousAttempts int
	LastAttempt        time.Time
	BlockedUntil       time.Time
	Patterns           []string
	RiskScore          float64
}

func (t *ThreatState) Blocked(now time.Time) bool {
	return now.Before(t.BlockedUntil)
}

type ThreatLevel string

const (
	ThreatLevelLow      ThreatLevel = "low"
	ThreatLevelMedium   ThreatLevel = "medium"
	ThreatLevelHigh     ThreatLevel = "high"
	ThreatLevelCritical ThreatLevel = "critical"
)

// ThreatLevelFor buckets a risk score.
func ThreatLevelFor(riskScore float64) ThreatLevel {
	switch {
	case riskScore > 80:
		return ThreatLevelCritical
	case riskScore > 60:
		return ThreatLevelHigh
	case riskScore > 40:
		return ThreatLevelMedium
	default:
		return ThreatLevelLow
	}
}
