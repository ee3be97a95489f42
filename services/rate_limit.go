package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/assurea/courtier_api/dto"
	"github.com/assurea/courtier_api/model"
	"github.com/assurea/courtier_api/shared"
)

// RateLimitStore holds the per-client counters and the per-IP threat
// records. It is an explicitly constructed object so tests can build a
// fresh store instead of clearing process globals. The single mutex
// covers the check-then-increment sequence; without it two requests at
// the boundary could both read count == max-1 and both be admitted.
type RateLimitStore struct {
	mu       sync.Mutex
	counters map[string]*model.RateLimitCounter
	threats  map[string]*model.ThreatState
}

func NewRateLimitStore() *RateLimitStore {
	return &RateLimitStore{
		counters: make(map[string]*model.RateLimitCounter),
		threats:  make(map[string]*model.ThreatState),
	}
}

// Sweep drops counters whose window has passed. ThreatState records are
// never swept here; block memory survives until an explicit Reset so
// repeat offenders keep climbing the tiers.
func (s *RateLimitStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, counter := range s.counters {
		if counter.Expired(now) {
			delete(s.counters, key)
			removed++
		}
	}
	return removed
}

// Reset clears counters and threat records.
func (s *RateLimitStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters = make(map[string]*model.RateLimitCounter)
	s.threats = make(map[string]*model.ThreatState)
}

// RateLimitService enforces the per-endpoint, global and burst limits
// and accumulates threat records for clients that keep violating them.
type RateLimitService struct {
	context.DefaultService

	store   *RateLimitStore
	configs map[model.Endpoint]*model.RateLimitConfig
	scopes  map[string]model.ScopeConfig

	sweepInterval time.Duration

	eventSvc *SecurityEventService
	sqlSvc   *SqliteService
}

const RATE_LIMIT_SVC = "rate_limit_svc"

func (svc RateLimitService) Id() string {
	return RATE_LIMIT_SVC
}

// NewRateLimitService builds a limiter with the default configuration
// outside the service container; events and persistence stay disabled.
// The container path goes through Configure instead.
func NewRateLimitService() *RateLimitService {
	svc := &RateLimitService{}
	svc.applyDefaults()
	return svc
}

func (svc *RateLimitService) applyDefaults() {
	svc.store = NewRateLimitStore()
	svc.configs = model.RateLimitConfigs()
	svc.scopes = model.ScopeConfigs()
	svc.sweepInterval = 5 * time.Minute
}

func (svc *RateLimitService) Configure(ctx *context.Context) error {
	svc.applyDefaults()
	return svc.DefaultService.Configure(ctx)
}

func (svc *RateLimitService) Start() error {
	svc.eventSvc = svc.Service(SECURITY_EVENT_SVC).(*SecurityEventService)
	svc.sqlSvc = svc.Service(SQLITE_SVC).(*SqliteService)

	go svc.startSweepJob()
	go svc.startAuditCleanupJob()

	return nil
}

// Blocking tiers, most severe first. Each escalation re-evaluates from
// scratch against the cumulative counters and simply resets blockedUntil;
// durations do not stack.
var blockTiers = []struct {
	minAttempts  int
	minRiskScore float64
	duration     time.Duration
}{
	{10, 90, 24 * time.Hour},
	{5, 70, time.Hour},
	{3, 50, 15 * time.Minute},
}

// CheckRateLimit evaluates every applicable scope for one request and
// returns the verdict. Events are emitted after the store lock is
// released.
func (svc *RateLimitService) CheckRateLimit(ip string, endpoint model.Endpoint, reqCtx dto.RequestContext) *dto.RateLimitResult {
	now := time.Now()

	config, exists := svc.configs[endpoint]
	if !exists {
		// Unknown endpoints fall through to the cross-cutting scopes only.
		config = &model.RateLimitConfig{Endpoint: endpoint, MaxRequests: 0, Window: 0}
	}

	// Whitelisted clients bypass everything, block memory included.
	if model.WhitelistedIPs[ip] {
		return &dto.RateLimitResult{
			Allowed:     true,
			Remaining:   1 << 30,
			Limit:       config.MaxRequests,
			ResetTime:   now.Add(config.Window),
			ThreatLevel: model.ThreatLevelLow,
		}
	}

	result, event, details := svc.evaluate(ip, endpoint, config, reqCtx.UserAgent, now)
	if event != "" && svc.eventSvc != nil {
		svc.eventSvc.Emit(event, details, reqCtx)
	}
	return result
}

// evaluate runs the whole check-then-increment sequence under the store
// lock and reports at most one event to emit afterwards.
func (svc *RateLimitService) evaluate(ip string, endpoint model.Endpoint, config *model.RateLimitConfig, userAgent string, now time.Time) (*dto.RateLimitResult, string, map[string]interface{}) {
	svc.store.mu.Lock()
	defer svc.store.mu.Unlock()

	// Active block precedes and short-circuits all counter logic.
	if threat, ok := svc.store.threats[ip]; ok && threat.Blocked(now) {
		result := &dto.RateLimitResult{
			Allowed:     false,
			Blocked:     true,
			Remaining:   0,
			Limit:       config.MaxRequests,
			ResetTime:   threat.BlockedUntil,
			RiskScore:   threat.RiskScore,
			ThreatLevel: model.ThreatLevelCritical,
		}
		details := map[string]interface{}{
			"risk_score":          threat.RiskScore,
			"suspicious_attempts": threat.SuspiciousAttempts,
			"blocked_until":       threat.BlockedUntil,
		}
		return result, shared.EventBlockedIPAttempt, details
	}

	// Read-only content endpoints are never counted.
	if config.Public {
		return &dto.RateLimitResult{
			Allowed:     true,
			Remaining:   -1,
			ResetTime:   now,
			ThreatLevel: model.ThreatLevelLow,
		}, "", nil
	}

	type scopeCheck struct {
		name string
		key  string
		max  int
		win  time.Duration
	}

	checks := make([]scopeCheck, 0, 3)
	if config.MaxRequests > 0 {
		checks = append(checks, scopeCheck{
			name: string(endpoint),
			key:  fmt.Sprintf("%s:%s", ip, endpoint),
			max:  config.MaxRequests,
			win:  config.Window,
		})
	}
	for _, scope := range []string{model.ScopeGlobal, model.ScopeBurst} {
		sc := svc.scopes[scope]
		checks = append(checks, scopeCheck{
			name: scope,
			key:  fmt.Sprintf("%s:%s", ip, scope),
			max:  sc.MaxRequests,
			win:  sc.Window,
		})
	}

	binding := &dto.RateLimitResult{
		Allowed:     true,
		Remaining:   1 << 30,
		Limit:       config.MaxRequests,
		ResetTime:   now.Add(config.Window),
		ThreatLevel: model.ThreatLevelLow,
	}

	for _, check := range checks {
		counter, ok := svc.store.counters[check.key]
		if !ok || counter.Expired(now) {
			svc.store.counters[check.key] = &model.RateLimitCounter{
				Count:     1,
				ResetTime: now.Add(check.win),
				Attempts:  []time.Time{now},
			}
			remaining := check.max - 1
			if remaining < binding.Remaining {
				binding.Remaining = remaining
				binding.Limit = check.max
				binding.ResetTime = now.Add(check.win)
			}
			continue
		}

		if counter.Count >= check.max {
			// Violation: escalate and stop checking remaining scopes.
			riskScore := float64(counter.Count) / float64(check.max) * 50
			if riskScore > 100 {
				riskScore = 100
			}
			threat := svc.escalate(ip, endpoint, userAgent, riskScore, now)

			result := &dto.RateLimitResult{
				Allowed:     false,
				Remaining:   0,
				Limit:       check.max,
				ResetTime:   counter.ResetTime,
				RiskScore:   threat.RiskScore,
				ThreatLevel: model.ThreatLevelFor(threat.RiskScore),
				Scope:       check.name,
			}
			details := map[string]interface{}{
				"scope":               check.name,
				"count":               counter.Count,
				"limit":               check.max,
				"risk_score":          threat.RiskScore,
				"suspicious_attempts": threat.SuspiciousAttempts,
			}
			if !threat.BlockedUntil.IsZero() && threat.BlockedUntil.After(now) {
				details["blocked_until"] = threat.BlockedUntil
			}
			return result, shared.EventRateLimitViolation, details
		}

		counter.Count++
		counter.Attempts = append(counter.Attempts, now)
		remaining := check.max - counter.Count
		if remaining < binding.Remaining {
			binding.Remaining = remaining
			binding.Limit = check.max
			binding.ResetTime = counter.ResetTime
		}
	}

	return binding, "", nil
}

// userAgentPrefix keeps pattern entries bounded; a full UA string per
// violation would let an attacker grow the threat record without limit.
func userAgentPrefix(userAgent string) string {
	if len(userAgent) > 50 {
		return userAgent[:50]
	}
	return userAgent
}

// escalate updates the IP's threat record after a violation and applies
// the blocking tiers. Caller holds the store lock.
func (svc *RateLimitService) escalate(ip string, endpoint model.Endpoint, userAgent string, riskScore float64, now time.Time) *model.ThreatState {
	threat, ok := svc.store.threats[ip]
	if !ok {
		threat = &model.ThreatState{}
		svc.store.threats[ip] = threat
	}

	threat.SuspiciousAttempts++
	threat.LastAttempt = now
	if riskScore > threat.RiskScore {
		threat.RiskScore = riskScore
	}
	threat.Patterns = append(threat.Patterns,
		fmt.Sprintf("%s:%s", endpoint, userAgentPrefix(userAgent)))

	for _, tier := range blockTiers {
		if threat.SuspiciousAttempts >= tier.minAttempts || threat.RiskScore > tier.minRiskScore {
			threat.BlockedUntil = now.Add(tier.duration)
			threatEscalationsTotal.Inc()
			log.WithFields(log.Fields{
				"ip":         ip,
				"attempts":   threat.SuspiciousAttempts,
				"risk_score": threat.RiskScore,
				"duration":   tier.duration.String(),
			}).Warn("IP blocked")
			break
		}
	}

	return threat
}

// IsBlocked reports whether the IP currently has an active block.
func (svc *RateLimitService) IsBlocked(ip string) bool {
	now := time.Now()
	svc.store.mu.Lock()
	defer svc.store.mu.Unlock()

	threat, ok := svc.store.threats[ip]
	return ok && threat.Blocked(now)
}

// ThreatStateFor returns a copy of the IP's threat record.
func (svc *RateLimitService) ThreatStateFor(ip string) (model.ThreatState, bool) {
	svc.store.mu.Lock()
	defer svc.store.mu.Unlock()

	threat, ok := svc.store.threats[ip]
	if !ok {
		return model.ThreatState{}, false
	}

	copied := *threat
	copied.Patterns = append([]string(nil), threat.Patterns...)
	return copied, true
}

// ResetIP drops the IP's counters and threat record (admin unblock).
func (svc *RateLimitService) ResetIP(ip string) {
	svc.store.mu.Lock()
	defer svc.store.mu.Unlock()

	delete(svc.store.threats, ip)
	for _, scope := range []string{model.ScopeGlobal, model.ScopeBurst} {
		delete(svc.store.counters, fmt.Sprintf("%s:%s", ip, scope))
	}
	for endpoint := range svc.configs {
		delete(svc.store.counters, fmt.Sprintf("%s:%s", ip, endpoint))
	}
}

// Reset clears the whole store.
func (svc *RateLimitService) Reset(reqCtx dto.RequestContext) {
	svc.store.Reset()
	if svc.eventSvc != nil {
		svc.eventSvc.Emit(shared.EventStoreReset, nil, reqCtx)
	}
}

func (svc *RateLimitService) Stats() *dto.RateLimitStats {
	now := time.Now()
	svc.store.mu.Lock()
	defer svc.store.mu.Unlock()

	blocked := 0
	for _, threat := range svc.store.threats {
		if threat.Blocked(now) {
			blocked++
		}
	}

	return &dto.RateLimitStats{
		ActiveCounters: len(svc.store.counters),
		TrackedIPs:     len(svc.store.threats),
		BlockedIPs:     blocked,
		Configs:        svc.configs,
		Timestamp:      now,
	}
}

func (svc *RateLimitService) startSweepJob() {
	ticker := time.NewTicker(svc.sweepInterval)
	defer ticker.Stop()

	for range ticker.C {
		removed := svc.store.Sweep(time.Now())
		if removed > 0 {
			log.WithField("removed", removed).Debug("Rate limit sweep completed")
		}
	}
}

func (svc *RateLimitService) startAuditCleanupJob() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if err := svc.sqlSvc.CleanupOldRecords(); err != nil {
			log.WithError(err).Error("Audit cleanup failed")
		}
	}
}
