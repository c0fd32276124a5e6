package metrics

import (
	"sync"
	"sync/atomic"
)

// automationStats holds counters for the automation engine. Kept
// simple/thread-safe for use from the orchestration path and exposition.
type automationStats struct {
	eventsProcessed uint64
	eventsFatal     uint64
	rulesMatched    uint64
	mu              sync.Mutex
	actionOK        map[string]uint64
	actionFailed    map[string]uint64
}

var auto automationStats

// RecordEvent counts one processed event and its matched rules; fatal marks
// events aborted by a rule store failure.
func RecordEvent(matchedRules int, fatal bool) {
	atomic.AddUint64(&auto.eventsProcessed, 1)
	if fatal {
		atomic.AddUint64(&auto.eventsFatal, 1)
	}
	if matchedRules > 0 {
		atomic.AddUint64(&auto.rulesMatched, uint64(matchedRules))
	}
}

// RecordAction counts one action outcome keyed by action kind.
func RecordAction(kind string, succeeded bool) {
	auto.mu.Lock()
	defer auto.mu.Unlock()
	if succeeded {
		if auto.actionOK == nil {
			auto.actionOK = make(map[string]uint64)
		}
		auto.actionOK[kind]++
		return
	}
	if auto.actionFailed == nil {
		auto.actionFailed = make(map[string]uint64)
	}
	auto.actionFailed[kind]++
}

// AutomationSnapshot is a copy of the current automation counters.
type AutomationSnapshot struct {
	EventsProcessed uint64            `json:"events_processed"`
	EventsFatal     uint64            `json:"events_fatal"`
	RulesMatched    uint64            `json:"rules_matched"`
	ActionsOK       map[string]uint64 `json:"actions_ok"`
	ActionsFailed   map[string]uint64 `json:"actions_failed"`
}

// Snapshot returns a copy of the counters.
func Snapshot() AutomationSnapshot {
	s := AutomationSnapshot{
		EventsProcessed: atomic.LoadUint64(&auto.eventsProcessed),
		EventsFatal:     atomic.LoadUint64(&auto.eventsFatal),
		RulesMatched:    atomic.LoadUint64(&auto.rulesMatched),
		ActionsOK:       make(map[string]uint64),
		ActionsFailed:   make(map[string]uint64),
	}
	auto.mu.Lock()
	defer auto.mu.Unlock()
	for k, v := range auto.actionOK {
		s.ActionsOK[k] = v
	}
	for k, v := range auto.actionFailed {
		s.ActionsFailed[k] = v
	}
	return s
}

// rateLimitStats holds counters for rate limit drops (HTTP 429).
type rateLimitStats struct {
	total    uint64
	mu       sync.Mutex
	byPrefix map[string]uint64
}

var rl rateLimitStats

// IncRateLimitDrop increments drop counters for the given prefix.
// Use prefix "global" for global limiter rejections.
func IncRateLimitDrop(prefix string) {
	if prefix == "" {
		prefix = "global"
	}
	atomic.AddUint64(&rl.total, 1)
	rl.mu.Lock()
	if rl.byPrefix == nil {
		rl.byPrefix = make(map[string]uint64)
	}
	rl.byPrefix[prefix]++
	rl.mu.Unlock()
}

// RateLimitSnapshot returns a copy of the current counters.
func RateLimitSnapshot() (total uint64, by map[string]uint64) {
	total = atomic.LoadUint64(&rl.total)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	by = make(map[string]uint64, len(rl.byPrefix))
	for k, v := range rl.byPrefix {
		by[k] = v
	}
	return total, by
}
