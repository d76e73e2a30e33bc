// Package nodehealth tracks which guard nodes are currently misbehaving so
// the path selector can avoid routing fresh onion requests through them
// until they cool off.
package nodehealth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds tracker configuration.
type Config struct {
	// FailuresPerSecond and BurstSize bound how often a single node is
	// allowed to fail before it gets banned; they are not a pace on
	// requests themselves.
	FailuresPerSecond float64
	BurstSize         int
	CleanupInterval   time.Duration
	BanDuration       time.Duration
	MaxViolations     int
}

// Tracker records failures per guard node address and temporarily bans
// nodes that fail too often.
type Tracker struct {
	config  Config
	nodes   map[string]*nodeState
	banned  map[string]time.Time
	mu      sync.RWMutex
	stopCh  chan struct{}
	doneCh  chan struct{}
}

type nodeState struct {
	limiter    *rate.Limiter
	violations int
	lastSeen   time.Time
}

// NewTracker creates a node health tracker and starts its cleanup loop.
func NewTracker(cfg Config) *Tracker {
	if cfg.FailuresPerSecond <= 0 {
		cfg.FailuresPerSecond = 1
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 3
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 10 * time.Minute
	}
	if cfg.BanDuration <= 0 {
		cfg.BanDuration = 30 * time.Minute
	}
	if cfg.MaxViolations <= 0 {
		cfg.MaxViolations = 5
	}

	t := &Tracker{
		config: cfg,
		nodes:  make(map[string]*nodeState),
		banned: make(map[string]time.Time),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go t.cleanup()

	return t
}

// Allowed reports whether address is currently eligible for path selection.
func (t *Tracker) Allowed(address string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	banUntil, banned := t.banned[address]
	if !banned {
		return true
	}
	return time.Now().After(banUntil)
}

// RecordFailure registers a failed onion request through address. Each
// failure beyond the node's FailuresPerSecond/BurstSize allowance counts as
// a violation; once a node reaches MaxViolations it is banned for
// BanDuration.
func (t *Tracker) RecordFailure(address string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if banUntil, banned := t.banned[address]; banned {
		if time.Now().Before(banUntil) {
			return
		}
		delete(t.banned, address)
	}

	n, exists := t.nodes[address]
	if !exists {
		n = &nodeState{
			limiter: rate.NewLimiter(rate.Limit(t.config.FailuresPerSecond), t.config.BurstSize),
		}
		t.nodes[address] = n
	}
	n.lastSeen = time.Now()

	if !n.limiter.Allow() {
		n.violations++
		if n.violations >= t.config.MaxViolations {
			t.banned[address] = time.Now().Add(t.config.BanDuration)
			delete(t.nodes, address)
		}
	}
}

// RecordSuccess clears a node's violation count after a successful
// request, so a transient blip doesn't count against it forever.
func (t *Tracker) RecordSuccess(address string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n, exists := t.nodes[address]; exists {
		n.violations = 0
		n.lastSeen = time.Now()
	}
}

// IsBanned reports whether address is currently banned from selection.
func (t *Tracker) IsBanned(address string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	banUntil, banned := t.banned[address]
	if !banned {
		return false
	}
	return time.Now().Before(banUntil)
}

// Stats summarizes tracker state.
type Stats struct {
	TrackedNodes int
	BannedNodes  int
}

// Stats returns current tracker statistics.
func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Stats{TrackedNodes: len(t.nodes), BannedNodes: len(t.banned)}
}

// Stop stops the cleanup goroutine and waits for it to exit.
func (t *Tracker) Stop() {
	close(t.stopCh)
	<-t.doneCh
}

func (t *Tracker) cleanup() {
	defer close(t.doneCh)

	ticker := time.NewTicker(t.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.doCleanup()
		}
	}
}

func (t *Tracker) doCleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for addr, n := range t.nodes {
		if now.Sub(n.lastSeen) > t.config.CleanupInterval*2 {
			delete(t.nodes, addr)
		}
	}
	for addr, banUntil := range t.banned {
		if now.After(banUntil) {
			delete(t.banned, addr)
		}
	}
}
