package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/msgmaxim/onionreq/internal/logging"
	"github.com/msgmaxim/onionreq/internal/metrics"
	"github.com/msgmaxim/onionreq/internal/nodehealth"
	"github.com/msgmaxim/onionreq/pkg/directory"
	"github.com/msgmaxim/onionreq/pkg/onion"
	"github.com/msgmaxim/onionreq/pkg/pathselect"
	"github.com/msgmaxim/onionreq/pkg/transport"
)

// maxInFlightDefault matches the original test driver's concurrency cap.
const maxInFlightDefault = 10

// Runner periodically samples a fresh four-node path from the directory's
// node pool, sends a lightweight onion-wrapped RPC through it and records
// whether the round trip succeeded.
type Runner struct {
	directory      *directory.Client
	selector       *pathselect.Selector
	guard          transport.Transport
	aggregator     *Aggregator
	health         *nodehealth.Tracker
	log            *logging.Logger
	metrics        *metrics.PrometheusMetrics
	maxInFlight    int
	interval       time.Duration
	difficultyBits int

	mu       sync.Mutex
	inFlight int
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	MaxInFlight int
	Interval    time.Duration
	// DifficultyBits attaches proof-of-work to every probe payload when
	// non-zero; zero disables it entirely.
	DifficultyBits int
}

// NewRunner builds a Runner over its collaborators.
func NewRunner(dir *directory.Client, sel *pathselect.Selector, guard transport.Transport, agg *Aggregator, health *nodehealth.Tracker, log *logging.Logger, m *metrics.PrometheusMetrics, cfg RunnerConfig) *Runner {
	maxInFlight := cfg.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = maxInFlightDefault
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}

	return &Runner{
		directory:      dir,
		selector:       sel,
		guard:          guard,
		aggregator:     agg,
		health:         health,
		log:            log.WithComponent("driver"),
		metrics:        m,
		maxInFlight:    maxInFlight,
		interval:       interval,
		difficultyBits: cfg.DifficultyBits,
	}
}

// Run blocks, dispatching fire-and-forget test requests at r.interval
// until ctx is canceled. It never exceeds maxInFlight requests running
// concurrently, mirroring the bounded worker pool the original test
// driver used ahead of any async runtime's own scheduling limits. Pacing
// comes from a token-bucket limiter rather than a bare ticker, so a burst
// of freed slots after a slow guard doesn't fire every pending submission
// in the same instant.
func (r *Runner) Run(ctx context.Context) {
	limiter := rate.NewLimiter(rate.Every(r.interval), r.maxInFlight)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		if r.selector.Len() == 0 {
			continue
		}
		if !r.tryAcquire() {
			continue
		}
		go r.runOnce(ctx)
	}
}

func (r *Runner) tryAcquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inFlight >= r.maxInFlight {
		return false
	}
	r.inFlight++
	if r.metrics != nil {
		r.metrics.InFlightRequests.Set(float64(r.inFlight))
	}
	return true
}

func (r *Runner) release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight--
	if r.metrics != nil {
		r.metrics.InFlightRequests.Set(float64(r.inFlight))
	}
}

// runOnce samples four distinct nodes, uses the first three as the relay
// path and the fourth as the target, and sends a get_snodes_for_pubkey
// probe against a freshly generated random key.
func (r *Runner) runOnce(ctx context.Context) {
	defer r.release()

	nodes, err := r.selector.RandomNodes(4)
	if err != nil {
		r.log.Warn().Err(err).Msg("not enough nodes in pool to run a test request")
		return
	}
	relayPath := [3]onion.ServiceNode{nodes[0], nodes[1], nodes[2]}
	target := nodes[3]

	pubkey, err := onion.GenRandomPubKey(false)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to generate probe pubkey")
		return
	}
	body := map[string]interface{}{
		"method": "get_snodes_for_pubkey",
		"params": map[string]string{"pubKey": pubkey.String()},
	}
	if r.difficultyBits > 0 {
		nonce, err := onion.DeriveNonce([]byte(pubkey.String()), r.difficultyBits)
		if err != nil {
			r.log.Warn().Err(err).Msg("failed to derive proof-of-work nonce, sending probe without it")
		} else {
			body["pow_nonce"] = nonce
		}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to marshal probe payload")
		return
	}

	path := onion.OnionPath{
		Node1:  onion.NewNodeHop(relayPath[0]),
		Node2:  onion.NewNodeHop(relayPath[1]),
		Node3:  onion.NewNodeHop(relayPath[2]),
		Target: onion.NewNodeHop(target),
	}

	reqCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	success := r.send(reqCtx, path, payload)

	guardAddr := relayPath[0].String()
	if success {
		r.health.RecordSuccess(guardAddr)
	} else {
		r.health.RecordFailure(guardAddr)
	}

	r.aggregator.Push(Result{Time: time.Now(), Success: success})
}

func (r *Runner) send(ctx context.Context, path onion.OnionPath, payload []byte) bool {
	log := r.log.WithPath(path)

	envelope, sessionKey, err := onion.Build(path, payload)
	if err != nil {
		log.Warn().Err(err).Msg("failed to build onion envelope")
		if r.metrics != nil {
			r.metrics.RecordError(string(onion.KindProtocol))
		}
		return false
	}

	guard := path.Node1.Node()
	req := transport.Request{
		URL:    fmt.Sprintf("https://%s:%d/onion_req/v2", guard.PublicIP, guard.StoragePort),
		Method: "POST",
		Body:   envelope,
	}

	rawBody, err := r.guard.Send(ctx, req)
	if err != nil {
		log.Debug().Err(err).Msg("onion test request failed")
		return false
	}

	if _, err := onion.DecryptResponse(rawBody, sessionKey); err != nil {
		log.Warn().Err(err).Msg("failed to decrypt onion test response")
		if r.metrics != nil {
			r.metrics.RecordError(string(onion.KindCrypto))
		}
		return false
	}

	return true
}

// RefreshLoop periodically refreshes the directory's node pool and
// installs it into the selector, filtering out nodes nodehealth
// currently has banned.
func (r *Runner) RefreshLoop(ctx context.Context, interval time.Duration) {
	refresh := func() {
		if err := r.directory.Refresh(ctx); err != nil {
			r.log.Error().Err(err).Msg("directory refresh failed, retaining previous pool")
			if r.metrics != nil {
				r.metrics.RecordDirectoryRefresh("failure")
			}
			return
		}
		if r.metrics != nil {
			r.metrics.RecordDirectoryRefresh("success")
		}

		nodes := r.directory.Nodes()
		allowed := nodes[:0]
		for _, n := range nodes {
			if r.health.Allowed(n.String()) {
				allowed = append(allowed, n)
			}
		}
		r.selector.SetNodes(allowed)
		r.log.Info().Int("pool_size", len(allowed)).Msg("refreshed node pool")
	}

	refresh()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

// AggregateLoop periodically folds recorded results into a bucket,
// persists it and feeds the in-memory ring.
func (r *Runner) AggregateLoop(ctx context.Context, interval time.Duration, db *ResultsDB) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bucket := r.aggregator.Aggregate(time.Now())
			if r.metrics != nil {
				r.metrics.AggregatorBuckets.Inc()
			}
			if db != nil {
				if err := db.AddEntry(bucket); err != nil {
					r.log.Error().Err(err).Msg("failed to persist aggregated bucket")
				}
			}
		}
	}
}
