// Package driver runs the periodic onion-request test loop, aggregates
// its results and serves them over HTTP.
package driver

import (
	"sync"
	"time"
)

// Result is a single completed onion test request.
type Result struct {
	Time    time.Time
	Success bool
}

// AggregatedBucket summarizes every Result recorded in one aggregation
// window.
type AggregatedBucket struct {
	Time      time.Time `json:"time"`
	Total     int       `json:"total"`
	Successful int      `json:"successful"`
}

// bufferLimit is the capacity of each half of the double buffer. When the
// current half fills it replaces the older half, whose buckets are dropped,
// so between bufferLimit and 2*bufferLimit-1 buckets are retained once the
// first half has filled.
const bufferLimit = 720

// Aggregator buffers raw results and periodically folds them into a
// capped, double-buffered ring of aggregated buckets. Recent results are
// appended under lock from request-completion goroutines; Aggregate runs
// from a single ticker goroutine and appends and rotates under the same
// write lock, so readers never see a half-rotated ring.
type Aggregator struct {
	mu      sync.RWMutex
	recent  []Result
	older   []AggregatedBucket
	current []AggregatedBucket
}

// NewAggregator builds an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Push records one completed request.
func (a *Aggregator) Push(r Result) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recent = append(a.recent, r)
}

// Aggregate folds every Result recorded since the last call into a single
// bucket and appends it to the ring, swapping the older half out once the
// ring reaches bufferLimit.
func (a *Aggregator) Aggregate(now time.Time) AggregatedBucket {
	a.mu.Lock()
	defer a.mu.Unlock()

	bucket := AggregatedBucket{Time: now}
	for _, r := range a.recent {
		bucket.Total++
		if r.Success {
			bucket.Successful++
		}
	}
	a.recent = nil

	a.current = append(a.current, bucket)
	if len(a.current) >= bufferLimit {
		a.older, a.current = a.current, nil
	}

	return bucket
}

// Buckets returns every retained aggregated bucket, oldest first.
func (a *Aggregator) Buckets() []AggregatedBucket {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]AggregatedBucket, 0, len(a.older)+len(a.current))
	out = append(out, a.older...)
	out = append(out, a.current...)
	return out
}
