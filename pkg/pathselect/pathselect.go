// Package pathselect samples service nodes into onion paths.
package pathselect

import (
	"math/rand"

	"github.com/msgmaxim/onionreq/pkg/onion"
)

// foundationOperator is the Loki Foundation's known operator address, used
// to restrict the pool to foundation-run nodes for controlled test runs.
const foundationOperator = "LDoptfyQB3YHbS9cnt2wHdTTj2wtZGPuM48evCFwZpomVajQw4eJ6mDCpXeUNTxsqbTiYytnqEDQNin3XGwp3nReMooMaWG"

// Selector samples paths from a node pool with a seeded PRNG. The
// protocol's original implementation seeds deterministically for
// reproducible testing; New(nodes, 0) reproduces that. There are no consensus bandwidth
// weights in this protocol; every node is equally likely to be chosen.
type Selector struct {
	nodes []onion.ServiceNode
	rng   *rand.Rand
}

// New builds a Selector over a copy of nodes, its PRNG seeded with seed.
func New(nodes []onion.ServiceNode, seed int64) *Selector {
	return &Selector{
		nodes: append([]onion.ServiceNode{}, nodes...),
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// SetNodes replaces the pool the selector draws from, e.g. after a
// directory refresh.
func (s *Selector) SetNodes(nodes []onion.ServiceNode) {
	s.nodes = append([]onion.ServiceNode{}, nodes...)
}

// Len reports the current pool size.
func (s *Selector) Len() int { return len(s.nodes) }

// RemoveNonFoundation retains only nodes run by the foundation operator.
func (s *Selector) RemoveNonFoundation() {
	filtered := s.nodes[:0]
	for _, n := range s.nodes {
		if n.OperatorAddress == foundationOperator {
			filtered = append(filtered, n)
		}
	}
	s.nodes = filtered
}

// Truncate caps the pool at length n.
func (s *Selector) Truncate(n int) {
	if n < len(s.nodes) {
		s.nodes = s.nodes[:n]
	}
}

// RandomNodes draws n distinct nodes from the pool without replacement
// using a partial Fisher-Yates shuffle over a copy of the pool: only the
// first n positions are shuffled.
func (s *Selector) RandomNodes(n int) ([]onion.ServiceNode, error) {
	if n > len(s.nodes) {
		return nil, onion.NewError(onion.KindProtocol, "not enough nodes in pool for requested sample size", nil)
	}
	pool := append([]onion.ServiceNode{}, s.nodes...)
	for i := 0; i < n; i++ {
		j := i + s.rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n], nil
}

// RandomPath draws exactly three distinct nodes for an onion path's three
// relay hops.
func (s *Selector) RandomPath() ([3]onion.ServiceNode, error) {
	var path [3]onion.ServiceNode
	nodes, err := s.RandomNodes(3)
	if err != nil {
		return path, err
	}
	copy(path[:], nodes)
	return path, nil
}

// SwarmCount reports the number of distinct swarm IDs represented in the
// pool.
func (s *Selector) SwarmCount() int {
	seen := make(map[uint64]struct{})
	for _, n := range s.nodes {
		seen[n.SwarmID] = struct{}{}
	}
	return len(seen)
}
