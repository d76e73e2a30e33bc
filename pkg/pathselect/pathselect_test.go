package pathselect

import (
	"testing"

	"github.com/msgmaxim/onionreq/pkg/onion"
)

func sampleNodes(n int) []onion.ServiceNode {
	nodes := make([]onion.ServiceNode, n)
	for i := range nodes {
		nodes[i] = onion.ServiceNode{
			PublicIP: "10.0.0.1",
			SwarmID:  uint64(i % 3),
		}
	}
	nodes[0].OperatorAddress = foundationOperator
	return nodes
}

func TestRandomPathReturnsThreeNodes(t *testing.T) {
	sel := New(sampleNodes(10), 0)

	path, err := sel.RandomPath()
	if err != nil {
		t.Fatalf("RandomPath failed: %v", err)
	}
	if len(path) != 3 {
		t.Fatalf("path length = %d, want 3", len(path))
	}
}

func TestRandomPathDeterministicWithSeed(t *testing.T) {
	nodes := sampleNodes(20)

	sel1 := New(nodes, 0)
	sel2 := New(nodes, 0)

	p1, err := sel1.RandomPath()
	if err != nil {
		t.Fatalf("RandomPath failed: %v", err)
	}
	p2, err := sel2.RandomPath()
	if err != nil {
		t.Fatalf("RandomPath failed: %v", err)
	}

	if p1 != p2 {
		t.Error("same seed should produce the same path")
	}
}

func TestRandomNodesErrorsWhenPoolTooSmall(t *testing.T) {
	sel := New(sampleNodes(2), 0)
	if _, err := sel.RandomNodes(3); err == nil {
		t.Error("expected error when sampling more nodes than available")
	}
}

func TestRemoveNonFoundationFiltersByOperator(t *testing.T) {
	sel := New(sampleNodes(5), 0)
	sel.RemoveNonFoundation()
	if sel.Len() != 1 {
		t.Errorf("Len() = %d, want 1", sel.Len())
	}
}

func TestTruncate(t *testing.T) {
	sel := New(sampleNodes(10), 0)
	sel.Truncate(4)
	if sel.Len() != 4 {
		t.Errorf("Len() = %d, want 4", sel.Len())
	}
}

func TestSwarmCount(t *testing.T) {
	sel := New(sampleNodes(10), 0)
	if got := sel.SwarmCount(); got != 3 {
		t.Errorf("SwarmCount() = %d, want 3", got)
	}
}
