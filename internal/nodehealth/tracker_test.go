package nodehealth

import (
	"testing"
	"time"
)

func testTracker() *Tracker {
	return NewTracker(Config{
		FailuresPerSecond: 100,
		BurstSize:         2,
		CleanupInterval:   time.Hour,
		BanDuration:       time.Hour,
		MaxViolations:     2,
	})
}

func TestAllowedDefaultsTrue(t *testing.T) {
	tr := testTracker()
	defer tr.Stop()

	if !tr.Allowed("1.2.3.4:8080") {
		t.Error("unseen node should be allowed")
	}
}

func TestRecordFailureBansAfterMaxViolations(t *testing.T) {
	tr := testTracker()
	defer tr.Stop()

	addr := "1.2.3.4:8080"
	for i := 0; i < 2; i++ {
		tr.RecordFailure(addr)
	}
	for i := 0; i < 3; i++ {
		tr.RecordFailure(addr)
	}

	if tr.Allowed(addr) {
		t.Error("node should be banned after repeated failures exhaust its burst allowance")
	}
	if !tr.IsBanned(addr) {
		t.Error("IsBanned should report true for a banned node")
	}
}

func TestRecordSuccessResetsViolations(t *testing.T) {
	tr := testTracker()
	defer tr.Stop()

	addr := "1.2.3.4:8080"
	// Two failures use up the burst allowance; the third is one violation.
	for i := 0; i < 3; i++ {
		tr.RecordFailure(addr)
	}
	tr.RecordSuccess(addr)
	// With the count reset this is again one violation, below MaxViolations;
	// without the reset it would be the second and ban the node.
	tr.RecordFailure(addr)

	stats := tr.Stats()
	if stats.BannedNodes != 0 {
		t.Errorf("BannedNodes = %d, want 0", stats.BannedNodes)
	}
}
