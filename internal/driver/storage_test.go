package driver

import (
	"testing"
	"time"
)

func TestAddEntryAndGetEntriesRoundTrip(t *testing.T) {
	db, err := OpenResultsDB(":memory:")
	if err != nil {
		t.Fatalf("OpenResultsDB failed: %v", err)
	}
	defer db.Close()

	bucket := AggregatedBucket{Time: time.UnixMilli(1700000000000), Total: 10, Successful: 8}
	if err := db.AddEntry(bucket); err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}

	entries, err := db.GetEntries()
	if err != nil {
		t.Fatalf("GetEntries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].Total != 10 || entries[0].Successful != 8 {
		t.Errorf("entries[0] = %+v, want Total=10 Successful=8", entries[0])
	}
	if !entries[0].Time.Equal(bucket.Time) {
		t.Errorf("entries[0].Time = %v, want %v", entries[0].Time, bucket.Time)
	}
}

func TestGetEntriesOrdersByTimestamp(t *testing.T) {
	db, err := OpenResultsDB(":memory:")
	if err != nil {
		t.Fatalf("OpenResultsDB failed: %v", err)
	}
	defer db.Close()

	later := AggregatedBucket{Time: time.UnixMilli(2000), Total: 1, Successful: 1}
	earlier := AggregatedBucket{Time: time.UnixMilli(1000), Total: 2, Successful: 0}
	if err := db.AddEntry(later); err != nil {
		t.Fatal(err)
	}
	if err := db.AddEntry(earlier); err != nil {
		t.Fatal(err)
	}

	entries, err := db.GetEntries()
	if err != nil {
		t.Fatalf("GetEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Total != 2 {
		t.Errorf("entries[0].Total = %d, want 2 (earlier bucket first)", entries[0].Total)
	}
}
