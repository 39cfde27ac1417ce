package sysstats

import "testing"

func TestCollectReturnsNoError(t *testing.T) {
	c := NewCollector()
	snap, err := c.Collect()
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if snap.RAMPercent < 0 || snap.RAMPercent > 100 {
		t.Fatalf("RAMPercent out of range: %v", snap.RAMPercent)
	}
	if snap.DiskPercent < 0 || snap.DiskPercent > 100 {
		t.Fatalf("DiskPercent out of range: %v", snap.DiskPercent)
	}
}
