package calib

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestDefaultCalibration(t *testing.T) {
	c := Default()
	if !c.Enabled {
		t.Fatal("default calibration should be enabled")
	}
	if c.NextID != firstEdgePointID {
		t.Fatalf("NextID = %d, want %d", c.NextID, firstEdgePointID)
	}
	if len(c.EdgePoints) != 0 {
		t.Fatalf("expected no edge points, got %d", len(c.EdgePoints))
	}
	for _, corner := range c.Corners {
		if corner.X < 0 || corner.X > 1 || corner.Y < 0 || corner.Y > 1 {
			t.Fatalf("corner out of [0,1]: %+v", corner)
		}
	}
}

func TestAddEdgePointOnLineComputesExactT(t *testing.T) {
	c := Default()
	a, b := c.edgeEndpoints(EdgeTop)
	mid := Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}

	ep := c.AddEdgePoint(EdgeTop, mid.X, mid.Y)

	wantX := a.X + ep.T*(b.X-a.X)
	wantY := a.Y + ep.T*(b.Y-a.Y)
	if !almostEqual(ep.X, wantX, 1e-6) || !almostEqual(ep.Y, wantY, 1e-6) {
		t.Fatalf("edge point %+v not on line a=%v b=%v t=%v", ep, a, b, ep.T)
	}
	if !almostEqual(ep.T, 0.5, 1e-6) {
		t.Fatalf("t = %v, want ~0.5", ep.T)
	}
	if ep.ID < firstEdgePointID {
		t.Fatalf("id %d should be >= %d", ep.ID, firstEdgePointID)
	}
}

func TestEdgePointsSortedByT(t *testing.T) {
	c := Default()
	c.AddEdgePoint(EdgeTop, 0.8, 0.1)
	c.AddEdgePoint(EdgeTop, 0.2, 0.1)
	c.AddEdgePoint(EdgeTop, 0.5, 0.1)

	pts := c.EdgePointsOn(EdgeTop)
	for i := 1; i < len(pts); i++ {
		if pts[i].T < pts[i-1].T {
			t.Fatalf("edge points not sorted by t: %+v", pts)
		}
	}
}

func TestRemoveEdgePointNeverReissuesID(t *testing.T) {
	c := Default()
	ep := c.AddEdgePoint(EdgeTop, 0.5, 0.1)
	if !c.RemoveEdgePoint(ep.ID) {
		t.Fatal("expected removal to succeed")
	}
	if c.RemoveEdgePoint(ep.ID) {
		t.Fatal("removing twice should fail the second time")
	}
	next := c.AddEdgePoint(EdgeTop, 0.5, 0.1)
	if next.ID == ep.ID {
		t.Fatalf("id %d was reissued", ep.ID)
	}
	if c.NextID <= ep.ID {
		t.Fatalf("NextID %d did not advance past removed id %d", c.NextID, ep.ID)
	}
}

func TestUpdateCornerDoesNotRecomputeEdgePointT(t *testing.T) {
	c := Default()
	ep := c.AddEdgePoint(EdgeTop, 0.5, 0.1)
	before := ep.T

	c.UpdatePoint(CornerTL, 0.0, 0.0)

	var after float64
	for _, p := range c.EdgePoints {
		if p.ID == ep.ID {
			after = p.T
		}
	}
	if after != before {
		t.Fatalf("corner drag recomputed t: before=%v after=%v (only the point's own move recomputes t)", before, after)
	}
}

func TestUpdatePointRecomputesOwnT(t *testing.T) {
	c := Default()
	ep := c.AddEdgePoint(EdgeTop, 0.5, 0.1)

	c.UpdatePoint(ep.ID, 0.9, 0.1)

	var after EdgePoint
	for _, p := range c.EdgePoints {
		if p.ID == ep.ID {
			after = p
		}
	}
	if after.T <= ep.T {
		t.Fatalf("expected t to increase after moving point further along edge, got %v -> %v", ep.T, after.T)
	}
}

func TestClampingOutOfRangeWrites(t *testing.T) {
	c := Default()
	c.UpdatePoint(CornerTL, -0.5, 1.5)
	corner := c.Corners[CornerTL]
	if corner.X != 0 || corner.Y != 1 {
		t.Fatalf("expected clamp to [0,1], got %+v", corner)
	}

	ep := c.AddEdgePoint(EdgeTop, 2.0, -2.0)
	if ep.X != 1 || ep.Y != 0 {
		t.Fatalf("expected clamped edge point, got %+v", ep)
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	c := Default()
	c.AddEdgePoint(EdgeTop, 0.5, 0.1)
	c.UpdatePoint(CornerTL, 0, 0)
	c.Enabled = false

	c.Reset()

	if !c.Enabled {
		t.Fatal("reset should re-enable")
	}
	if len(c.EdgePoints) != 0 {
		t.Fatal("reset should clear edge points")
	}
	if c.NextID != firstEdgePointID {
		t.Fatalf("reset NextID = %d, want %d", c.NextID, firstEdgePointID)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	c := Default()
	c.AddEdgePoint(EdgeTop, 0.5, 0.1)

	clone := c.Clone()
	clone.EdgePoints[0].X = 0.99

	if c.EdgePoints[0].X == 0.99 {
		t.Fatal("clone mutation leaked into original")
	}
}
