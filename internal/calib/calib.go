// Package calib models the four-corner-plus-dynamic-edge-midpoint
// calibration geometry: the operator-placed landmarks that describe where
// the physical screen sits in the captured frame.
package calib

import "sort"

// Edge names which side of the calibration quad a point lies on. Corners
// are ordered TL, TR, BR, BL and edges are oriented TL->TR->BR->BL.
type Edge int

const (
	EdgeTop Edge = iota
	EdgeRight
	EdgeBottom
	EdgeLeft
)

func (e Edge) valid() bool { return e >= EdgeTop && e <= EdgeLeft }

// Corner indices into Calibration.Corners, in TL,TR,BR,BL order.
const (
	CornerTL = 0
	CornerTR = 1
	CornerBR = 2
	CornerBL = 3
)

// firstEdgePointID is reserved as the start of the monotonic edge-point
// counter; ids 0..3 are reserved for corners.
const firstEdgePointID = 100

// Point is a normalized image location, both components in [0,1].
type Point struct {
	X, Y float64
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Pixel converts a normalized point to pixel space for the given output
// size.
func (p Point) Pixel(w, h int) (float64, float64) {
	return p.X * float64(w), p.Y * float64(h)
}

// EdgePoint is a user-placed landmark living on one of the four edges of
// the calibration quad, used to bend the warp locally.
type EdgePoint struct {
	ID   int
	Edge Edge
	T    float64
	X, Y float64
}

// Calibration is the full set of operator-placed landmarks plus the
// enable flag gating whether the warp is applied at all.
type Calibration struct {
	Corners    [4]Point
	EdgePoints []EdgePoint
	NextID     int
	Enabled    bool
}

// Default returns a calibration with corners inset by a 10% margin, no
// edge points, and warping enabled.
func Default() Calibration {
	const margin = 0.10
	return Calibration{
		Corners: [4]Point{
			{X: margin, Y: margin},
			{X: 1 - margin, Y: margin},
			{X: 1 - margin, Y: 1 - margin},
			{X: margin, Y: 1 - margin},
		},
		EdgePoints: nil,
		NextID:     firstEdgePointID,
		Enabled:    true,
	}
}

// Clone returns a deep copy so callers can mutate a snapshot without
// affecting the shared calibration (edge points are a slice).
func (c Calibration) Clone() Calibration {
	cp := c
	if len(c.EdgePoints) > 0 {
		cp.EdgePoints = make([]EdgePoint, len(c.EdgePoints))
		copy(cp.EdgePoints, c.EdgePoints)
	}
	return cp
}

// edgeEndpoints returns the pixel-space (in normalized [0,1] units, same
// space as corners) start and end point of the given edge, in the
// TL->TR->BR->BL->TL winding order.
func (c *Calibration) edgeEndpoints(e Edge) (a, b Point) {
	switch e {
	case EdgeTop:
		return c.Corners[CornerTL], c.Corners[CornerTR]
	case EdgeRight:
		return c.Corners[CornerTR], c.Corners[CornerBR]
	case EdgeBottom:
		return c.Corners[CornerBR], c.Corners[CornerBL]
	case EdgeLeft:
		return c.Corners[CornerBL], c.Corners[CornerTL]
	default:
		return Point{}, Point{}
	}
}

// projectT computes t = clamp((p-a)."(b-a)/|b-a|^2, 0, 1), the position of
// p along the edge vector a->b.
func projectT(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	denom := dx*dx + dy*dy
	if denom == 0 {
		return 0
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / denom
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// sortEdgePoints stable-sorts edge points ascending by (edge, t).
func (c *Calibration) sortEdgePoints() {
	sort.SliceStable(c.EdgePoints, func(i, j int) bool {
		pi, pj := c.EdgePoints[i], c.EdgePoints[j]
		if pi.Edge != pj.Edge {
			return pi.Edge < pj.Edge
		}
		return pi.T < pj.T
	})
}

// AddEdgePoint allocates a stable id, computes t by projecting (x,y) onto
// the given edge using the current corners, appends the point, and
// re-sorts by (edge, t). Coordinates are clamped to [0,1].
func (c *Calibration) AddEdgePoint(edge Edge, x, y float64) EdgePoint {
	if !edge.valid() {
		edge = EdgeTop
	}
	x, y = clamp01(x), clamp01(y)
	p := Point{X: x, Y: y}
	a, b := c.edgeEndpoints(edge)
	t := projectT(p, a, b)

	ep := EdgePoint{
		ID:   c.NextID,
		Edge: edge,
		T:    t,
		X:    x,
		Y:    y,
	}
	c.NextID++
	c.EdgePoints = append(c.EdgePoints, ep)
	c.sortEdgePoints()
	return ep
}

// RemoveEdgePoint deletes the point with the given id. NextID is never
// decremented or reissued.
func (c *Calibration) RemoveEdgePoint(id int) bool {
	for i, ep := range c.EdgePoints {
		if ep.ID == id {
			c.EdgePoints = append(c.EdgePoints[:i], c.EdgePoints[i+1:]...)
			return true
		}
	}
	return false
}

// UpdatePoint moves the point (corner or edge point) identified by id to
// (x,y), clamped to [0,1]. For a corner id (0..3) this replaces the
// corner in place; corner motion does not recompute other points' t.
// For an edge-point id, t is recomputed for the owning edge using the
// *current* corners.
// Returns false if id does not name a known corner or edge point.
func (c *Calibration) UpdatePoint(id int, x, y float64) bool {
	x, y = clamp01(x), clamp01(y)

	if id >= CornerTL && id <= CornerBL {
		c.Corners[id] = Point{X: x, Y: y}
		return true
	}

	for i := range c.EdgePoints {
		if c.EdgePoints[i].ID != id {
			continue
		}
		ep := &c.EdgePoints[i]
		ep.X, ep.Y = x, y
		a, b := c.edgeEndpoints(ep.Edge)
		ep.T = projectT(Point{X: x, Y: y}, a, b)
		c.sortEdgePoints()
		return true
	}
	return false
}

// Reset replaces the calibration with the default inset rectangle, no
// edge points, next id reset, and enabled.
func (c *Calibration) Reset() {
	*c = Default()
}

// EdgePointsOn returns the edge points on the given edge, already sorted
// by t (callers should not mutate the returned slice's elements).
func (c *Calibration) EdgePointsOn(edge Edge) []EdgePoint {
	var out []EdgePoint
	for _, ep := range c.EdgePoints {
		if ep.Edge == edge {
			out = append(out, ep)
		}
	}
	return out
}
