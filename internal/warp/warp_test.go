package warp

import (
	"math"
	"testing"

	"github.com/instance-id/hypercalibrate/internal/calib"
)

func approxPoint(t *testing.T, got, want Point, tol float64, msg string) {
	t.Helper()
	if math.Abs(got.X-want.X) > tol || math.Abs(got.Y-want.Y) > tol {
		t.Fatalf("%s: got %+v want %+v (tol %v)", msg, got, want, tol)
	}
}

func TestHomographyIdentity(t *testing.T) {
	quad := [4]Point{{0, 0}, {100, 0}, {100, 100}, {0, 100}}
	m, ok := computeHomography(quad, quad)
	if !ok {
		t.Fatal("expected non-singular system")
	}
	x, y := m.Apply(37, 61)
	approxPoint(t, Point{X: x, Y: y}, Point{X: 37, Y: 61}, 1e-2, "identity homography")
}

func TestHomographyRoundTrip(t *testing.T) {
	src := [4]Point{{10, 12}, {300, 5}, {290, 210}, {8, 205}}
	dst := [4]Point{{0, 0}, {320, 0}, {320, 240}, {0, 240}}

	fwd, ok := computeHomography(src, dst)
	if !ok {
		t.Fatal("forward homography singular")
	}
	inv, ok := computeHomography(dst, src)
	if !ok {
		t.Fatal("inverse homography singular")
	}

	pts := []Point{{100, 100}, {50, 50}, {270, 200}, {20, 220}}
	for _, p := range pts {
		mx, my := fwd.Apply(p.X, p.Y)
		rx, ry := inv.Apply(mx, my)
		approxPoint(t, Point{X: rx, Y: ry}, p, 1e-2, "round trip")
	}
}

func insetCalibration() calib.Calibration {
	c := calib.Default()
	return c
}

func TestCornerPreservationHomography(t *testing.T) {
	c := insetCalibration()
	const srcW, srcH, dstW, dstH = 100, 100, 100, 100
	tr := Build(c, srcW, srcH, dstW, dstH)

	corners := [4]Point{}
	for i, p := range c.Corners {
		x, y := p.Pixel(srcW, srcH)
		corners[i] = Point{X: x, Y: y}
	}

	check := func(x, y int, want Point, label string) {
		sx, sy := tr.At(x, y)
		approxPoint(t, Point{X: float64(sx), Y: float64(sy)}, want, 1.0, label)
	}
	check(0, 0, corners[calib.CornerTL], "TL")
	check(dstW-1, 0, corners[calib.CornerTR], "TR")
	check(dstW-1, dstH-1, corners[calib.CornerBR], "BR")
	check(0, dstH-1, corners[calib.CornerBL], "BL")
}

func TestCornerPreservationMesh(t *testing.T) {
	c := insetCalibration()
	c.AddEdgePoint(calib.EdgeTop, 0.5, 0.05)
	const srcW, srcH, dstW, dstH = 100, 100, 100, 100
	tr := Build(c, srcW, srcH, dstW, dstH)

	corners := [4]Point{}
	for i, p := range c.Corners {
		x, y := p.Pixel(srcW, srcH)
		corners[i] = Point{X: x, Y: y}
	}

	check := func(x, y int, want Point, label string) {
		sx, sy := tr.At(x, y)
		approxPoint(t, Point{X: float64(sx), Y: float64(sy)}, want, 1.0, label)
	}
	check(0, 0, corners[calib.CornerTL], "TL")
	check(dstW-1, 0, corners[calib.CornerTR], "TR")
	check(dstW-1, dstH-1, corners[calib.CornerBR], "BR")
	check(0, dstH-1, corners[calib.CornerBL], "BL")
}

func TestMeshEdgePinning(t *testing.T) {
	c := insetCalibration()
	const srcW, srcH, dstW, dstH = 100, 100, 100, 100

	tl := c.Corners[calib.CornerTL]
	tr := c.Corners[calib.CornerTR]
	linearY := (tl.Y + tr.Y) / 2 * srcH

	c.AddEdgePoint(calib.EdgeTop, 0.5, 0.30)
	transform := Build(c, srcW, srcH, dstW, dstH)

	_, sy := transform.At(dstW/2, 0)
	if float64(sy) <= linearY {
		t.Fatalf("expected top-center source y (%v) to exceed linear interpolation (%v)", sy, linearY)
	}
}

func TestTransformCarriesCornerHomography(t *testing.T) {
	c := insetCalibration()
	const srcW, srcH, dstW, dstH = 200, 200, 100, 100
	tr := Build(c, srcW, srcH, dstW, dstH)

	// The TL corner in source space must land on the destination origin.
	sx, sy := c.Corners[calib.CornerTL].Pixel(srcW, srcH)
	dx, dy := tr.SourceToDest(sx, sy)
	approxPoint(t, Point{X: dx, Y: dy}, Point{X: 0, Y: 0}, 1e-2, "TL corner forward")

	// Round trip through both matrices returns the original point.
	bx, by := tr.DestToSource(dx, dy)
	approxPoint(t, Point{X: bx, Y: by}, Point{X: sx, Y: sy}, 1e-2, "TL corner round trip")

	px, py := tr.SourceToDest(100, 90)
	rx, ry := tr.DestToSource(px, py)
	approxPoint(t, Point{X: rx, Y: ry}, Point{X: 100, Y: 90}, 1e-2, "interior round trip")
}

func TestApplySolidColorIsUnchanged(t *testing.T) {
	const n = 4
	src := make([]byte, n*n*3)
	for i := range src {
		if i%3 == 0 {
			src[i] = 255
		}
	}
	c := calib.Default()
	tr := Build(c, n, n, n, n)

	dst := make([]byte, n*n*3)
	Apply(nil, 2, tr, src, n, n, 3, dst, false)

	for i, b := range dst {
		if b != src[i] {
			t.Fatalf("byte %d: got %d want %d (solid color must warp unchanged)", i, b, src[i])
		}
	}
}

func TestApplyWhiteBorderBlackInterior(t *testing.T) {
	const n = 100
	src := make([]byte, n*n*3)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			i := (y*n + x) * 3
			if x == 0 || y == 0 || x == n-1 || y == n-1 {
				src[i], src[i+1], src[i+2] = 255, 255, 255
			}
		}
	}

	c := calib.Default()
	c.Corners = [4]calib.Point{
		{X: 0.1, Y: 0.1}, {X: 0.9, Y: 0.1}, {X: 0.9, Y: 0.9}, {X: 0.1, Y: 0.9},
	}
	tr := Build(c, n, n, n, n)

	dst := make([]byte, n*n*3)
	Apply(nil, 4, tr, src, n, n, 3, dst, false)

	at := func(x, y int) (byte, byte, byte) {
		i := (y*n + x) * 3
		return dst[i], dst[i+1], dst[i+2]
	}
	corners := [4][2]int{{0, 0}, {n - 1, 0}, {n - 1, n - 1}, {0, n - 1}}
	for _, c := range corners {
		r, g, b := at(c[0], c[1])
		if r < 240 || g < 240 || b < 240 {
			t.Fatalf("corner %v not white: %d,%d,%d", c, r, g, b)
		}
	}
	r, g, b := at(n/2, n/2)
	if r > 15 || g > 15 || b > 15 {
		t.Fatalf("center not black: %d,%d,%d", r, g, b)
	}
}
