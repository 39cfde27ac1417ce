package warp

import (
	"sort"

	"github.com/instance-id/hypercalibrate/internal/calib"
)

// mesh is a dense grid of source-space pixel coordinates built from the
// four calibration edges via a Coons patch, with grid[0] the top row,
// grid[rows-1] the bottom row, column 0 the left column and column cols-1
// the right column.
type mesh struct {
	rows, cols int
	grid       [][]Point
}

// edgeSequence returns the ordered pixel-space points of one edge:
// corner_start, its edge points sorted by t, corner_end.
func edgeSequence(c calib.Calibration, edge calib.Edge, srcW, srcH int) []Point {
	pts := c.EdgePointsOn(edge)
	sorted := make([]calib.EdgePoint, len(pts))
	copy(sorted, pts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].T < sorted[j].T })

	seq := make([]Point, 0, len(sorted)+2)
	start, end := edgeCorners(c, edge, srcW, srcH)
	seq = append(seq, start)
	for _, ep := range sorted {
		x, y := ep.X*float64(srcW), ep.Y*float64(srcH)
		seq = append(seq, Point{X: x, Y: y})
	}
	seq = append(seq, end)
	return seq
}

// edgeCorners returns the pixel-space (start, end) corner pair for an edge
// in the calibration's own winding order (TL->TR->BR->BL).
func edgeCorners(c calib.Calibration, edge calib.Edge, srcW, srcH int) (Point, Point) {
	px := func(p calib.Point) Point {
		x, y := p.Pixel(srcW, srcH)
		return Point{X: x, Y: y}
	}
	switch edge {
	case calib.EdgeTop:
		return px(c.Corners[calib.CornerTL]), px(c.Corners[calib.CornerTR])
	case calib.EdgeRight:
		return px(c.Corners[calib.CornerTR]), px(c.Corners[calib.CornerBR])
	case calib.EdgeBottom:
		return px(c.Corners[calib.CornerBR]), px(c.Corners[calib.CornerBL])
	case calib.EdgeLeft:
		return px(c.Corners[calib.CornerBL]), px(c.Corners[calib.CornerTL])
	default:
		return Point{}, Point{}
	}
}

func reversed(pts []Point) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

// resamplePolyline linearly resamples a polyline to exactly target points,
// preserving the first and last points exactly.
func resamplePolyline(pts []Point, target int) []Point {
	n := len(pts)
	if target < 2 {
		target = 2
	}
	if n == 1 {
		out := make([]Point, target)
		for i := range out {
			out[i] = pts[0]
		}
		return out
	}

	out := make([]Point, target)
	for k := 0; k < target; k++ {
		s := float64(k) / float64(target-1)
		pos := s * float64(n-1)
		i := int(pos)
		if i >= n-1 {
			out[k] = pts[n-1]
			continue
		}
		frac := pos - float64(i)
		out[k] = lerpPoint(pts[i], pts[i+1], frac)
	}
	return out
}

// buildMesh constructs the Coons-patch grid from the calibration's four
// edges, per the edge-concatenation, canonical-direction, and bilinear
// corner-blend rules.
func buildMesh(c calib.Calibration, srcW, srcH int) mesh {
	top := edgeSequence(c, calib.EdgeTop, srcW, srcH)
	right := edgeSequence(c, calib.EdgeRight, srcW, srcH)
	bottom := reversed(edgeSequence(c, calib.EdgeBottom, srcW, srcH))
	left := reversed(edgeSequence(c, calib.EdgeLeft, srcW, srcH))

	cols := len(top)
	if len(bottom) > cols {
		cols = len(bottom)
	}
	rows := len(left)
	if len(right) > rows {
		rows = len(right)
	}
	if cols < 2 {
		cols = 2
	}
	if rows < 2 {
		rows = 2
	}

	top = resamplePolyline(top, cols)
	bottom = resamplePolyline(bottom, cols)
	left = resamplePolyline(left, rows)
	right = resamplePolyline(right, rows)

	tl, tr := top[0], top[cols-1]
	bl, br := bottom[0], bottom[cols-1]

	grid := make([][]Point, rows)
	for i := 0; i < rows; i++ {
		v := float64(i) / float64(rows-1)
		row := make([]Point, cols)
		for j := 0; j < cols; j++ {
			u := float64(j) / float64(cols-1)

			lc := lerpPoint(top[j], bottom[j], v)
			ld := lerpPoint(left[i], right[i], u)
			b := coonsCorner(tl, tr, bl, br, u, v)

			row[j] = Point{
				X: lc.X + ld.X - b.X,
				Y: lc.Y + ld.Y - b.Y,
			}
		}
		grid[i] = row
	}

	return mesh{rows: rows, cols: cols, grid: grid}
}

// coonsCorner bilinearly blends the four patch corners at (u,v).
func coonsCorner(tl, tr, bl, br Point, u, v float64) Point {
	w00 := (1 - u) * (1 - v)
	w10 := u * (1 - v)
	w01 := (1 - u) * v
	w11 := u * v
	return Point{
		X: w00*tl.X + w10*tr.X + w01*bl.X + w11*br.X,
		Y: w00*tl.Y + w10*tr.Y + w01*bl.Y + w11*br.Y,
	}
}

// sample bilinearly blends the grid at normalized (u,v) in [0,1], locating
// the enclosing cell by one integer division plus a clamp.
func (m mesh) sample(u, v float64) Point {
	u = clampFloat(u, 0, 1)
	v = clampFloat(v, 0, 1)

	fu := u * float64(m.cols-1)
	fv := v * float64(m.rows-1)
	j := clampInt(int(fu), 0, m.cols-2)
	i := clampInt(int(fv), 0, m.rows-2)
	du := fu - float64(j)
	dv := fv - float64(i)

	p00 := m.grid[i][j]
	p10 := m.grid[i][j+1]
	p01 := m.grid[i+1][j]
	p11 := m.grid[i+1][j+1]

	w00 := (1 - du) * (1 - dv)
	w10 := du * (1 - dv)
	w01 := (1 - du) * dv
	w11 := du * dv

	return Point{
		X: w00*p00.X + w10*p10.X + w01*p01.X + w11*p11.X,
		Y: w00*p00.Y + w10*p10.Y + w01*p01.Y + w11*p11.Y,
	}
}
