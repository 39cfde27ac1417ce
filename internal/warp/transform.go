package warp

import "github.com/instance-id/hypercalibrate/internal/calib"

// Transform is a precomputed destination-pixel -> source-coordinate lookup
// table, plus the output dimensions it was built for. LUT is a flat array
// of (srcX, srcY) float32 pairs, row-major, length Width*Height*2.
// Matrix and Inverse hold the corner homography (source->destination and
// destination->source) for point-to-point queries; in mesh mode they
// describe the corner mapping only, not the edge-point deflections the
// LUT carries.
type Transform struct {
	Width, Height int
	Matrix        Mat3
	Inverse       Mat3
	LUT           []float32
}

// At returns the source coordinate for destination pixel (x,y).
func (t *Transform) At(x, y int) (float32, float32) {
	idx := (y*t.Width + x) * 2
	return t.LUT[idx], t.LUT[idx+1]
}

// SourceToDest maps a source-frame pixel coordinate into the rectified
// output frame through the corner homography.
func (t *Transform) SourceToDest(x, y float64) (float64, float64) {
	return t.Matrix.Apply(x, y)
}

// DestToSource maps a rectified output pixel coordinate back onto the
// source frame through the inverse corner homography.
func (t *Transform) DestToSource(x, y float64) (float64, float64) {
	return t.Inverse.Apply(x, y)
}

// identityTransform returns a transform whose LUT maps every destination
// pixel onto itself, clamped to the source rectangle.
func identityTransform(srcW, srcH, dstW, dstH int) *Transform {
	lut := make([]float32, dstW*dstH*2)
	for y := 0; y < dstH; y++ {
		sy := float32(clampInt(y, 0, srcH-1))
		for x := 0; x < dstW; x++ {
			sx := float32(clampInt(x, 0, srcW-1))
			idx := (y*dstW + x) * 2
			lut[idx] = sx
			lut[idx+1] = sy
		}
	}
	return &Transform{Width: dstW, Height: dstH, Matrix: identity3, Inverse: identity3, LUT: lut}
}

// cornerMatrices solves the forward (source->destination) and inverse
// corner homographies for the calibration. A singular system in either
// direction yields the identity pair.
func cornerMatrices(c calib.Calibration, srcW, srcH, dstW, dstH int) (fwd, inv Mat3, ok bool) {
	dst := [4]Point{
		{X: 0, Y: 0},
		{X: float64(dstW), Y: 0},
		{X: float64(dstW), Y: float64(dstH)},
		{X: 0, Y: float64(dstH)},
	}
	var src [4]Point
	for i, p := range c.Corners {
		x, y := p.Pixel(srcW, srcH)
		src[i] = Point{X: x, Y: y}
	}

	fwd, fok := computeHomography(src, dst)
	inv, iok := computeHomography(dst, src)
	if !fok || !iok {
		return identity3, identity3, false
	}
	return fwd, inv, true
}

// Build computes the destination->source LUT for the given calibration.
// Four-corner mode (no edge points) uses a single homography; otherwise a
// Coons-patch mesh is built from the four edges. srcW/srcH is the captured
// frame size that calibration corners/edge points are normalized against;
// dstW/dstH is the rectified output frame size.
func Build(c calib.Calibration, srcW, srcH, dstW, dstH int) *Transform {
	if len(c.EdgePoints) == 0 {
		return buildHomographyTransform(c, srcW, srcH, dstW, dstH)
	}
	return buildMeshTransform(c, srcW, srcH, dstW, dstH)
}

func buildHomographyTransform(c calib.Calibration, srcW, srcH, dstW, dstH int) *Transform {
	fwd, minv, ok := cornerMatrices(c, srcW, srcH, dstW, dstH)
	if !ok {
		return identityTransform(srcW, srcH, dstW, dstH)
	}

	lut := make([]float32, dstW*dstH*2)
	for y := 0; y < dstH; y++ {
		for x := 0; x < dstW; x++ {
			sx, sy := minv.Apply(float64(x), float64(y))
			sx = clampFloat(sx, 0, float64(srcW-1))
			sy = clampFloat(sy, 0, float64(srcH-1))
			idx := (y*dstW + x) * 2
			lut[idx] = float32(sx)
			lut[idx+1] = float32(sy)
		}
	}
	return &Transform{Width: dstW, Height: dstH, Matrix: fwd, Inverse: minv, LUT: lut}
}

func buildMeshTransform(c calib.Calibration, srcW, srcH, dstW, dstH int) *Transform {
	fwd, minv, _ := cornerMatrices(c, srcW, srcH, dstW, dstH)
	m := buildMesh(c, srcW, srcH)

	lut := make([]float32, dstW*dstH*2)
	for y := 0; y < dstH; y++ {
		v := float64(y) / float64(dstH-1)
		for x := 0; x < dstW; x++ {
			u := float64(x) / float64(dstW-1)
			p := m.sample(u, v)
			sx := clampFloat(p.X, 0, float64(srcW-1))
			sy := clampFloat(p.Y, 0, float64(srcH-1))
			idx := (y*dstW + x) * 2
			lut[idx] = float32(sx)
			lut[idx+1] = float32(sy)
		}
	}
	return &Transform{Width: dstW, Height: dstH, Matrix: fwd, Inverse: minv, LUT: lut}
}
