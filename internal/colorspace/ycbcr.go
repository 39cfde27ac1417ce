// Package colorspace converts captured pixel data (YUYV, MJPEG, BGR24) into
// packed RGB24, and RGB24 back into YUYV for loopback output.
package colorspace

// Matrix identifies which YCbCr encoding coefficients to use.
type Matrix int

const (
	BT601 Matrix = iota
	BT709
	BT2020
)

// Range identifies whether luma/chroma occupy the limited (16..235/16..240)
// or full (0..255) byte range.
type Range int

const (
	Limited Range = iota
	Full
)

func clampByte(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

// yuyvToRGBFast is the default BT.601 fast path with fixed-point
// coefficients scaled by 256:
//
//	R = Y + (359*V)>>8
//	G = Y - (88*U + 183*V)>>8
//	B = Y + (454*U)>>8
//
// U and V are biased by -128. Two YUYV pixels share one (U,V) pair; this
// emits two RGB triplets per four input bytes.
func yuyvToRGBFast(yuyv []byte, rgb []byte) {
	pairs := len(yuyv) / 4
	if max := len(rgb) / 6; pairs > max {
		pairs = max
	}
	for i := 0; i < pairs; i++ {
		y0 := int(yuyv[i*4+0])
		u := int(yuyv[i*4+1]) - 128
		y1 := int(yuyv[i*4+2])
		v := int(yuyv[i*4+3]) - 128

		rDelta := (359 * v) >> 8
		gDelta := (88*u + 183*v) >> 8
		bDelta := (454 * u) >> 8

		o := i * 6
		rgb[o+0] = clampByte(y0 + rDelta)
		rgb[o+1] = clampByte(y0 - gDelta)
		rgb[o+2] = clampByte(y0 + bDelta)
		rgb[o+3] = clampByte(y1 + rDelta)
		rgb[o+4] = clampByte(y1 - gDelta)
		rgb[o+5] = clampByte(y1 + bDelta)
	}
}

// matrixCoeffs holds the fixed-point (scaled by 256) YCbCr->RGB
// coefficients for a given matrix standard.
type matrixCoeffs struct {
	rv, guv1, guv2, bu int
}

func coeffsFor(m Matrix) matrixCoeffs {
	switch m {
	case BT709:
		return matrixCoeffs{rv: 459, guv1: 55, guv2: 136, bu: 541}
	case BT2020:
		return matrixCoeffs{rv: 473, guv1: 51, guv2: 159, bu: 524}
	default: // BT601
		return matrixCoeffs{rv: 359, guv1: 88, guv2: 183, bu: 454}
	}
}

// expandLimitedY and expandLimitedC apply the limited->full range expansion:
//
//	Y' = ((Y-16)*298)>>8
//	C' = ((C-128)*291)>>8
func expandLimitedY(y int) int {
	v := ((y - 16) * 298) >> 8
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

func expandLimitedC(c int) int {
	v := ((c - 128) * 291) >> 8
	return v
}

// YUYVToRGB converts a YUYV buffer to packed RGB24 using the given matrix
// and range, allocating the output.
func YUYVToRGB(yuyv []byte, width, height int, matrix Matrix, rng Range) []byte {
	rgb := make([]byte, width*height*3)
	YUYVToRGBInto(rgb, yuyv, width, height, matrix, rng)
	return rgb
}

// YUYVToRGBInto converts a YUYV buffer into the caller-owned rgb buffer
// (len >= width*height*3). With BT601/Full (the default fast path's
// implicit assumption) this dispatches to the fixed fast-path
// coefficients; any other combination uses the parameterized matrix with
// optional range expansion.
func YUYVToRGBInto(rgb, yuyv []byte, width, height int, matrix Matrix, rng Range) {
	if matrix == BT601 && rng == Full {
		yuyvToRGBFast(yuyv, rgb)
		return
	}

	c := coeffsFor(matrix)
	pairs := len(yuyv) / 4
	if max := len(rgb) / 6; pairs > max {
		pairs = max
	}
	for i := 0; i < pairs; i++ {
		y0 := int(yuyv[i*4+0])
		u := int(yuyv[i*4+1])
		y1 := int(yuyv[i*4+2])
		v := int(yuyv[i*4+3])

		if rng == Limited {
			y0 = expandLimitedY(y0)
			y1 = expandLimitedY(y1)
			u = expandLimitedC(u) + 128
			v = expandLimitedC(v) + 128
		}
		ub := u - 128
		vb := v - 128

		rDelta := (c.rv * vb) >> 8
		gDelta := (c.guv1*ub + c.guv2*vb) >> 8
		bDelta := (c.bu * ub) >> 8

		o := i * 6
		rgb[o+0] = clampByte(y0 + rDelta)
		rgb[o+1] = clampByte(y0 - gDelta)
		rgb[o+2] = clampByte(y0 + bDelta)
		rgb[o+3] = clampByte(y1 + rDelta)
		rgb[o+4] = clampByte(y1 - gDelta)
		rgb[o+5] = clampByte(y1 + bDelta)
	}
}

// BGRToRGB swaps channels 0 and 2 of every pixel in place, preserving
// channel 1.
func BGRToRGB(buf []byte) {
	for i := 0; i+2 < len(buf); i += 3 {
		buf[i], buf[i+2] = buf[i+2], buf[i]
	}
}

// RGBToYUYV converts packed RGB24 back to YUYV, allocating the output.
func RGBToYUYV(rgb []byte, width, height int) []byte {
	yuyv := make([]byte, width*height*2)
	RGBToYUYVInto(yuyv, rgb, width, height)
	return yuyv
}

// RGBToYUYVInto converts packed RGB24 into the caller-owned yuyv buffer
// (len >= width*height*2) using integer BT.601 with the matrix inverted,
// for writing to the loopback device. U and V are taken from the first
// pixel of each horizontal pair, with final +16 and +128 offsets.
func RGBToYUYVInto(yuyv, rgb []byte, width, height int) {
	pairs := width / 2

	for row := 0; row < height; row++ {
		rowRGB := rgb[row*width*3:]
		rowYUYV := yuyv[row*width*2:]
		for i := 0; i < pairs; i++ {
			p0 := i * 2 * 3
			p1 := p0 + 3

			r0, g0, b0 := int(rowRGB[p0]), int(rowRGB[p0+1]), int(rowRGB[p0+2])
			r1, g1, b1 := int(rowRGB[p1]), int(rowRGB[p1+1]), int(rowRGB[p1+2])

			y0 := (66*r0 + 129*g0 + 25*b0) >> 8
			y1 := (66*r1 + 129*g1 + 25*b1) >> 8
			u := (-38*r0 - 74*g0 + 112*b0) >> 8
			v := (112*r0 - 94*g0 - 18*b0) >> 8

			o := i * 4
			rowYUYV[o+0] = clampByte(y0 + 16)
			rowYUYV[o+1] = clampByte(u + 128)
			rowYUYV[o+2] = clampByte(y1 + 16)
			rowYUYV[o+3] = clampByte(v + 128)
		}
	}
}
