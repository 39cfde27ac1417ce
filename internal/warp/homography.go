package warp

// Mat3 is a 3x3 matrix used as a homogeneous 2D projective transform.
type Mat3 [3][3]float64

// identity3 is the 3x3 identity matrix.
var identity3 = Mat3{
	{1, 0, 0},
	{0, 1, 0},
	{0, 0, 1},
}

// Apply transforms (x,y) through the homogeneous matrix and de-homogenizes
// the result. If the homogeneous weight is exactly 0 the input point is
// returned unchanged.
func (m Mat3) Apply(x, y float64) (float64, float64) {
	w := m[2][0]*x + m[2][1]*y + m[2][2]
	if w == 0 {
		return x, y
	}
	px := (m[0][0]*x + m[0][1]*y + m[0][2]) / w
	py := (m[1][0]*x + m[1][1]*y + m[1][2]) / w
	return px, py
}

// singularPivot is the minimum acceptable pivot magnitude during Gaussian
// elimination; below it the system is treated as singular.
const singularPivot = 1e-10

// computeHomography solves for the 3x3 projective matrix M such that
// M·(from[i], 1) ≈ (to[i], 1) for the four correspondences, via direct
// linear transform: an 8x8 linear system (the ninth matrix entry is fixed
// to 1) solved by Gaussian elimination with partial pivoting. Returns
// (identity, false) if the system is singular.
func computeHomography(from, to [4]Point) (Mat3, bool) {
	var a [8][8]float64
	var b [8]float64

	for i := 0; i < 4; i++ {
		x, y := from[i].X, from[i].Y
		xp, yp := to[i].X, to[i].Y

		r0 := 2 * i
		a[r0][0], a[r0][1], a[r0][2] = x, y, 1
		a[r0][6], a[r0][7] = -x*xp, -y*xp
		b[r0] = xp

		r1 := 2*i + 1
		a[r1][3], a[r1][4], a[r1][5] = x, y, 1
		a[r1][6], a[r1][7] = -x*yp, -y*yp
		b[r1] = yp
	}

	coeffs, ok := solveGaussianPartialPivot(a, b)
	if !ok {
		return identity3, false
	}

	return Mat3{
		{coeffs[0], coeffs[1], coeffs[2]},
		{coeffs[3], coeffs[4], coeffs[5]},
		{coeffs[6], coeffs[7], 1},
	}, true
}

// solveGaussianPartialPivot solves a·x = b for an 8x8 system using Gaussian
// elimination with partial pivoting. Returns (zero, false) if any pivot
// falls below singularPivot.
func solveGaussianPartialPivot(a [8][8]float64, b [8]float64) ([8]float64, bool) {
	const n = 8

	for col := 0; col < n; col++ {
		pivotRow := col
		pivotVal := abs(a[col][col])
		for row := col + 1; row < n; row++ {
			if v := abs(a[row][col]); v > pivotVal {
				pivotRow, pivotVal = row, v
			}
		}
		if pivotVal < singularPivot {
			var zero [8]float64
			return zero, false
		}
		if pivotRow != col {
			a[col], a[pivotRow] = a[pivotRow], a[col]
			b[col], b[pivotRow] = b[pivotRow], b[col]
		}

		pivot := a[col][col]
		for row := col + 1; row < n; row++ {
			factor := a[row][col] / pivot
			if factor == 0 {
				continue
			}
			for k := col; k < n; k++ {
				a[row][k] -= factor * a[col][k]
			}
			b[row] -= factor * b[col]
		}
	}

	var x [8]float64
	for row := n - 1; row >= 0; row-- {
		sum := b[row]
		for k := row + 1; k < n; k++ {
			sum -= a[row][k] * x[k]
		}
		x[row] = sum / a[row][row]
	}
	return x, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
