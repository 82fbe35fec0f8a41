package geometry

import (
	"errors"
	"math"
)

// ErrSingular is returned when a perspective transform cannot be solved,
// typically because three or more corners are collinear.
var ErrSingular = errors.New("geometry: singular perspective transform")

// Homography is a 3×3 projective transform stored row-major with h[8] = 1.
type Homography [9]float64

// ComputeHomography solves the transform that maps each src corner to the
// matching dst corner.
//
// # Algorithm
//
// With h22 fixed to 1 each correspondence gives two linear equations:
//
//	x' = (h0 X + h1 Y + h2) / (h6 X + h7 Y + 1)
//	y' = (h3 X + h4 Y + h5) / (h6 X + h7 Y + 1)
//
// The resulting 8×8 system is solved by Gauss-Jordan elimination with partial
// pivoting. A pivot below 1e-12 is treated as singular.
func ComputeHomography(src, dst Quad) (Homography, error) {
	var a [8][9]float64
	for i := 0; i < 4; i++ {
		X, Y := src[i].X, src[i].Y
		x, y := dst[i].X, dst[i].Y
		r := 2 * i
		a[r] = [9]float64{X, Y, 1, 0, 0, 0, -X * x, -Y * x, x}
		a[r+1] = [9]float64{0, 0, 0, X, Y, 1, -X * y, -Y * y, y}
	}

	for col := 0; col < 8; col++ {
		pivot := col
		for r := col + 1; r < 8; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return Homography{}, ErrSingular
		}
		a[col], a[pivot] = a[pivot], a[col]

		div := a[col][col]
		for c := col; c < 9; c++ {
			a[col][c] /= div
		}
		for r := 0; r < 8; r++ {
			if r == col || a[r][col] == 0 {
				continue
			}
			f := a[r][col]
			for c := col; c < 9; c++ {
				a[r][c] -= f * a[col][c]
			}
		}
	}

	var h Homography
	for i := 0; i < 8; i++ {
		h[i] = a[i][8]
		if math.IsNaN(h[i]) || math.IsInf(h[i], 0) {
			return Homography{}, ErrSingular
		}
	}
	h[8] = 1
	return h, nil
}

// Apply maps a point through the transform. ok is false when the point maps
// to infinity.
func (h Homography) Apply(p Point) (Point, bool) {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if math.Abs(w) < 1e-12 {
		return Point{}, false
	}
	return Point{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}, true
}

// Inverse returns the inverse transform via the adjugate matrix.
func (h Homography) Inverse() (Homography, error) {
	a, b, c := h[0], h[1], h[2]
	d, e, f := h[3], h[4], h[5]
	g, k, l := h[6], h[7], h[8]

	det := a*(e*l-f*k) - b*(d*l-f*g) + c*(d*k-e*g)
	if math.Abs(det) < 1e-12 {
		return Homography{}, ErrSingular
	}

	inv := Homography{
		e*l - f*k, c*k - b*l, b*f - c*e,
		f*g - d*l, a*l - c*g, c*d - a*f,
		d*k - e*g, b*g - a*k, a*e - b*d,
	}
	for i := range inv {
		inv[i] /= det
	}
	if inv[8] != 0 {
		n := inv[8]
		for i := range inv {
			inv[i] /= n
		}
	}
	return inv, nil
}
