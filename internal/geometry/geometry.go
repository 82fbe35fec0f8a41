package geometry

import (
	"math"
	"sort"
)

// Point is a 2D coordinate in one pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Scale returns p scaled by f on both axes.
func (p Point) Scale(f float64) Point { return Point{X: p.X * f, Y: p.Y * f} }

// Lerp interpolates from p toward q by t (0 = p, 1 = q).
func (p Point) Lerp(q Point, t float64) Point {
	return Point{X: p.X + (q.X-p.X)*t, Y: p.Y + (q.Y-p.Y)*t}
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Corner indexes into a Quad.
const (
	TopLeft = iota
	TopRight
	BottomRight
	BottomLeft
)

// Quad is a quadrilateral in canonical order: TL, TR, BR, BL.
type Quad [4]Point

// Points returns the corners as a slice.
func (q Quad) Points() []Point {
	return []Point{q[0], q[1], q[2], q[3]}
}

// Area returns the enclosed area of the quad.
func (q Quad) Area() float64 {
	return PolygonArea(q[:])
}

// Perimeter returns the closed perimeter of the quad.
func (q Quad) Perimeter() float64 {
	return Perimeter(q[:], true)
}

// Centroid returns the mean of the four corners.
func (q Quad) Centroid() Point {
	var c Point
	for _, p := range q {
		c.X += p.X
		c.Y += p.Y
	}
	return c.Scale(0.25)
}

// EdgeLengths returns the top, right, bottom and left edge lengths.
func (q Quad) EdgeLengths() (top, right, bottom, left float64) {
	return Distance(q[TopLeft], q[TopRight]),
		Distance(q[TopRight], q[BottomRight]),
		Distance(q[BottomRight], q[BottomLeft]),
		Distance(q[BottomLeft], q[TopLeft])
}

// Lerp blends every corner of q toward r by t.
func (q Quad) Lerp(r Quad, t float64) Quad {
	var out Quad
	for i := range q {
		out[i] = q[i].Lerp(r[i], t)
	}
	return out
}

// NewQuad orders four arbitrary points into a canonical Quad.
func NewQuad(points []Point) (Quad, bool) {
	if len(points) != 4 {
		return Quad{}, false
	}
	return OrderCorners([4]Point{points[0], points[1], points[2], points[3]}), true
}

// OrderCorners returns the points ordered TL, TR, BR, BL.
//
// The corners are sorted clockwise (in image space, Y down) by their angle
// around the centroid, then rotated so the corner with the smallest X+Y sum
// comes first. Ties on the sum go to the smaller Y. The result depends only on
// the set of points, so ordering an already ordered quad returns it unchanged.
func OrderCorners(points [4]Point) Quad {
	var c Point
	for _, p := range points {
		c.X += p.X
		c.Y += p.Y
	}
	c = c.Scale(0.25)

	sorted := points
	sort.SliceStable(sorted[:], func(i, j int) bool {
		ai := math.Atan2(sorted[i].Y-c.Y, sorted[i].X-c.X)
		aj := math.Atan2(sorted[j].Y-c.Y, sorted[j].X-c.X)
		if ai != aj {
			return ai < aj
		}
		return Distance(sorted[i], c) < Distance(sorted[j], c)
	})

	start := 0
	for i := 1; i < 4; i++ {
		si := sorted[i].X + sorted[i].Y
		ss := sorted[start].X + sorted[start].Y
		if si < ss || (si == ss && sorted[i].Y < sorted[start].Y) {
			start = i
		}
	}

	var q Quad
	for i := 0; i < 4; i++ {
		q[i] = sorted[(start+i)%4]
	}
	return q
}

// PolygonArea returns the absolute shoelace area of a closed polygon.
func PolygonArea(points []Point) float64 {
	return math.Abs(SignedArea(points))
}

// SignedArea returns the shoelace area; positive for clockwise winding in
// image space (Y down).
func SignedArea(points []Point) float64 {
	n := len(points)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += points[i].X*points[j].Y - points[j].X*points[i].Y
	}
	return sum / 2
}

// Perimeter returns the length of the polyline, closing it when closed is true.
func Perimeter(points []Point, closed bool) float64 {
	n := len(points)
	if n < 2 {
		return 0
	}
	var sum float64
	for i := 0; i < n-1; i++ {
		sum += Distance(points[i], points[i+1])
	}
	if closed {
		sum += Distance(points[n-1], points[0])
	}
	return sum
}

// IsConvex reports whether the closed polygon turns the same way at every
// vertex. Collinear vertices make the polygon non-convex.
func IsConvex(points []Point) bool {
	n := len(points)
	if n < 3 {
		return false
	}
	sign := 0
	for i := 0; i < n; i++ {
		a := points[i]
		b := points[(i+1)%n]
		c := points[(i+2)%n]
		cross := (b.X-a.X)*(c.Y-b.Y) - (b.Y-a.Y)*(c.X-b.X)
		switch {
		case cross > 0:
			if sign < 0 {
				return false
			}
			sign = 1
		case cross < 0:
			if sign > 0 {
				return false
			}
			sign = -1
		default:
			return false
		}
	}
	return true
}

// MeanDisplacement is the average distance between corresponding corners.
func MeanDisplacement(a, b Quad) float64 {
	var sum float64
	for i := range a {
		sum += Distance(a[i], b[i])
	}
	return sum / 4
}

// Diagonal returns the diagonal length of a w×h canvas.
func Diagonal(w, h int) float64 {
	return math.Hypot(float64(w), float64(h))
}

// ScaleQuad maps a quad between two rasters of the same scene using separate
// X and Y factors, then re-derives canonical order.
func ScaleQuad(q Quad, sx, sy float64) Quad {
	var out [4]Point
	for i, p := range q {
		out[i] = Point{X: p.X * sx, Y: p.Y * sy}
	}
	return OrderCorners(out)
}

// FromNormalized converts [0,1] coordinates into a w×h canvas quad.
func FromNormalized(points [4]Point, w, h int) Quad {
	return ScaleQuad(Quad(points), float64(w), float64(h))
}
