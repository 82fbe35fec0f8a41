package imaging

import (
	"math"

	"github.com/ironsheep/docscan/internal/geometry"
)

// Contour is a closed boundary traced around a connected region of the
// edge mask. Hole contours trace background regions enclosed by edges.
type Contour struct {
	Points []geometry.Point
	Hole   bool
}

// Moore neighborhood, clockwise on screen starting east.
var (
	mooreDX = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
	mooreDY = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
)

type region struct {
	label          int32
	startX, startY int
	minX, minY     int
	maxX, maxY     int
	touchesBorder  bool
}

func (r region) boxArea() int {
	return (r.maxX - r.minX + 1) * (r.maxY - r.minY + 1)
}

// contours labels edge components (8-connected, positive labels) and
// background components (4-connected, negative labels) of n.dilated and
// traces the outer boundary of each large enough edge component and each
// enclosed background component.
func (n *Native) contours(minBoxArea int) []Contour {
	w, h := n.w, n.h
	for i := range n.labels {
		n.labels[i] = 0
	}

	var regions []region
	var fg, bg int32
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if n.labels[i] != 0 {
				continue
			}
			var label int32
			eight := n.dilated[i] != 0
			if eight {
				fg++
				label = fg
			} else {
				bg--
				label = bg
			}
			regions = append(regions, n.flood(x, y, label, eight))
		}
	}

	var out []Contour
	for _, r := range regions {
		hole := r.label < 0
		if hole && r.touchesBorder {
			continue
		}
		if r.boxArea() < minBoxArea {
			continue
		}
		pts := n.traceBoundary(r)
		out = append(out, Contour{Points: pts, Hole: hole})
	}
	return out
}

// flood labels the component containing (x, y) and returns its extent.
func (n *Native) flood(x, y int, label int32, eight bool) region {
	w, h := n.w, n.h
	r := region{label: label, startX: x, startY: y, minX: x, minY: y, maxX: x, maxY: y}

	stack := n.stack[:0]
	start := y*w + x
	n.labels[start] = label
	stack = append(stack, start)

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		px, py := p%w, p/w

		if px < r.minX {
			r.minX = px
		}
		if px > r.maxX {
			r.maxX = px
		}
		if py < r.minY {
			r.minY = py
		}
		if py > r.maxY {
			r.maxY = py
		}
		if px == 0 || py == 0 || px == w-1 || py == h-1 {
			r.touchesBorder = true
		}

		for k := 0; k < 8; k++ {
			if !eight && k%2 == 1 {
				continue
			}
			nx, ny := px+mooreDX[k], py+mooreDY[k]
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			q := ny*w + nx
			if n.labels[q] == 0 && (n.dilated[q] != 0) == eight {
				n.labels[q] = label
				stack = append(stack, q)
			}
		}
	}
	n.stack = stack[:0]
	return r
}

// traceBoundary follows the outer boundary of region r clockwise using
// Moore-neighbor tracing with Jacob's stopping criterion. The start pixel
// is the first pixel of r in raster order, so its north side is outside.
func (n *Native) traceBoundary(r region) []geometry.Point {
	w, h := n.w, n.h
	inside := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h && n.labels[y*w+x] == r.label
	}

	out := make([]geometry.Point, 0, 2*(r.maxX-r.minX+r.maxY-r.minY+2))
	sx, sy := r.startX, r.startY
	out = append(out, geometry.Point{X: float64(sx), Y: float64(sy)})

	x, y := sx, sy
	search := 6
	first := -1
	limit := 4 * r.boxArea()
	for step := 0; step < limit; step++ {
		d := -1
		for i := 0; i < 8; i++ {
			k := (search + i) % 8
			if inside(x+mooreDX[k], y+mooreDY[k]) {
				d = k
				break
			}
		}
		if d < 0 {
			break // isolated pixel
		}
		if x == sx && y == sy && first >= 0 && d == first {
			break
		}
		if first < 0 {
			first = d
		}
		x, y = x+mooreDX[d], y+mooreDY[d]
		out = append(out, geometry.Point{X: float64(x), Y: float64(y)})
		if d%2 == 0 {
			search = (d + 6) % 8
		} else {
			search = (d + 5) % 8
		}
	}
	if len(out) > 1 && out[len(out)-1] == out[0] {
		out = out[:len(out)-1]
	}
	return out
}

// ApproxPolygon simplifies a closed contour with Douglas-Peucker. The
// contour is split at two mutually distant points and each half is
// simplified independently, so the result does not depend on where the
// trace started.
func ApproxPolygon(points []geometry.Point, epsilon float64) []geometry.Point {
	n := len(points)
	if n < 3 {
		return append([]geometry.Point(nil), points...)
	}

	a := farthestFrom(points, points[0])
	b := farthestFrom(points, points[a])
	if a == b {
		return []geometry.Point{points[a]}
	}
	if a > b {
		a, b = b, a
	}

	keep := make([]bool, n)
	keep[a], keep[b] = true, true
	simplifyRange(points, a, b, epsilon, keep)
	simplifyRange(points, b, a+n, epsilon, keep)

	out := make([]geometry.Point, 0, 8)
	for i := 0; i < n; i++ {
		if keep[i] {
			out = append(out, points[i])
		}
	}
	return out
}

func farthestFrom(points []geometry.Point, p geometry.Point) int {
	best, bestD := 0, -1.0
	for i, q := range points {
		dx, dy := q.X-p.X, q.Y-p.Y
		if d := dx*dx + dy*dy; d > bestD {
			best, bestD = i, d
		}
	}
	return best
}

// simplifyRange runs Douglas-Peucker over points[from..to] where indices
// wrap modulo len(points).
func simplifyRange(points []geometry.Point, from, to int, epsilon float64, keep []bool) {
	n := len(points)
	type span struct{ from, to int }
	stack := []span{{from, to}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.to-s.from < 2 {
			continue
		}
		p0, p1 := points[s.from%n], points[s.to%n]
		best, bestD := -1, epsilon
		for i := s.from + 1; i < s.to; i++ {
			if d := segmentDistance(points[i%n], p0, p1); d > bestD {
				best, bestD = i, d
			}
		}
		if best < 0 {
			continue
		}
		keep[best%n] = true
		stack = append(stack, span{s.from, best}, span{best, s.to})
	}
}

// segmentDistance returns the perpendicular distance from p to the line
// through a and b, or the distance to a when a and b coincide.
func segmentDistance(p, a, b geometry.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	return math.Abs(dy*p.X-dx*p.Y+b.X*a.Y-b.Y*a.X) / l
}

// ApproxPolygon implements the detection backend contract with the
// package-level ApproxPolygon.
func (n *Native) ApproxPolygon(points []geometry.Point, epsilon float64) []geometry.Point {
	return ApproxPolygon(points, epsilon)
}
