package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ironsheep/docscan/internal/geometry"
)

// createRectangleImage draws a filled fg rectangle [x0,x1)×[y0,y1) on bg.
func createRectangleImage(w, h, x0, y0, x1, y1 int, fg, bg uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := bg
			if x >= x0 && x < x1 && y >= y0 && y < y1 {
				v = fg
			}
			img.Pix[y*img.Stride+x] = v
		}
	}
	return img
}

func countEdges(mask []uint8) int {
	n := 0
	for _, v := range mask {
		if v != 0 {
			n++
		}
	}
	return n
}

func TestCannyThresholds(t *testing.T) {
	tests := []struct {
		name      string
		mean      float64
		low, high float64
	}{
		{"dark", 0, 0, 0},
		{"mid", 100, 67, 133},
		{"bright clamps high", 250, 167.5, 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			low, high := CannyThresholds(tt.mean)
			if math.Abs(low-tt.low) > 1e-9 || math.Abs(high-tt.high) > 1e-9 {
				t.Errorf("CannyThresholds(%v): got (%v, %v), want (%v, %v)", tt.mean, low, high, tt.low, tt.high)
			}
		})
	}
}

func TestEdgeMask_UniformImage(t *testing.T) {
	for _, v := range []uint8{0, 128, 255} {
		img := createRectangleImage(64, 48, 0, 0, 0, 0, 0, v)
		n := NewNative()
		low, high := CannyThresholds(float64(v))
		if got := countEdges(n.EdgeMask(img, low, high)); got != 0 {
			t.Errorf("uniform %d: got %d edge pixels, want 0", v, got)
		}
	}
}

func TestEdgeMask_Rectangle(t *testing.T) {
	img := createRectangleImage(200, 150, 40, 30, 160, 120, 230, 20)
	n := NewNative()
	mask := n.EdgeMask(img, 60, 120)

	// Dilated edge band straddles the boundary.
	if mask[75*200+40] == 0 || mask[75*200+39] == 0 {
		t.Error("expected edge pixels at the left boundary")
	}
	if mask[75*200+100] != 0 {
		t.Error("unexpected edge pixel inside the rectangle")
	}
	if mask[5*200+5] != 0 {
		t.Error("unexpected edge pixel in the background")
	}
}

func TestEdgeContours_Rectangle(t *testing.T) {
	img := createRectangleImage(200, 150, 40, 30, 160, 120, 230, 20)
	n := NewNative()
	contours := n.EdgeContours(img, 60, 120, 0)

	var outer, hole *Contour
	for i := range contours {
		c := &contours[i]
		if c.Hole {
			if hole == nil || geometry.PolygonArea(c.Points) > geometry.PolygonArea(hole.Points) {
				hole = c
			}
		} else if outer == nil || geometry.PolygonArea(c.Points) > geometry.PolygonArea(outer.Points) {
			outer = c
		}
	}
	if outer == nil || hole == nil {
		t.Fatalf("expected outer and hole contours, got %d contours", len(contours))
	}

	want := []geometry.Point{{X: 40, Y: 30}, {X: 159, Y: 30}, {X: 159, Y: 119}, {X: 40, Y: 119}}
	for _, c := range []*Contour{outer, hole} {
		poly := ApproxPolygon(c.Points, 0.02*geometry.Perimeter(c.Points, true))
		if len(poly) != 4 {
			t.Fatalf("hole=%v: got %d vertices, want 4", c.Hole, len(poly))
		}
		var corners [4]geometry.Point
		copy(corners[:], poly)
		q := geometry.OrderCorners(corners)
		for i := range want {
			if d := geometry.Distance(q[i], want[i]); d > 8 {
				t.Errorf("hole=%v corner %d: got %v, want near %v", c.Hole, i, q[i], want[i])
			}
		}
	}
}

func TestEdgeContours_MinBoxArea(t *testing.T) {
	img := createRectangleImage(200, 150, 40, 30, 160, 120, 230, 20)
	n := NewNative()
	if got := n.EdgeContours(img, 60, 120, 200*150+1); len(got) != 0 {
		t.Errorf("got %d contours, want 0", len(got))
	}
}

func TestNative_Release(t *testing.T) {
	img := createRectangleImage(32, 32, 8, 8, 24, 24, 255, 0)
	n := NewNative()
	n.EdgeMask(img, 50, 100)
	if !n.Allocated() {
		t.Fatal("expected buffers after EdgeMask")
	}
	n.Release()
	if n.Allocated() {
		t.Fatal("expected no buffers after Release")
	}
	if got := countEdges(n.EdgeMask(img, 50, 100)); got == 0 {
		t.Error("expected edges after reuse")
	}
}

func TestApproxPolygon_Square(t *testing.T) {
	var pts []geometry.Point
	for x := 0; x < 100; x++ {
		pts = append(pts, geometry.Point{X: float64(x), Y: 0})
	}
	for y := 0; y < 100; y++ {
		pts = append(pts, geometry.Point{X: 100, Y: float64(y)})
	}
	for x := 100; x > 0; x-- {
		pts = append(pts, geometry.Point{X: float64(x), Y: 100})
	}
	for y := 100; y > 0; y-- {
		pts = append(pts, geometry.Point{X: 0, Y: float64(y)})
	}

	poly := ApproxPolygon(pts, 2)
	if len(poly) != 4 {
		t.Fatalf("got %d vertices, want 4: %v", len(poly), poly)
	}
	if area := geometry.PolygonArea(poly); math.Abs(area-10000) > 1e-6 {
		t.Errorf("area: got %v, want 10000", area)
	}
}

func TestApproxPolygon_Short(t *testing.T) {
	pts := []geometry.Point{{X: 1, Y: 2}, {X: 3, Y: 4}}
	if got := ApproxPolygon(pts, 1); len(got) != 2 {
		t.Errorf("got %d points, want 2", len(got))
	}
}

func TestWarp(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			c := color.RGBA{255, 0, 0, 255}
			if x >= 50 {
				c = color.RGBA{0, 0, 255, 255}
			}
			src.SetRGBA(x, y, c)
		}
	}
	quad := geometry.Quad{{X: 0, Y: 0}, {X: 99, Y: 0}, {X: 99, Y: 99}, {X: 0, Y: 99}}

	out, err := Warp(src, quad, 50, 50)
	if err != nil {
		t.Fatalf("Warp failed: %v", err)
	}
	if out.Bounds().Dx() != 50 || out.Bounds().Dy() != 50 {
		t.Fatalf("size: got %v, want 50x50", out.Bounds())
	}
	if got := out.RGBAAt(5, 25); got.R != 255 || got.B != 0 {
		t.Errorf("left pixel: got %v, want red", got)
	}
	if got := out.RGBAAt(45, 25); got.B != 255 || got.R != 0 {
		t.Errorf("right pixel: got %v, want blue", got)
	}
}

func TestWarp_Errors(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	p := geometry.Point{X: 5, Y: 5}

	if _, err := Warp(src, geometry.Quad{p, p, p, p}, 10, 10); err == nil {
		t.Error("expected error for degenerate quad")
	}
	if _, err := Warp(src, geometry.Quad{{X: 0, Y: 0}, {X: 9, Y: 0}, {X: 9, Y: 9}, {X: 0, Y: 9}}, 0, 10); err == nil {
		t.Error("expected error for zero width")
	}
}
