package detection

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ironsheep/docscan/internal/geometry"
	"github.com/ironsheep/docscan/internal/imaging"
)

// createQuadImage fills a convex quad with fg on a bg background.
func createQuadImage(w, h int, q geometry.Quad, fg, bg uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := bg
			if insideConvex(q, float64(x)+0.5, float64(y)+0.5) {
				v = fg
			}
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

// createSolidImage returns a uniform gray frame.
func createSolidImage(w, h int, v uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 255
	}
	return img
}

func insideConvex(q geometry.Quad, x, y float64) bool {
	for i := 0; i < 4; i++ {
		a, b := q[i], q[(i+1)%4]
		if (b.X-a.X)*(y-a.Y)-(b.Y-a.Y)*(x-a.X) < 0 {
			return false
		}
	}
	return true
}

// rotatedRect returns a canonical quad for a w×h rectangle centered on
// (cx, cy) and rotated by deg degrees.
func rotatedRect(cx, cy, w, h, deg float64) geometry.Quad {
	rad := deg * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	var pts [4]geometry.Point
	for i, c := range [][2]float64{{-w / 2, -h / 2}, {w / 2, -h / 2}, {w / 2, h / 2}, {-w / 2, h / 2}} {
		pts[i] = geometry.Point{X: cx + c[0]*cos - c[1]*sin, Y: cy + c[0]*sin + c[1]*cos}
	}
	return geometry.OrderCorners(pts)
}

func newTestProcessor() *Processor {
	return NewProcessor(DefaultOptions(), nil, zerolog.Nop())
}

func TestProcess_NilFrame(t *testing.T) {
	p := newTestProcessor()
	if _, ok := p.Process(nil); ok {
		t.Error("Process(nil): got ok=true, want false")
	}
	if p.Allocated() {
		t.Error("nil frame should not allocate buffers")
	}
}

func TestProcess_UniformFrame(t *testing.T) {
	p := newTestProcessor()
	img := createSolidImage(320, 240, 90)

	res, ok := p.Process(img)
	if !ok {
		t.Fatal("Process: got ok=false")
	}
	if res.HasQuad() {
		t.Errorf("uniform frame: got quad %v, want none", *res.Quad)
	}
	if math.Abs(res.Brightness-90) > 0.5 {
		t.Errorf("Brightness: got %.2f, want 90", res.Brightness)
	}
	if res.Width != 320 || res.Height != 240 {
		t.Errorf("canvas: got %dx%d, want 320x240", res.Width, res.Height)
	}
}

func TestProcess_RotatedDocument(t *testing.T) {
	doc := rotatedRect(400, 300, 424, 300, 10)
	img := createQuadImage(800, 600, doc, 220, 30)

	p := newTestProcessor()
	res, ok := p.Process(img)
	if !ok {
		t.Fatal("Process: got ok=false")
	}
	if res.Width != 720 || res.Height != 540 {
		t.Fatalf("canvas: got %dx%d, want 720x540", res.Width, res.Height)
	}
	if !res.HasQuad() {
		t.Fatalf("expected a quad, diagnostic=%q", res.Diagnostic)
	}

	want := geometry.ScaleQuad(doc, 0.9, 0.9)
	for i := range want {
		if d := geometry.Distance(res.Quad[i], want[i]); d > 8 {
			t.Errorf("corner %d: got %v, want near %v", i, res.Quad[i], want[i])
		}
	}
	if res.Classification != A4 {
		t.Errorf("Classification: got %s, want %s", res.Classification, A4)
	}
	if res.AreaRatio < 0.25 || res.AreaRatio > 0.30 {
		t.Errorf("AreaRatio: got %.3f, want ~0.27", res.AreaRatio)
	}
	if res.Source != SourceLocal {
		t.Errorf("Source: got %v, want local", res.Source)
	}
}

func TestProcess_SmallDocumentRejected(t *testing.T) {
	doc := rotatedRect(160, 120, 100, 70, 0)
	img := createQuadImage(320, 240, doc, 220, 30)

	res, ok := newTestProcessor().Process(img)
	if !ok {
		t.Fatal("Process: got ok=false")
	}
	if res.HasQuad() {
		t.Errorf("small document: got quad with area ratio %.3f, want rejection", res.AreaRatio)
	}
}

func TestProcess_ReusesBuffersUntilResize(t *testing.T) {
	p := newTestProcessor()
	a := createSolidImage(320, 240, 50)
	b := createSolidImage(160, 120, 50)

	p.Process(a)
	first := p.scaled
	p.Process(a)
	if p.scaled != first {
		t.Error("same resolution reallocated the processing raster")
	}
	p.Process(b)
	if p.scaled == first {
		t.Error("resolution change kept the old raster")
	}
}

type panicBackend struct{ released bool }

func (b *panicBackend) EdgeContours(*image.Gray, float64, float64, int) []imaging.Contour {
	panic("boom")
}

func (b *panicBackend) ApproxPolygon(pts []geometry.Point, _ float64) []geometry.Point { return pts }
func (b *panicBackend) Release()                                                     { b.released = true }

func TestProcess_RecoversPanic(t *testing.T) {
	backend := &panicBackend{}
	p := NewProcessor(DefaultOptions(), backend, zerolog.Nop())
	img := createSolidImage(64, 48, 50)

	res, ok := p.Process(img)
	if !ok {
		t.Fatal("Process: got ok=false")
	}
	if res.HasQuad() {
		t.Error("panicking backend produced a quad")
	}
	if res.Diagnostic == "" {
		t.Error("expected a diagnostic message")
	}

	p.Release()
	if !backend.released {
		t.Error("Release did not release the backend")
	}
	if p.Allocated() {
		t.Error("Release kept processor buffers")
	}
}

func TestSnapshot(t *testing.T) {
	p := newTestProcessor()
	if p.Snapshot() != nil {
		t.Error("Snapshot before first frame should be nil")
	}
	p.Process(createSolidImage(64, 48, 50))
	snap := p.Snapshot()
	if snap == nil || snap == p.scaled {
		t.Fatal("Snapshot should return a copy of the processing raster")
	}
	if snap.Bounds() != p.scaled.Bounds() {
		t.Errorf("Snapshot bounds: got %v, want %v", snap.Bounds(), p.scaled.Bounds())
	}
}
