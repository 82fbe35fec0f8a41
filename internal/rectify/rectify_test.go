package rectify

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/docscan/internal/geometry"
)

func createFrame(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func rectQuad(x0, y0, x1, y1 float64) geometry.Quad {
	return geometry.Quad{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}

func TestRectify_Square(t *testing.T) {
	r := NewRectifier(DefaultOptions(), nil, zerolog.Nop())
	frame := createFrame(200, 200, color.RGBA{200, 180, 160, 255})

	out := r.Rectify(frame, rectQuad(50, 50, 150, 150))
	require.True(t, out.Rectified, out.Warning)
	b := out.Image.Bounds()
	assert.Equal(t, b.Dx(), b.Dy())
	assert.Equal(t, 100, b.Dx())
}

func TestRectify_TwoToOne(t *testing.T) {
	r := NewRectifier(DefaultOptions(), nil, zerolog.Nop())
	frame := createFrame(400, 300, color.RGBA{255, 255, 255, 255})

	out := r.Rectify(frame, rectQuad(50, 50, 250, 150))
	require.True(t, out.Rectified)
	b := out.Image.Bounds()
	assert.InDelta(t, 2.0, float64(b.Dx())/float64(b.Dy()), 0.02)
}

func TestRectify_UnorderedCorners(t *testing.T) {
	r := NewRectifier(DefaultOptions(), nil, zerolog.Nop())
	frame := createFrame(400, 300, color.RGBA{255, 255, 255, 255})

	q := geometry.Quad{{X: 250, Y: 150}, {X: 50, Y: 50}, {X: 50, Y: 150}, {X: 250, Y: 50}}
	out := r.Rectify(frame, q)
	require.True(t, out.Rectified)
	assert.Equal(t, 200, out.Image.Bounds().Dx())
	assert.Equal(t, 100, out.Image.Bounds().Dy())
}

func TestRectify_DegenerateFallsBack(t *testing.T) {
	r := NewRectifier(DefaultOptions(), nil, zerolog.Nop())
	frame := createFrame(100, 100, color.RGBA{10, 20, 30, 255})

	q := geometry.Quad{{X: 0, Y: 0}, {X: 50, Y: 50}, {X: 100, Y: 100}, {X: 20, Y: 20}}
	out := r.Rectify(frame, q)
	assert.False(t, out.Rectified)
	assert.Contains(t, out.Warning, "degenerate")
	assert.Same(t, frame, out.Image)
}

type failingWarper struct{}

func (failingWarper) Warp(image.Image, geometry.Quad, int, int) (*image.RGBA, error) {
	return nil, errors.New("gpu lost")
}

func TestRectify_WarpFailureFallsBack(t *testing.T) {
	r := NewRectifier(DefaultOptions(), failingWarper{}, zerolog.Nop())
	frame := createFrame(100, 100, color.RGBA{10, 20, 30, 255})

	out := r.Rectify(frame, rectQuad(10, 10, 90, 90))
	assert.False(t, out.Rectified)
	assert.Contains(t, out.Warning, "gpu lost")
	assert.Equal(t, frame.Bounds(), out.Image.Bounds())
}

func TestRectify_MaxSide(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxSide = 50
	r := NewRectifier(opts, nil, zerolog.Nop())
	frame := createFrame(400, 300, color.RGBA{255, 255, 255, 255})

	out := r.Rectify(frame, rectQuad(0, 0, 399, 199))
	require.True(t, out.Rectified)
	b := out.Image.Bounds()
	assert.Equal(t, 50, b.Dx())
	assert.LessOrEqual(t, b.Dy(), 50)
}

func TestOutputSize(t *testing.T) {
	trapezoid := geometry.Quad{{X: 30, Y: 0}, {X: 130, Y: 0}, {X: 160, Y: 80}, {X: 0, Y: 80}}
	w, h := OutputSize(trapezoid)
	assert.Equal(t, 160, w)
	assert.Equal(t, 85, h) // hypot(30, 80) = 85.4
}

func TestScaleToCapture(t *testing.T) {
	q := rectQuad(72, 54, 648, 486)
	got := ScaleToCapture(q, 720, 540, 1920, 1080)

	assert.InDelta(t, 192, got[0].X, 1e-9)
	assert.InDelta(t, 108, got[0].Y, 1e-9)
	assert.InDelta(t, 1728, got[2].X, 1e-9)
	assert.InDelta(t, 972, got[2].Y, 1e-9)

	assert.Equal(t, q, ScaleToCapture(q, 0, 0, 100, 100))
}

func TestEnhance(t *testing.T) {
	frame := createFrame(20, 20, color.RGBA{200, 40, 40, 255})

	gray := Enhance(frame, ModeGrayscale, 128)
	r, g, b, _ := gray.At(5, 5).RGBA()
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)

	bw, ok := Enhance(frame, ModeBW, 128).(*image.Gray)
	require.True(t, ok, "bw mode returns a gray image")
	for _, v := range bw.Pix {
		assert.True(t, v == 0 || v == 255, "bw pixel %d", v)
	}

	assert.Equal(t, frame.Bounds(), Enhance(frame, ModeSharpen, 0).Bounds())
	assert.Same(t, frame, Enhance(frame, ModeNone, 0))
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeNone, false},
		{"none", ModeNone, false},
		{"BW", ModeBW, false},
		{" grayscale ", ModeGrayscale, false},
		{"sharpen", ModeSharpen, false},
		{"sepia", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
