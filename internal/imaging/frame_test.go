package imaging

import (
	"encoding/base64"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/docscan/internal/geometry"
)

func TestDownscaleSize(t *testing.T) {
	tests := []struct {
		w, h, max int
		ww, wh    int
	}{
		{1920, 1080, 720, 720, 405},
		{1080, 1920, 720, 405, 720},
		{640, 480, 720, 640, 480},
		{720, 720, 720, 720, 720},
		{4000, 10, 720, 720, 2},
	}
	for _, tt := range tests {
		gw, gh := DownscaleSize(tt.w, tt.h, tt.max)
		if gw != tt.ww || gh != tt.wh {
			t.Errorf("DownscaleSize(%d, %d, %d): got %dx%d, want %dx%d", tt.w, tt.h, tt.max, gw, gh, tt.ww, tt.wh)
		}
	}
}

func TestScaleInto_ReusesBuffer(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 200, 100))
	dst := ScaleInto(nil, src, 100, 50)
	again := ScaleInto(dst, src, 100, 50)
	if dst != again {
		t.Error("ScaleInto reallocated a matching buffer")
	}
	other := ScaleInto(dst, src, 50, 25)
	if other == dst {
		t.Error("ScaleInto reused a buffer of the wrong size")
	}
}

func TestGrayInto(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for x := 0; x < 4; x++ {
		src.SetRGBA(x, 0, color.RGBA{255, 255, 255, 255})
		src.SetRGBA(x, 1, color.RGBA{0, 0, 0, 255})
	}
	gray, mean := GrayInto(nil, src)
	if gray.GrayAt(0, 0).Y != 255 || gray.GrayAt(0, 1).Y != 0 {
		t.Errorf("gray values: got %d/%d, want 255/0", gray.GrayAt(0, 0).Y, gray.GrayAt(0, 1).Y)
	}
	if mean != 127.5 {
		t.Errorf("mean: got %v, want 127.5", mean)
	}

	red := image.NewRGBA(image.Rect(0, 0, 1, 1))
	red.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})
	g, _ := GrayInto(gray, red)
	if got := g.GrayAt(0, 0).Y; got != 76 {
		t.Errorf("BT.601 red: got %d, want 76", got)
	}
}

func TestEncodeAndDrawQuad(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 40, 30))
	q := geometry.Quad{{X: 5, Y: 5}, {X: 35, Y: 5}, {X: 35, Y: 25}, {X: 5, Y: 25}}
	green, _ := colorful.Hex("#00ff00")

	out := DrawQuad(src, q, green, 1)
	if got := out.RGBAAt(20, 5); got.G != 255 {
		t.Errorf("outline pixel: got %v, want green", got)
	}
	if got := out.RGBAAt(20, 15); got.G != 0 {
		t.Errorf("interior pixel: got %v, want untouched", got)
	}

	enc, err := Encode(out, imaging.PNG)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if enc.MimeType != "image/png" || enc.Width != 40 || enc.Height != 30 {
		t.Errorf("encoded: got %s %dx%d", enc.MimeType, enc.Width, enc.Height)
	}
	if _, err := base64.StdEncoding.DecodeString(enc.ImageBase64); err != nil {
		t.Errorf("invalid base64: %v", err)
	}
}
