package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/docscan/internal/geometry"
)

// EncodedImage is an image returned inline as base64.
type EncodedImage struct {
	// ImageBase64 is the encoded image data.
	ImageBase64 string `json:"image_base64"`

	// MimeType is "image/png" or "image/jpeg".
	MimeType string `json:"mime_type"`

	Width  int `json:"width"`
	Height int `json:"height"`
}

// Encode serializes img as PNG or JPEG and base64-encodes it.
func Encode(img image.Image, format imaging.Format) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	mime := "image/png"
	if format == imaging.JPEG {
		mime = "image/jpeg"
	}
	b := img.Bounds()
	return &EncodedImage{
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    mime,
		Width:       b.Dx(),
		Height:      b.Dy(),
	}, nil
}

// DrawQuad returns a copy of src with the quad outlined in the given color.
func DrawQuad(src image.Image, q geometry.Quad, c colorful.Color, thickness int) *image.RGBA {
	b := src.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, src, b.Min, draw.Src)

	r, g, bl := c.RGB255()
	stroke := color.RGBA{R: r, G: g, B: bl, A: 255}
	if thickness < 1 {
		thickness = 1
	}
	for i := 0; i < 4; i++ {
		drawLine(out, q[i], q[(i+1)%4], stroke, thickness)
	}
	return out
}

// drawLine stamps a square brush of the given thickness along a→b.
func drawLine(img *image.RGBA, a, b geometry.Point, c color.RGBA, thickness int) {
	steps := int(math.Ceil(math.Max(math.Abs(b.X-a.X), math.Abs(b.Y-a.Y))))
	if steps == 0 {
		steps = 1
	}
	half := thickness / 2
	for s := 0; s <= steps; s++ {
		p := a.Lerp(b, float64(s)/float64(steps))
		cx, cy := int(math.Round(p.X)), int(math.Round(p.Y))
		for dy := -half; dy < thickness-half; dy++ {
			for dx := -half; dx < thickness-half; dx++ {
				pt := image.Point{X: cx + dx, Y: cy + dy}
				if pt.In(img.Rect) {
					img.SetRGBA(pt.X, pt.Y, c)
				}
			}
		}
	}
}
