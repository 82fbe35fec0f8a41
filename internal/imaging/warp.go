package imaging

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/parallel"

	"github.com/ironsheep/docscan/internal/geometry"
)

// Warp maps the region of src bounded by quad onto a dstW×dstH upright
// rectangle. Each output pixel is inverse-mapped through the homography
// and bilinearly sampled; samples outside src are opaque black.
//
// quad must be in src pixel coordinates and in canonical corner order
// (top-left, top-right, bottom-right, bottom-left).
func (n *Native) Warp(src image.Image, quad geometry.Quad, dstW, dstH int) (*image.RGBA, error) {
	return Warp(src, quad, dstW, dstH)
}

// Warp is the buffer-free form of Native.Warp.
func Warp(src image.Image, quad geometry.Quad, dstW, dstH int) (*image.RGBA, error) {
	if dstW <= 0 || dstH <= 0 {
		return nil, fmt.Errorf("invalid output size %dx%d", dstW, dstH)
	}

	rect := geometry.Quad{
		{X: 0, Y: 0},
		{X: float64(dstW - 1), Y: 0},
		{X: float64(dstW - 1), Y: float64(dstH - 1)},
		{X: 0, Y: float64(dstH - 1)},
	}
	h, err := geometry.ComputeHomography(rect, quad)
	if err != nil {
		return nil, err
	}

	rgba := clone.AsShallowRGBA(src)
	out := image.NewRGBA(image.Rect(0, 0, dstW, dstH))

	parallel.Line(dstH, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < dstW; x++ {
				p, ok := h.Apply(geometry.Point{X: float64(x), Y: float64(y)})
				i := out.PixOffset(x, y)
				if !ok {
					out.Pix[i+3] = 255
					continue
				}
				r, g, b, a := bilinear(rgba, p.X, p.Y)
				out.Pix[i+0] = r
				out.Pix[i+1] = g
				out.Pix[i+2] = b
				out.Pix[i+3] = a
			}
		}
	})
	return out, nil
}

// bilinear samples img at (x, y) relative to its bounds origin.
func bilinear(img *image.RGBA, x, y float64) (r, g, b, a uint8) {
	bw, bh := img.Rect.Dx(), img.Rect.Dy()
	if x < 0 || y < 0 || x > float64(bw-1) || y > float64(bh-1) {
		return 0, 0, 0, 255
	}
	x0, y0 := int(x), int(y)
	x1, y1 := x0+1, y0+1
	if x1 >= bw {
		x1 = bw - 1
	}
	if y1 >= bh {
		y1 = bh - 1
	}
	fx, fy := x-float64(x0), y-float64(y0)

	ox, oy := img.Rect.Min.X, img.Rect.Min.Y
	p00 := img.PixOffset(ox+x0, oy+y0)
	p10 := img.PixOffset(ox+x1, oy+y0)
	p01 := img.PixOffset(ox+x0, oy+y1)
	p11 := img.PixOffset(ox+x1, oy+y1)

	ch := func(c int) uint8 {
		top := float64(img.Pix[p00+c]) + (float64(img.Pix[p10+c])-float64(img.Pix[p00+c]))*fx
		bot := float64(img.Pix[p01+c]) + (float64(img.Pix[p11+c])-float64(img.Pix[p01+c]))*fx
		return uint8(top + (bot-top)*fy + 0.5)
	}
	return ch(0), ch(1), ch(2), ch(3)
}
