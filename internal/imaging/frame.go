package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/parallel"
	"golang.org/x/image/draw"
)

// DownscaleSize returns the size of a w×h frame scaled so its longer side
// is at most maxSide. Frames already within the limit keep their size.
func DownscaleSize(w, h, maxSide int) (int, int) {
	longer := w
	if h > longer {
		longer = h
	}
	if maxSide <= 0 || longer <= maxSide {
		return w, h
	}
	s := float64(maxSide) / float64(longer)
	dw := int(float64(w)*s + 0.5)
	dh := int(float64(h)*s + 0.5)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}
	return dw, dh
}

// ScaleInto resamples src into dst, reusing dst when its bounds already
// match w×h. The returned raster is dst or a freshly allocated one.
func ScaleInto(dst *image.RGBA, src image.Image, w, h int) *image.RGBA {
	r := image.Rect(0, 0, w, h)
	if dst == nil || dst.Rect != r {
		dst = image.NewRGBA(r)
	}
	sb := src.Bounds()
	if sb.Dx() == w && sb.Dy() == h {
		draw.Copy(dst, image.Point{}, src, sb, draw.Src, nil)
		return dst
	}
	draw.ApproxBiLinear.Scale(dst, r, src, sb, draw.Src, nil)
	return dst
}

// GrayInto converts src to luma with BT.601 weights, reusing dst when its
// bounds match. It returns the gray raster and its mean brightness (0-255).
func GrayInto(dst *image.Gray, src *image.RGBA) (*image.Gray, float64) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	r := image.Rect(0, 0, w, h)
	if dst == nil || dst.Rect != r {
		dst = image.NewGray(r)
	}

	sums := make([]uint64, h)
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			si := src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y)
			di := y * dst.Stride
			var sum uint64
			for x := 0; x < w; x++ {
				p := src.Pix[si+4*x : si+4*x+3 : si+4*x+3]
				v := uint8(0.299*float64(p[0]) + 0.587*float64(p[1]) + 0.114*float64(p[2]) + 0.5)
				dst.Pix[di+x] = v
				sum += uint64(v)
			}
			sums[y] = sum
		}
	})

	var total uint64
	for _, s := range sums {
		total += s
	}
	if w*h == 0 {
		return dst, 0
	}
	return dst, float64(total) / float64(w*h)
}

// MaskImage wraps a row-major 0/255 mask as a gray image for export.
func MaskImage(mask []uint8, w, h int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	copy(g.Pix, mask)
	return g
}
