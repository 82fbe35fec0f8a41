package geometry

import "math"

// CoverFit maps a source raster into a display container using "cover"
// scaling: one uniform scale large enough to fill the container, centered,
// with the overflow cropped.
type CoverFit struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
}

// NewCoverFit builds the mapping from a srcW×srcH raster into a dstW×dstH
// container. The scale is max(dstW/srcW, dstH/srcH); any other choice
// misaligns the overlay when the aspect ratios differ.
func NewCoverFit(srcW, srcH, dstW, dstH int) CoverFit {
	if srcW <= 0 || srcH <= 0 {
		return CoverFit{Scale: 1}
	}
	scale := math.Max(float64(dstW)/float64(srcW), float64(dstH)/float64(srcH))
	return CoverFit{
		Scale:   scale,
		OffsetX: (float64(dstW) - float64(srcW)*scale) / 2,
		OffsetY: (float64(dstH) - float64(srcH)*scale) / 2,
	}
}

// ToDisplay maps a source-space point to display space.
func (c CoverFit) ToDisplay(p Point) Point {
	return Point{X: p.X*c.Scale + c.OffsetX, Y: p.Y*c.Scale + c.OffsetY}
}

// ToSource maps a display-space point back to source space.
func (c CoverFit) ToSource(p Point) Point {
	if c.Scale == 0 {
		return p
	}
	return Point{X: (p.X - c.OffsetX) / c.Scale, Y: (p.Y - c.OffsetY) / c.Scale}
}

// QuadToDisplay maps every corner of q to display space. The uniform scale
// preserves canonical order.
func (c CoverFit) QuadToDisplay(q Quad) Quad {
	var out Quad
	for i, p := range q {
		out[i] = c.ToDisplay(p)
	}
	return out
}
