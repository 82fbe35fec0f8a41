package imaging

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/parallel"
)

// gaussian5 is the 5x5 Gaussian kernel (sigma ≈ 1.4) used before edge
// detection. Its weights sum to 273.
var gaussian5 = [5][5]float32{
	{1, 4, 7, 4, 1},
	{4, 16, 26, 16, 4},
	{7, 26, 41, 26, 7},
	{4, 16, 26, 16, 4},
	{1, 4, 7, 4, 1},
}

const gaussian5Sum = 273

// Direction bins for non-maximum suppression.
const (
	dirHorizontal = iota // gradient along X, compare left/right
	dirDiagonalUp        // compare up-right / down-left
	dirVertical          // gradient along Y, compare up/down
	dirDiagonalDown      // compare up-left / down-right
)

// blurInto applies the 5x5 Gaussian to gray and writes into n.blur.
// Border pixels use clamped (replicated) edge values.
func (n *Native) blurInto(gray *image.Gray) {
	w, h := n.w, n.h
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				var sum float32
				for ky := -2; ky <= 2; ky++ {
					py := clamp(y+ky, 0, h-1)
					row := gray.Pix[py*gray.Stride:]
					for kx := -2; kx <= 2; kx++ {
						px := clamp(x+kx, 0, w-1)
						sum += float32(row[px]) * gaussian5[ky+2][kx+2]
					}
				}
				n.blur[y*w+x] = sum / gaussian5Sum
			}
		}
	})
}

// gradientInto computes the Sobel L1 magnitude |Gx|+|Gy| and a quantized
// direction for every pixel of n.blur.
func (n *Native) gradientInto() {
	w, h := n.w, n.h
	b := n.blur
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			ym := clamp(y-1, 0, h-1) * w
			y0 := y * w
			yp := clamp(y+1, 0, h-1) * w
			for x := 0; x < w; x++ {
				xm := clamp(x-1, 0, w-1)
				xp := clamp(x+1, 0, w-1)

				gx := (b[ym+xp] + 2*b[y0+xp] + b[yp+xp]) - (b[ym+xm] + 2*b[y0+xm] + b[yp+xm])
				gy := (b[yp+xm] + 2*b[yp+x] + b[yp+xp]) - (b[ym+xm] + 2*b[ym+x] + b[ym+xp])

				n.mag[y0+x] = abs32(gx) + abs32(gy)
				n.dir[y0+x] = quantizeDirection(float64(gx), float64(gy))
			}
		}
	})
}

// quantizeDirection maps a gradient vector onto one of four NMS bins.
func quantizeDirection(gx, gy float64) uint8 {
	angle := math.Atan2(gy, gx)
	if angle < 0 {
		angle += math.Pi
	}
	switch {
	case angle < math.Pi/8 || angle >= 7*math.Pi/8:
		return dirHorizontal
	case angle < 3*math.Pi/8:
		return dirDiagonalDown
	case angle < 5*math.Pi/8:
		return dirVertical
	default:
		return dirDiagonalUp
	}
}

// suppressInto keeps only local maxima along the gradient direction.
// Border pixels are never edges.
func (n *Native) suppressInto() {
	w, h := n.w, n.h
	m := n.mag
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				i := y*w + x
				if y == 0 || y == h-1 || x == 0 || x == w-1 {
					n.nms[i] = 0
					continue
				}
				var n1, n2 float32
				switch n.dir[i] {
				case dirHorizontal:
					n1, n2 = m[i-1], m[i+1]
				case dirDiagonalUp:
					n1, n2 = m[i-w+1], m[i+w-1]
				case dirVertical:
					n1, n2 = m[i-w], m[i+w]
				default:
					n1, n2 = m[i-w-1], m[i+w+1]
				}
				if m[i] > 0 && m[i] >= n1 && m[i] >= n2 {
					n.nms[i] = m[i]
				} else {
					n.nms[i] = 0
				}
			}
		}
	})
}

// hysteresisInto marks strong edges (>= high) and every weak edge (>= low)
// 8-connected to a strong one. Output is 255 for edges, 0 otherwise.
func (n *Native) hysteresisInto(low, high float32) {
	w, h := n.w, n.h
	for i := range n.edges {
		n.edges[i] = 0
	}

	stack := n.stack[:0]
	for i, v := range n.nms {
		if v > 0 && v >= high && n.edges[i] == 0 {
			n.edges[i] = 255
			stack = append(stack, i)

			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				px, py := p%w, p/w
				for dy := -1; dy <= 1; dy++ {
					ny := py + dy
					if ny < 0 || ny >= h {
						continue
					}
					for dx := -1; dx <= 1; dx++ {
						nx := px + dx
						if nx < 0 || nx >= w {
							continue
						}
						q := ny*w + nx
						if n.edges[q] == 0 && n.nms[q] > 0 && n.nms[q] >= low {
							n.edges[q] = 255
							stack = append(stack, q)
						}
					}
				}
			}
		}
	}
	n.stack = stack[:0]
}

// dilateInto grows edges with a square kernel of the given radius
// (radius 2 = 5x5) using two separable max passes.
func (n *Native) dilateInto(radius int) {
	w, h := n.w, n.h
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			row := y * w
			for x := 0; x < w; x++ {
				var v uint8
				for k := -radius; k <= radius && v == 0; k++ {
					xx := x + k
					if xx >= 0 && xx < w {
						v = n.edges[row+xx]
					}
				}
				n.tmp[row+x] = v
			}
		}
	})
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				var v uint8
				for k := -radius; k <= radius && v == 0; k++ {
					yy := y + k
					if yy >= 0 && yy < h {
						v = n.tmp[yy*w+x]
					}
				}
				n.dilated[y*w+x] = v
			}
		}
	})
}

// CannyThresholds derives low/high Canny thresholds from a mean brightness
// using the fixed 0.67/1.33 ratio, clamped to [0,255]. A fixed threshold
// fails in both low light and overexposure.
func CannyThresholds(mean float64) (low, high float64) {
	return clampF(0.67*mean, 0, 255), clampF(1.33*mean, 0, 255)
}

// clamp constrains an integer value to the range [min, max].
// Used for boundary handling in convolution operations.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

func clampF(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
