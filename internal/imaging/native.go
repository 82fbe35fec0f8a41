package imaging

import "image"

// DilateRadius is the half-width of the square dilation kernel (5x5).
const DilateRadius = 2

// Native is the pure-Go vision backend. It owns every intermediate buffer
// used by edge detection and contour extraction and reuses them across
// frames of the same size.
//
// A Native is not safe for concurrent use; the detection processor drives
// it from a single goroutine.
type Native struct {
	w, h int

	blur    []float32
	mag     []float32
	dir     []uint8
	nms     []float32
	edges   []uint8
	tmp     []uint8
	dilated []uint8
	labels  []int32
	stack   []int
}

// NewNative creates a backend with no buffers allocated. Buffers are sized
// lazily on the first frame.
func NewNative() *Native {
	return &Native{}
}

// ensure sizes every buffer for a w×h frame, reallocating only when the
// pixel count grows.
func (n *Native) ensure(w, h int) {
	n.w, n.h = w, h
	size := w * h
	if cap(n.blur) >= size {
		n.blur = n.blur[:size]
		n.mag = n.mag[:size]
		n.dir = n.dir[:size]
		n.nms = n.nms[:size]
		n.edges = n.edges[:size]
		n.tmp = n.tmp[:size]
		n.dilated = n.dilated[:size]
		n.labels = n.labels[:size]
		return
	}
	n.blur = make([]float32, size)
	n.mag = make([]float32, size)
	n.dir = make([]uint8, size)
	n.nms = make([]float32, size)
	n.edges = make([]uint8, size)
	n.tmp = make([]uint8, size)
	n.dilated = make([]uint8, size)
	n.labels = make([]int32, size)
}

// Release drops every buffer. The backend remains usable and reallocates
// on the next call.
func (n *Native) Release() {
	*n = Native{}
}

// Allocated reports whether the backend currently holds frame buffers.
func (n *Native) Allocated() bool {
	return n.blur != nil
}

// EdgeMask runs blur, Canny with the given thresholds and one dilation
// over gray. The returned slice is row-major (width = gray width), 255 for
// edge pixels, and is only valid until the next call on n.
func (n *Native) EdgeMask(gray *image.Gray, low, high float64) []uint8 {
	b := gray.Bounds()
	n.ensure(b.Dx(), b.Dy())
	n.blurInto(gray)
	n.gradientInto()
	n.suppressInto()
	n.hysteresisInto(float32(low), float32(high))
	n.dilateInto(DilateRadius)
	return n.dilated
}

// EdgeContours runs EdgeMask and returns the boundaries of every region
// whose bounding box covers at least minBoxArea pixels.
func (n *Native) EdgeContours(gray *image.Gray, low, high float64, minBoxArea int) []Contour {
	n.EdgeMask(gray, low, high)
	return n.contours(minBoxArea)
}
