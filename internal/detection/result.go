package detection

import (
	"math"

	"github.com/ironsheep/docscan/internal/geometry"
)

// Classification is a coarse document size class derived from aspect ratio.
type Classification string

const (
	Unknown Classification = "unknown"
	A4      Classification = "a4"
	Card    Classification = "card"
	Book    Classification = "book" // never produced by local detection
	Receipt Classification = "receipt"
)

// Source tells where a quad came from.
type Source int

const (
	SourceLocal Source = iota
	SourceFallback
)

func (s Source) String() string {
	if s == SourceFallback {
		return "fallback"
	}
	return "local"
}

// Result is the immutable outcome of processing one frame. Quad is nil when
// no document was found. All coordinates are in processing space, which is
// Width×Height.
type Result struct {
	Quad           *geometry.Quad
	Brightness     float64
	Classification Classification
	Diagnostic     string
	Width          int
	Height         int
	AreaRatio      float64
	Source         Source
}

// HasQuad reports whether the result carries a document boundary.
func (r Result) HasQuad() bool {
	return r.Quad != nil
}

// NewFallbackResult wraps a quad reported by the remote detector so it can
// flow through the tracker like a local detection.
func NewFallbackResult(q geometry.Quad, width, height int, brightness float64) Result {
	q = geometry.OrderCorners(q)
	r := Result{
		Quad:           &q,
		Brightness:     brightness,
		Classification: Classify(q),
		Width:          width,
		Height:         height,
		Source:         SourceFallback,
	}
	if width > 0 && height > 0 {
		r.AreaRatio = q.Area() / float64(width*height)
	}
	return r
}

// Aspect ratio bands for Classify.
const (
	a4Min      = 1.35
	a4Max      = 1.48
	cardMin    = 1.50
	cardMax    = 1.66
	receiptMin = 2.2
)

// Classify maps a quad to a size class by the ratio of its longer pair of
// opposite sides to its shorter pair.
func Classify(q geometry.Quad) Classification {
	top, right, bottom, left := q.EdgeLengths()
	horizontal := (top + bottom) / 2
	vertical := (left + right) / 2
	short := math.Min(horizontal, vertical)
	if short <= 0 {
		return Unknown
	}
	ratio := math.Max(horizontal, vertical) / short

	switch {
	case ratio >= a4Min && ratio < a4Max:
		return A4
	case ratio >= cardMin && ratio < cardMax:
		return Card
	case ratio >= receiptMin:
		return Receipt
	default:
		return Unknown
	}
}
