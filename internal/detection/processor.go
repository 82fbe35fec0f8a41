package detection

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/clone"
	"github.com/rs/zerolog"

	"github.com/ironsheep/docscan/internal/geometry"
	"github.com/ironsheep/docscan/internal/imaging"
)

// Backend performs the edge and contour stages of detection. Implementations
// own their intermediate buffers.
type Backend interface {
	// EdgeContours blurs gray, runs Canny with the given thresholds,
	// dilates once and returns every outer and hole contour whose bounding
	// box covers at least minBoxArea pixels.
	EdgeContours(gray *image.Gray, low, high float64, minBoxArea int) []imaging.Contour

	// ApproxPolygon simplifies a closed contour with Douglas-Peucker.
	ApproxPolygon(points []geometry.Point, epsilon float64) []geometry.Point

	// Release frees backend buffers.
	Release()
}

// Options tunes the Processor.
type Options struct {
	// MaxSide bounds the longer side of the processing raster.
	MaxSide int

	// MinAreaRatio rejects quads covering less of the frame than this.
	MinAreaRatio float64

	// EpsilonRatio is the Douglas-Peucker tolerance as a fraction of the
	// contour perimeter.
	EpsilonRatio float64
}

// DefaultOptions returns the standard detection tuning.
func DefaultOptions() Options {
	return Options{
		MaxSide:      720,
		MinAreaRatio: 0.20,
		EpsilonRatio: 0.02,
	}
}

// Processor turns frames into Results. It is not safe for concurrent use.
type Processor struct {
	opts    Options
	backend Backend
	log     zerolog.Logger

	scaled *image.RGBA
	gray   *image.Gray
}

// NewProcessor creates a Processor. A nil backend selects imaging.Native.
func NewProcessor(opts Options, backend Backend, log zerolog.Logger) *Processor {
	if backend == nil {
		backend = imaging.NewNative()
	}
	if opts.MaxSide <= 0 {
		opts.MaxSide = DefaultOptions().MaxSide
	}
	if opts.EpsilonRatio <= 0 {
		opts.EpsilonRatio = DefaultOptions().EpsilonRatio
	}
	return &Processor{
		opts:    opts,
		backend: backend,
		log:     log.With().Str("component", "detection").Logger(),
	}
}

// Process runs detection on one frame. ok is false when the frame is
// unavailable and nothing was processed.
func (p *Processor) Process(frame image.Image) (res Result, ok bool) {
	if frame == nil {
		return Result{}, false
	}
	b := frame.Bounds()
	if b.Empty() {
		return Result{}, false
	}

	w, h := imaging.DownscaleSize(b.Dx(), b.Dy(), p.opts.MaxSide)
	defer func() {
		if r := recover(); r != nil {
			p.log.Warn().Interface("panic", r).Msg("frame processing failed")
			res = Result{
				Width:      w,
				Height:     h,
				Diagnostic: fmt.Sprintf("processing failed: %v", r),
			}
			ok = true
		}
	}()

	if p.scaled != nil && (p.scaled.Rect.Dx() != w || p.scaled.Rect.Dy() != h) {
		p.log.Debug().Int("width", w).Int("height", h).Msg("processing resolution changed")
	}
	p.scaled = imaging.ScaleInto(p.scaled, frame, w, h)
	var mean float64
	p.gray, mean = imaging.GrayInto(p.gray, p.scaled)

	res = Result{Brightness: mean, Width: w, Height: h, Source: SourceLocal}

	quad, area, found := p.findQuad(w, h, mean)
	if !found {
		return res, true
	}
	ratio := area / float64(w*h)
	if ratio < p.opts.MinAreaRatio {
		return res, true
	}

	res.Quad = &quad
	res.AreaRatio = ratio
	res.Classification = Classify(quad)
	return res, true
}

// findQuad returns the largest-area contour approximation with exactly four
// convex vertices.
func (p *Processor) findQuad(w, h int, mean float64) (geometry.Quad, float64, bool) {
	low, high := imaging.CannyThresholds(mean)
	minBox := int(p.opts.MinAreaRatio * float64(w*h))
	contours := p.backend.EdgeContours(p.gray, low, high, minBox)

	var best geometry.Quad
	bestArea := 0.0
	found := false
	for _, c := range contours {
		if len(c.Points) < 4 {
			continue
		}
		eps := p.opts.EpsilonRatio * geometry.Perimeter(c.Points, true)
		poly := p.backend.ApproxPolygon(c.Points, eps)
		if len(poly) != 4 || !geometry.IsConvex(poly) {
			continue
		}
		if area := geometry.PolygonArea(poly); area > bestArea {
			q, _ := geometry.NewQuad(poly)
			best, bestArea, found = q, area, true
		}
	}
	return best, bestArea, found
}

// Snapshot returns a copy of the most recent processing raster, or nil
// before the first frame. The copy is safe to hand to another goroutine.
func (p *Processor) Snapshot() *image.RGBA {
	if p.scaled == nil {
		return nil
	}
	return clone.AsRGBA(p.scaled)
}

// Release frees every buffer. The next Process call reallocates.
func (p *Processor) Release() {
	p.scaled = nil
	p.gray = nil
	p.backend.Release()
}

// Allocated reports whether the processor holds frame buffers.
func (p *Processor) Allocated() bool {
	return p.scaled != nil
}
