package rectify

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"github.com/ironsheep/docscan/internal/geometry"
	docimaging "github.com/ironsheep/docscan/internal/imaging"
)

// ErrDegenerateQuad is reported when a quad cannot describe a document.
var ErrDegenerateQuad = errors.New("rectify: degenerate quad")

// Warper maps a quad region of src onto an upright w×h image.
type Warper interface {
	Warp(src image.Image, quad geometry.Quad, w, h int) (*image.RGBA, error)
}

// Options tunes a Rectifier.
type Options struct {
	// Enhance is applied to every output.
	Enhance Mode

	// BWLevel is the threshold for ModeBW.
	BWLevel uint8

	// MaxSide caps the longer output side (0 = uncapped).
	MaxSide int
}

// DefaultOptions returns a rectifier with no enhancement and no size cap.
func DefaultOptions() Options {
	return Options{Enhance: ModeNone, BWLevel: 128}
}

// Output is a rectified capture. When Rectified is false, Image is the
// original frame and Warning says why.
type Output struct {
	Image     image.Image
	Rectified bool
	Warning   string
}

// Rectifier produces flat document images.
type Rectifier struct {
	opts   Options
	warper Warper
	log    zerolog.Logger
}

// NewRectifier creates a Rectifier. A nil warper selects the pure-Go warp.
func NewRectifier(opts Options, warper Warper, log zerolog.Logger) *Rectifier {
	if warper == nil {
		warper = docimaging.NewNative()
	}
	return &Rectifier{
		opts:   opts,
		warper: warper,
		log:    log.With().Str("component", "rectify").Logger(),
	}
}

// Rectify warps the quad region of frame upright. quad must be in frame
// pixel coordinates; use ScaleToCapture to convert from processing space.
func (r *Rectifier) Rectify(frame image.Image, quad geometry.Quad) Output {
	img, err := r.warp(frame, quad)
	if err != nil {
		r.log.Warn().Err(err).Msg("rectification failed, keeping original frame")
		return Output{
			Image:   r.finish(frame),
			Warning: err.Error(),
		}
	}
	return Output{Image: r.finish(img), Rectified: true}
}

func (r *Rectifier) warp(frame image.Image, quad geometry.Quad) (image.Image, error) {
	if frame == nil {
		return nil, fmt.Errorf("no frame to rectify")
	}
	quad = geometry.OrderCorners(quad)
	if err := validate(quad); err != nil {
		return nil, err
	}
	w, h := OutputSize(quad)
	img, err := r.warper.Warp(frame, quad, w, h)
	if err != nil {
		return nil, fmt.Errorf("perspective warp failed: %w", err)
	}
	return img, nil
}

func (r *Rectifier) finish(img image.Image) image.Image {
	if img == nil {
		return nil
	}
	out := Enhance(img, r.opts.Enhance, r.opts.BWLevel)
	if m := r.opts.MaxSide; m > 0 {
		b := out.Bounds()
		if b.Dx() > m || b.Dy() > m {
			out = imaging.Fit(out, m, m, imaging.Lanczos)
		}
	}
	return out
}

func validate(q geometry.Quad) error {
	for _, p := range q {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return fmt.Errorf("%w: non-finite corner", ErrDegenerateQuad)
		}
	}
	if q.Area() < 1 || !geometry.IsConvex(q.Points()) {
		return fmt.Errorf("%w: area %.1f", ErrDegenerateQuad, q.Area())
	}
	return nil
}

// OutputSize returns the rectified width (longer of top and bottom edges)
// and height (longer of left and right edges), at least 1×1.
func OutputSize(q geometry.Quad) (int, int) {
	top, right, bottom, left := q.EdgeLengths()
	w := int(math.Round(math.Max(top, bottom)))
	h := int(math.Round(math.Max(left, right)))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// ScaleToCapture maps a processing-space quad onto a capture frame of a
// different resolution, scaling X and Y independently.
func ScaleToCapture(q geometry.Quad, procW, procH, capW, capH int) geometry.Quad {
	if procW <= 0 || procH <= 0 {
		return q
	}
	return geometry.ScaleQuad(q, float64(capW)/float64(procW), float64(capH)/float64(procH))
}
