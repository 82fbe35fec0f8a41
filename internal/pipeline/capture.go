package pipeline

import (
	"context"
	"image"
	"time"

	"github.com/ironsheep/docscan/internal/detection"
	"github.com/ironsheep/docscan/internal/geometry"
	"github.com/ironsheep/docscan/internal/rectify"
	"github.com/ironsheep/docscan/internal/stability"
)

// CaptureRequest is a frame and its document quad in that frame's pixel
// coordinates.
type CaptureRequest struct {
	Frame image.Image
	Quad  geometry.Quad
}

// newCaptureRequest lifts the snapshot quad from processing space into
// frame's pixel space.
func newCaptureRequest(frame image.Image, snap stability.Snapshot) CaptureRequest {
	b := frame.Bounds()
	return CaptureRequest{
		Frame: frame,
		Quad:  rectify.ScaleToCapture(*snap.Quad, snap.Width, snap.Height, b.Dx(), b.Dy()),
	}
}

// Capture is a finished capture handed to a CaptureConsumer.
type Capture struct {
	At             time.Time
	Image          image.Image
	Rectified      bool
	Warning        string
	Quad           geometry.Quad // capture space
	Classification detection.Classification
	Quality        float64
	Source         detection.Source
	Auto           bool
}

// CaptureConsumer receives captures.
type CaptureConsumer interface {
	Deliver(ctx context.Context, c Capture) error
}

// ConsumerFunc adapts a function to CaptureConsumer.
type ConsumerFunc func(ctx context.Context, c Capture) error

// Deliver implements CaptureConsumer.
func (f ConsumerFunc) Deliver(ctx context.Context, c Capture) error { return f(ctx, c) }
