package fallback

import (
	"time"

	"github.com/ironsheep/docscan/internal/geometry"
)

// Outcome is the result of one fallback request: either Found or NotFound.
type Outcome interface {
	isOutcome()
}

// Found carries a quad in processing-canvas coordinates.
type Found struct {
	Quad   geometry.Quad
	Status string
}

// NotFound means the detector saw no document, failed or timed out.
type NotFound struct {
	Status string
}

func (Found) isOutcome()    {}
func (NotFound) isOutcome() {}

// Result is an Outcome together with the request context needed to decide
// whether it is still relevant.
type Result struct {
	Outcome    Outcome
	IssuedAt   time.Time
	Width      int
	Height     int
	Brightness float64
}
