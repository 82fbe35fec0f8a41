package overlay

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/docscan/internal/geometry"
)

// Surface is an immediate-mode display target.
type Surface interface {
	// Size returns the display size in pixels.
	Size() (width, height int)

	// SetPolygon replaces whatever was drawn before. opacity is in [0,1];
	// zero means the outline is hidden.
	SetPolygon(points []geometry.Point, style Style, opacity float64)
}

// Style is the outline appearance.
type Style struct {
	Name   string
	Stroke colorful.Color
	Fill   colorful.Color
}

var (
	// TrackingStyle is used while the document is not locked.
	TrackingStyle = newStyle("tracking", "#f2c94c")
	// LockedStyle is used while the tracker is Locked.
	LockedStyle = newStyle("locked", "#27ae60")
)

func newStyle(name, hex string) Style {
	c, err := colorful.Hex(hex)
	if err != nil {
		panic(fmt.Sprintf("overlay: bad style color %q: %v", hex, err))
	}
	white := colorful.Color{R: 1, G: 1, B: 1}
	return Style{Name: name, Stroke: c, Fill: c.BlendLab(white, 0.65)}
}

// StyleFor picks the outline style from the lock flag alone.
func StyleFor(locked bool) Style {
	if locked {
		return LockedStyle
	}
	return TrackingStyle
}
