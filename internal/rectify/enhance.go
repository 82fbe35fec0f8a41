package rectify

import (
	"fmt"
	"image"
	"strings"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
)

// Mode selects post-rectification enhancement.
type Mode string

const (
	ModeNone      Mode = "none"
	ModeGrayscale Mode = "grayscale"
	ModeBW        Mode = "bw"
	ModeSharpen   Mode = "sharpen"
)

// ParseMode accepts a mode name case-insensitively; "" means ModeNone.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeNone:
		return ModeNone, nil
	case ModeGrayscale, ModeBW, ModeSharpen:
		return m, nil
	default:
		return "", fmt.Errorf("unknown enhance mode %q", s)
	}
}

// Enhance applies mode to img. level is the threshold for ModeBW.
func Enhance(img image.Image, mode Mode, level uint8) image.Image {
	switch mode {
	case ModeGrayscale:
		return effect.Grayscale(img)
	case ModeBW:
		return segment.Threshold(adjust.Contrast(effect.Grayscale(img), 0.2), level)
	case ModeSharpen:
		return effect.UnsharpMask(img, 1.5, 0.8)
	default:
		return img
	}
}
