package ocr

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// MinShortSide is the shorter side small images are upscaled to.
const MinShortSide = 1000

// Options configures a recognition run.
type Options struct {
	// Language is a Tesseract language code such as "eng" or "eng+deu".
	Language string

	// TessdataPrefix overrides TESSDATA_PREFIX when set.
	TessdataPrefix string

	// MinConfidence drops words below this confidence (0 to 1).
	MinConfidence float64
}

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// TextRegion is a recognized word with its location and confidence.
type TextRegion struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Bounds     Bounds  `json:"bounds"`
}

// Result contains the text of one image.
type Result struct {
	// FullText keeps Tesseract's spacing and newlines.
	FullText string `json:"full_text"`

	// Regions may be empty when word boxes are unavailable; FullText is
	// still filled in that case.
	Regions []TextRegion `json:"regions"`

	// Language is the language set that was used.
	Language string `json:"language"`
}

// Words returns the region texts in reading order.
func (r *Result) Words() []string {
	out := make([]string, 0, len(r.Regions))
	for _, reg := range r.Regions {
		out = append(out, reg.Text)
	}
	return out
}

// ExtractText recognizes the text of img.
func ExtractText(img image.Image, opts Options) (*Result, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("empty image")
	}
	if opts.Language == "" {
		opts.Language = "eng"
	}

	prepared, scale := prepare(img)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, prepared, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if opts.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(opts.TessdataPrefix); err != nil {
			return nil, fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(strings.Split(opts.Language, "+")...); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}
	result := &Result{FullText: text, Regions: []TextRegion{}, Language: opts.Language}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return result, nil
	}

	origin := img.Bounds().Min
	for _, box := range boxes {
		word := strings.TrimSpace(box.Word)
		conf := box.Confidence / 100.0
		if word == "" || conf < opts.MinConfidence {
			continue
		}
		result.Regions = append(result.Regions, TextRegion{
			Text:       word,
			Confidence: conf,
			Bounds:     unscale(box.Box, scale, origin),
		})
	}
	return result, nil
}

// ExtractTextFromFile loads path (honoring EXIF orientation) and recognizes
// its text.
func ExtractTextFromFile(path string, opts Options) (*Result, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	return ExtractText(img, opts)
}

// ExtractTextFromRegion recognizes the text inside rect. Returned bounds are
// in the coordinates of img, not of the crop.
func ExtractTextFromRegion(img image.Image, rect image.Rectangle, opts Options) (*Result, error) {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("region %v is outside the image", rect)
	}
	cropped := imaging.Crop(img, rect)

	result, err := ExtractText(cropped, opts)
	if err != nil {
		return nil, err
	}
	for i := range result.Regions {
		result.Regions[i].Bounds.X1 += rect.Min.X
		result.Regions[i].Bounds.Y1 += rect.Min.Y
		result.Regions[i].Bounds.X2 += rect.Min.X
		result.Regions[i].Bounds.Y2 += rect.Min.Y
	}
	return result, nil
}

// Version returns the linked Tesseract version.
func Version() string {
	return gosseract.Version()
}

// prepare converts img to grayscale and upscales it when its shorter side is
// below MinShortSide. It returns the scale factor that was applied.
func prepare(img image.Image) (image.Image, float64) {
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	short := b.Dx()
	if b.Dy() < short {
		short = b.Dy()
	}
	if short >= MinShortSide {
		return gray, 1
	}
	scale := float64(MinShortSide) / float64(short)
	if scale > 4 {
		scale = 4
	}
	w := int(float64(b.Dx())*scale + 0.5)
	h := int(float64(b.Dy())*scale + 0.5)
	return imaging.Resize(gray, w, h, imaging.Lanczos), scale
}

// unscale maps a box in the prepared image back to the source image.
func unscale(r image.Rectangle, scale float64, origin image.Point) Bounds {
	f := func(v int) int { return int(float64(v)/scale + 0.5) }
	return Bounds{
		X1: f(r.Min.X) + origin.X,
		Y1: f(r.Min.Y) + origin.Y,
		X2: f(r.Max.X) + origin.X,
		Y2: f(r.Max.Y) + origin.Y,
	}
}
