// Package ocr reads the text of a captured document with Tesseract.
//
// It wraps the Tesseract engine (via gosseract/v2) and works on in-memory
// images, so a rectified capture can be recognized without touching disk:
//
//	res, err := ocr.ExtractText(capture.Image, ocr.Options{Language: "eng"})
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// TESSDATA_PREFIX, or Options.TessdataPrefix, points Tesseract at a
// non-default language data directory.
//
// # Preprocessing
//
// Captures are converted to grayscale and small ones are upscaled so the
// shorter side reaches MinShortSide before recognition. Bounding boxes are
// mapped back to the coordinates of the image that was passed in.
package ocr
