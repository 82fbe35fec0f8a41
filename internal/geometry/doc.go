// Package geometry provides the pure geometric helpers used by the capture
// pipeline: corner ordering, polygon measurement, perspective transforms and
// the coordinate mappings between processing, display and capture space.
//
// # Coordinate Spaces
//
// Three pixel spaces exist in the pipeline and they must never be mixed:
//   - Processing space: the downscaled raster the detector works on
//   - Display space: the on-screen container the overlay is drawn into
//   - Capture space: the full-resolution frame handed to the rectifier
//
// Conversions are explicit: CoverFit maps processing space to display space
// and back, ScaleQuad maps processing space to capture space with independent
// per-axis factors.
//
// All spaces use the image convention: origin at top-left, X increases
// rightward, Y increases downward.
//
// # Canonical Corner Order
//
// A Quad is always ordered top-left, top-right, bottom-right, bottom-left.
// Every Quad returned from this package is canonical, so callers never need to
// re-sort. OrderCorners is idempotent.
//
// # Thread Safety
//
// The package has no state. All functions are safe for concurrent use.
package geometry
