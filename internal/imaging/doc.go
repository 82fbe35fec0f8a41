// Package imaging provides the pure-Go vision kernels used by document
// detection: frame downscaling and luma conversion, Gaussian blur, Canny
// edge detection with hysteresis, square dilation, connected-region
// boundary tracing, closed Douglas-Peucker simplification and perspective
// warping.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner,
// X increasing rightward and Y increasing downward.
//
// # Buffers
//
// Native owns every intermediate raster and reuses it across frames of the
// same size. Release drops them; the next frame reallocates. A Native must
// only be driven from one goroutine at a time. Row loops inside a single
// call are spread over CPUs with github.com/anthonynsimon/bild/parallel.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. The free functions (Warp, Encode,
// DrawQuad, ScaleInto, GrayInto) are stateless.
package imaging
