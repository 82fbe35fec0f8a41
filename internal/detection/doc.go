// Package detection finds a document quadrilateral in a single camera frame.
//
// A Processor downscales the frame, converts it to luma, runs Canny edge
// detection with thresholds adapted to the frame's mean brightness, dilates
// the edges once and extracts both outer and hole contours. The largest
// contour that simplifies to exactly four convex vertices wins, provided it
// covers enough of the frame. The result carries the quad in processing
// coordinates, the frame brightness and a size class derived from the aspect
// ratio.
//
// # Backends
//
// Edge and contour work is delegated to a Backend so that an accelerated
// implementation can replace the pure-Go one in internal/imaging.
//
// # Errors
//
// Process never returns an error. A missing frame yields ok=false, a frame
// without a document yields a Result with a nil Quad, and a panic inside the
// backend is recovered into a Result carrying a Diagnostic.
package detection
