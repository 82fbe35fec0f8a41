// Package overlay animates the detected document outline on a display.
//
// The renderer maps processing-space quads into display space with a
// cover-fit transform and moves four critically damped springs toward the
// target corners. Without a target the corners relax toward the display
// center on a softer spring while the outline fades out. Physics runs on its
// own ticker goroutine; drawing is throttled separately. The goroutine exits
// once nothing is moving and restarts on the next SetTarget.
//
// Drawing is immediate-mode: the renderer calls Surface.SetPolygon with the
// full polygon, style and opacity every time it draws.
package overlay
