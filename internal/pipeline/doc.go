// Package pipeline wires detection, stability, overlay, fallback and
// rectification into one host-driven controller.
//
// The host calls Controller.Tick with the current time and camera frame.
// Frames arriving faster than the frame budget are skipped. Each processed
// frame flows Processor -> Tracker -> {Renderer, feedback, capture on
// lock}. Fallback outcomes queued since the previous tick are injected into
// the Tracker before the new frame, in arrival order.
package pipeline
