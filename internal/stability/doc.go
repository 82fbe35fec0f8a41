// Package stability decides when a tracked document boundary has been still
// long enough to capture.
//
// A Tracker consumes one detection.Result per processed frame. It smooths
// the quad with an exponential moving average, measures how far the smoothed
// corners moved since the previous frame and walks a four-state machine:
//
//	Searching -> Acquiring -> Locked -> Cooldown -> Searching
//
// The stability test uses hysteresis: a quad must move less than the enter
// threshold to start (or keep) the lock window, but a Locked quad is only
// released once it moves more than the larger exit threshold. Both
// thresholds scale with the processing canvas diagonal.
//
// Time is always passed in by the caller so the machine is deterministic
// under test.
package stability
