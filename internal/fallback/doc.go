// Package fallback asks a remote detector for the document boundary when
// local detection has failed for a sustained period.
//
// A Coordinator watches every local detection result. After a continuous run
// of misses it sends one frame to its Detector, at most one request at a
// time and never more often than the backoff window allows. The request
// runs on its own goroutine under a timeout; its Outcome is delivered on the
// Results channel for the pipeline to inject in arrival order. Any error or
// timeout becomes NotFound.
package fallback
