// Package store keeps a capture log: every delivered capture is written to
// an image file and recorded as a row in a SQLite database.
//
// Store implements pipeline.CaptureConsumer, so it can be plugged into the
// controller directly:
//
//	st, err := store.Open(store.Options{Dir: "captures", DBPath: "captures/captures.db"}, log)
//	ctl := pipeline.New(opts, pipeline.Deps{Consumer: st, ...}, log)
package store
