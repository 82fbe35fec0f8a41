// Package replay drives a pipeline Controller with frames read from disk on
// a synthetic clock and records what happened as a timeline.
package replay

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"time"

	stdimaging "github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"github.com/ironsheep/docscan/internal/imaging"
	"github.com/ironsheep/docscan/internal/pipeline"
)

// Event kinds.
const (
	KindState            = "state"
	KindFallbackIssued   = "fallback_issued"
	KindFallbackApplied  = "fallback_applied"
	KindFallbackDiscard  = "fallback_discarded"
	KindCapture          = "capture"
	KindCaptureFailed    = "capture_failed"
	KindProcessingFailed = "processing_failed"
)

// Options tunes a Runner.
type Options struct {
	// Interval is the synthetic time between ticks.
	Interval time.Duration
	// Repeat offers every frame this many consecutive ticks so that a still
	// photo can stay in view long enough to lock.
	Repeat int
	// Pace sleeps Interval between ticks so a live viewer can follow.
	Pace bool
	// OnFrame, when set, is called with every frame before it is ticked.
	OnFrame func(img image.Image)
}

// DefaultOptions ticks at 30 Hz and offers every frame once.
func DefaultOptions() Options {
	return Options{Interval: time.Second / 30, Repeat: 1}
}

// Event is one entry of a timeline.
type Event struct {
	Tick   int           `json:"tick"`
	Frame  string        `json:"frame"`
	Offset time.Duration `json:"offset_ns"`
	Kind   string        `json:"kind"`
	State  string        `json:"state,omitempty"`
	Detail string        `json:"detail,omitempty"`
}

// Timeline summarizes a replay.
type Timeline struct {
	Frames    int           `json:"frames"`
	Ticks     int           `json:"ticks"`
	Processed int           `json:"processed"`
	Captures  int           `json:"captures"`
	Duration  time.Duration `json:"duration_ns"`
	Events    []Event       `json:"events"`
}

// Runner replays frames through a Controller.
type Runner struct {
	ctl   *pipeline.Controller
	opts  Options
	cache *imaging.ImageCache
	log   zerolog.Logger
}

// NewRunner creates a Runner for ctl.
func NewRunner(ctl *pipeline.Controller, opts Options, log zerolog.Logger) *Runner {
	if opts.Interval <= 0 {
		opts.Interval = DefaultOptions().Interval
	}
	if opts.Repeat < 1 {
		opts.Repeat = 1
	}
	return &Runner{
		ctl:   ctl,
		opts:  opts,
		cache: imaging.NewImageCache(),
		log:   log.With().Str("component", "replay").Logger(),
	}
}

// ListFrames returns the image files in dir sorted by name.
func ListFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := stdimaging.FormatFromFilename(e.Name()); err != nil {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no image files in %s", dir)
	}
	return paths, nil
}

// Run ticks every frame in paths starting at start. It stops early when ctx
// is cancelled and returns the timeline recorded so far with ctx.Err().
func (r *Runner) Run(ctx context.Context, paths []string, start time.Time) (*Timeline, error) {
	tl := &Timeline{Frames: len(paths), Events: []Event{}}
	lastState := ""
	tick := 0

	for _, path := range paths {
		img, err := r.cache.Load(path)
		if err != nil {
			return tl, err
		}
		name := filepath.Base(path)

		for rep := 0; rep < r.opts.Repeat; rep++ {
			if err := ctx.Err(); err != nil {
				return tl, err
			}
			offset := time.Duration(tick) * r.opts.Interval
			ev := func(kind, state, detail string) {
				tl.Events = append(tl.Events, Event{Tick: tick, Frame: name, Offset: offset, Kind: kind, State: state, Detail: detail})
			}

			if r.opts.OnFrame != nil {
				r.opts.OnFrame(img)
			}
			step, err := r.ctl.Tick(ctx, start.Add(offset), img)
			if errors.Is(err, pipeline.ErrStopped) {
				return tl, err
			}
			tl.Ticks++
			tick++

			if step.Processed {
				tl.Processed++
				if d := step.Snapshot.Diagnostic; d != "" {
					ev(KindProcessingFailed, "", d)
				}
			}
			if step.FallbackIssued {
				ev(KindFallbackIssued, "", "")
			}
			for i := 0; i < step.FallbackApplied; i++ {
				ev(KindFallbackApplied, "", "")
			}
			for i := 0; i < step.FallbackDiscarded; i++ {
				ev(KindFallbackDiscard, "", "")
			}
			if step.Processed || step.FallbackApplied > 0 {
				if s := step.Snapshot.State.String(); s != lastState {
					ev(KindState, s, string(step.Snapshot.Classification))
					lastState = s
				}
			}
			if step.Capture != nil {
				tl.Captures++
				detail := "rectified"
				if !step.Capture.Rectified {
					detail = step.Capture.Warning
				}
				ev(KindCapture, "", detail)
				lastState = ""
			}
			if err != nil {
				ev(KindCaptureFailed, "", err.Error())
				r.log.Warn().Err(err).Str("frame", name).Msg("tick failed")
			}

			if r.opts.Pace {
				select {
				case <-ctx.Done():
					return tl, ctx.Err()
				case <-time.After(r.opts.Interval):
				}
			}
		}
		r.cache.Evict(path)
	}

	tl.Duration = time.Duration(tl.Ticks) * r.opts.Interval
	r.log.Info().
		Int("frames", tl.Frames).
		Int("processed", tl.Processed).
		Int("captures", tl.Captures).
		Msg("replay finished")
	return tl, nil
}
