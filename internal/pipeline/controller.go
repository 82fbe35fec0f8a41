package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/docscan/internal/detection"
	"github.com/ironsheep/docscan/internal/fallback"
	"github.com/ironsheep/docscan/internal/overlay"
	"github.com/ironsheep/docscan/internal/rectify"
	"github.com/ironsheep/docscan/internal/stability"
)

var (
	// ErrStopped is returned by every operation after Stop.
	ErrStopped = errors.New("pipeline: stopped")
	// ErrNoQuad is returned by Capture when no document is tracked.
	ErrNoQuad = errors.New("pipeline: no document in view")
)

// Options tunes a Controller.
type Options struct {
	// TargetFPS is the processing frame budget.
	TargetFPS int
	// AutoCapture captures on every lock.
	AutoCapture bool
	// DarkThreshold is the mean brightness below which searching reports
	// "too dark".
	DarkThreshold float64
	// FallbackHold is how long an accepted fallback quad stands in for
	// local misses. A local detection or a later NotFound ends it sooner.
	FallbackHold time.Duration
}

// DefaultOptions returns the standard controller tuning.
func DefaultOptions() Options {
	return Options{TargetFPS: 30, AutoCapture: true, DarkThreshold: 40, FallbackHold: 2 * time.Second}
}

// Deps are the components a Controller drives. Processor, Tracker and
// Rectifier are required; the rest are optional.
type Deps struct {
	Processor *detection.Processor
	Tracker   *stability.Tracker
	Rectifier *rectify.Rectifier
	Renderer  *overlay.Renderer
	Fallback  *fallback.Coordinator
	Consumer  CaptureConsumer
	Feedback  FeedbackSink
	Cues      *Cues
}

// Step reports what one Tick did.
type Step struct {
	// Processed is false when the frame was skipped (budget, pause or no
	// frame).
	Processed bool
	Snapshot  stability.Snapshot
	Published bool

	FallbackIssued    bool
	FallbackApplied   int
	FallbackDiscarded int

	Capture *Capture
}

// Controller is the host-driven pipeline. All methods are safe for
// concurrent use; Tick calls are serialized.
type Controller struct {
	opts   Options
	deps   Deps
	log    zerolog.Logger
	budget time.Duration

	mu            sync.Mutex
	paused        bool
	stopped       bool
	lastProcessed time.Time
	lastLocked    bool
	lastFrame     image.Image

	held      *detection.Result
	heldUntil time.Time
}

// New creates a Controller.
func New(opts Options, deps Deps, log zerolog.Logger) *Controller {
	if opts.TargetFPS <= 0 {
		opts.TargetFPS = DefaultOptions().TargetFPS
	}
	if deps.Cues == nil {
		deps.Cues = NewCues(nil, log)
	}
	return &Controller{
		opts:   opts,
		deps:   deps,
		log:    log.With().Str("component", "pipeline").Logger(),
		budget: time.Second / time.Duration(opts.TargetFPS),
	}
}

// Tick offers one frame at time now. A nil frame means the source is
// unavailable and nothing is processed.
func (c *Controller) Tick(ctx context.Context, now time.Time, frame image.Image) (Step, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return Step{}, ErrStopped
	}
	if c.paused {
		return Step{}, nil
	}

	var step Step
	c.drainFallback(ctx, now, &step)

	if frame == nil {
		return step, nil
	}
	if !c.lastProcessed.IsZero() && now.Sub(c.lastProcessed) < c.budget {
		return step, nil
	}

	res, ok := c.deps.Processor.Process(frame)
	if !ok {
		return step, nil
	}
	c.lastProcessed = now
	c.lastFrame = frame
	step.Processed = true

	if res.Diagnostic != "" {
		c.log.Warn().Str("diagnostic", res.Diagnostic).Msg("frame processing failed")
	}

	local := res
	res = c.standIn(now, res)

	if f := c.deps.Fallback; f != nil {
		snapshot := func() image.Image {
			if s := c.deps.Processor.Snapshot(); s != nil {
				return s
			}
			return nil
		}
		step.FallbackIssued = f.Observe(now, local, c.deps.Tracker.InCooldown(now), snapshot)
	}

	err := c.apply(ctx, now, res, &step)
	return step, err
}

// drainFallback injects every queued fallback outcome in arrival order.
func (c *Controller) drainFallback(ctx context.Context, now time.Time, step *Step) {
	f := c.deps.Fallback
	if f == nil {
		return
	}
	for {
		select {
		case r := <-f.Results():
			found, ok := r.Outcome.(fallback.Found)
			if !ok {
				c.log.Debug().Interface("outcome", r.Outcome).Msg("fallback found nothing")
				c.held = nil
				continue
			}
			if !f.Accept(r, c.stopped, c.deps.Tracker.Locked()) {
				step.FallbackDiscarded++
				c.log.Debug().Msg("discarding stale fallback result")
				continue
			}
			step.FallbackApplied++
			res := detection.NewFallbackResult(found.Quad, r.Width, r.Height, r.Brightness)
			c.held = &res
			c.heldUntil = now.Add(c.opts.FallbackHold)
			if err := c.apply(ctx, now, res, step); err != nil {
				c.log.Warn().Err(err).Msg("capture after fallback failed")
			}
		default:
			return
		}
	}
}

// standIn returns the held fallback result in place of a local miss on the
// same canvas. Any local quad drops the held result.
func (c *Controller) standIn(now time.Time, res detection.Result) detection.Result {
	h := c.held
	if h == nil {
		return res
	}
	if res.HasQuad() || !now.Before(c.heldUntil) || h.Width != res.Width || h.Height != res.Height {
		c.held = nil
		return res
	}
	out := *h
	out.Brightness = res.Brightness
	out.Diagnostic = res.Diagnostic
	return out
}

// apply feeds a result to the tracker and fans the snapshot out.
func (c *Controller) apply(ctx context.Context, now time.Time, res detection.Result, step *Step) error {
	snap, emit := c.deps.Tracker.Update(now, res)
	step.Snapshot = snap

	if r := c.deps.Renderer; r != nil {
		r.SetTarget(snap.Quad, snap.Width, snap.Height, snap.Locked)
	}
	if emit {
		c.publish(snap)
		step.Published = true
	}

	entered := snap.Locked && !c.lastLocked
	c.lastLocked = snap.Locked
	if !entered {
		return nil
	}

	c.deps.Cues.Play(CueLock)
	c.log.Info().Str("class", string(snap.Classification)).Float64("quality", snap.Quality).Msg("document locked")
	if !c.opts.AutoCapture || c.lastFrame == nil {
		return nil
	}
	cp, err := c.capture(ctx, now, snap, true)
	step.Capture = cp
	return err
}

// Capture rectifies the most recent frame with the currently tracked quad.
func (c *Controller) Capture(ctx context.Context, now time.Time) (*Capture, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return nil, ErrStopped
	}
	snap := c.deps.Tracker.Last()
	if snap.Quad == nil || c.lastFrame == nil {
		return nil, ErrNoQuad
	}
	return c.capture(ctx, now, snap, false)
}

// capture rectifies c.lastFrame, starts the cooldown and delivers the
// result. c.mu must be held.
func (c *Controller) capture(ctx context.Context, now time.Time, snap stability.Snapshot, auto bool) (*Capture, error) {
	req := newCaptureRequest(c.lastFrame, snap)
	out := c.deps.Rectifier.Rectify(req.Frame, req.Quad)

	c.deps.Tracker.TriggerCooldown(now)
	c.lastLocked = false
	if snap.Source == detection.SourceFallback {
		c.held = nil
	}
	c.deps.Cues.Play(CueCapture)
	if r := c.deps.Renderer; r != nil {
		r.SetTarget(snap.Quad, snap.Width, snap.Height, false)
	}

	cooled := snap
	cooled.State = stability.Cooldown
	cooled.Locked = false
	c.publish(cooled)

	cp := &Capture{
		At:             now,
		Image:          out.Image,
		Rectified:      out.Rectified,
		Warning:        out.Warning,
		Quad:           req.Quad,
		Classification: snap.Classification,
		Quality:        snap.Quality,
		Source:         snap.Source,
		Auto:           auto,
	}
	c.log.Info().Bool("rectified", out.Rectified).Bool("auto", auto).Msg("document captured")

	if c.deps.Consumer == nil {
		return cp, nil
	}
	if err := c.deps.Consumer.Deliver(ctx, *cp); err != nil {
		return cp, fmt.Errorf("failed to deliver capture: %w", err)
	}
	return cp, nil
}

func (c *Controller) publish(snap stability.Snapshot) {
	if c.deps.Feedback != nil {
		c.deps.Feedback.Publish(NewFeedback(snap, c.opts.DarkThreshold))
	}
}

// Pause stops processing without freeing buffers and hides the overlay.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.paused {
		return
	}
	c.paused = true
	if r := c.deps.Renderer; r != nil {
		r.SetTarget(nil, 0, 0, false)
	}
	c.log.Debug().Msg("pipeline paused")
}

// Resume restarts processing after Pause with fresh tracking state.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || !c.paused {
		return
	}
	c.paused = false
	c.lastProcessed = time.Time{}
	c.lastLocked = false
	c.held = nil
	c.deps.Tracker.Reset()
	if f := c.deps.Fallback; f != nil {
		f.Reset()
	}
	c.log.Debug().Msg("pipeline resumed")
}

// Paused reports whether the controller is paused.
func (c *Controller) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Stop releases every buffer, stops the overlay loop and cancels any
// fallback request. A stopped controller cannot be restarted.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	c.lastFrame = nil
	c.held = nil
	c.deps.Processor.Release()
	if r := c.deps.Renderer; r != nil {
		r.Stop()
	}
	if f := c.deps.Fallback; f != nil {
		f.Close()
	}
	c.log.Debug().Msg("pipeline stopped")
}
