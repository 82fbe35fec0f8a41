package fallback

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/docscan/internal/detection"
	"github.com/ironsheep/docscan/internal/geometry"
)

// ErrBusy is returned by Request while another request is in flight.
var ErrBusy = errors.New("fallback: request already in flight")

// Response is what a Detector reports. Corners are normalized to [0,1] of
// the submitted frame.
type Response struct {
	Found   bool
	Corners [4]geometry.Point
	Status  string
}

// Detector is a remote document detector.
type Detector interface {
	Detect(ctx context.Context, frame image.Image) (Response, error)
}

// Options tunes a Coordinator.
type Options struct {
	// MissAfter is how long local detection must fail before a request.
	MissAfter time.Duration
	// Backoff is the minimum time between request issues.
	Backoff time.Duration
	// Timeout bounds a single request.
	Timeout time.Duration
}

// DefaultOptions returns the standard fallback tuning.
func DefaultOptions() Options {
	return Options{
		MissAfter: 1800 * time.Millisecond,
		Backoff:   4 * time.Second,
		Timeout:   2500 * time.Millisecond,
	}
}

// Coordinator decides when to call the Detector and delivers results.
type Coordinator struct {
	opts     Options
	detector Detector
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	results chan Result

	mu              sync.Mutex
	missSince       time.Time
	lastDetectionAt time.Time
	lastIssued      time.Time
	inFlight        bool
	issued          int
}

// NewCoordinator creates a Coordinator. A nil detector disables fallback.
func NewCoordinator(detector Detector, opts Options, log zerolog.Logger) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		opts:     opts,
		detector: detector,
		log:      log.With().Str("component", "fallback").Logger(),
		ctx:      ctx,
		cancel:   cancel,
		results:  make(chan Result, 8),
	}
}

// Results delivers outcomes in completion order.
func (c *Coordinator) Results() <-chan Result {
	return c.results
}

// Observe records one local detection result. When the miss window,
// cooldown, in-flight and backoff conditions all allow it, it issues a
// request with the frame returned by snapshot and reports true.
func (c *Coordinator) Observe(now time.Time, res detection.Result, cooldown bool, snapshot func() image.Image) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if res.HasQuad() {
		c.lastDetectionAt = now
		c.missSince = time.Time{}
		return false
	}
	if c.missSince.IsZero() {
		c.missSince = now
	}

	if c.detector == nil || cooldown || c.inFlight {
		return false
	}
	if now.Sub(c.missSince) < c.opts.MissAfter {
		return false
	}
	if !c.lastIssued.IsZero() && now.Sub(c.lastIssued) < c.opts.Backoff {
		return false
	}

	frame := snapshot()
	if frame == nil {
		return false
	}
	c.issueLocked(now, frame, res.Width, res.Height, res.Brightness)
	return true
}

// Request issues a request immediately regardless of the miss window and
// backoff. It fails with ErrBusy while a request is in flight.
func (c *Coordinator) Request(now time.Time, frame image.Image, brightness float64) error {
	if frame == nil {
		return fmt.Errorf("fallback: no frame")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detector == nil {
		return fmt.Errorf("fallback: no detector configured")
	}
	if c.inFlight {
		return ErrBusy
	}
	b := frame.Bounds()
	c.issueLocked(now, frame, b.Dx(), b.Dy(), brightness)
	return nil
}

// issueLocked starts the request goroutine. c.mu must be held.
func (c *Coordinator) issueLocked(now time.Time, frame image.Image, w, h int, brightness float64) {
	c.inFlight = true
	c.lastIssued = now
	c.issued++
	c.log.Info().Int("width", w).Int("height", h).Msg("requesting fallback detection")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		out := c.run(frame, w, h)

		select {
		case c.results <- Result{Outcome: out, IssuedAt: now, Width: w, Height: h, Brightness: brightness}:
		case <-c.ctx.Done():
		}

		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()
}

// run performs one bounded detector call and converts it to an Outcome.
func (c *Coordinator) run(frame image.Image, w, h int) (out Outcome) {
	ctx, cancel := context.WithTimeout(c.ctx, c.opts.Timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			c.log.Warn().Interface("panic", r).Msg("fallback detector panicked")
			out = NotFound{Status: "error"}
		}
	}()

	resp, err := c.detector.Detect(ctx, frame)
	if err != nil {
		status := "error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			status = "timeout"
		}
		c.log.Warn().Err(err).Str("status", status).Msg("fallback detection failed")
		return NotFound{Status: status}
	}
	if !resp.Found {
		return NotFound{Status: resp.Status}
	}
	return Found{Quad: geometry.FromNormalized(resp.Corners, w, h), Status: resp.Status}
}

// Accept reports whether a delivered result may still be applied. Results
// are stale once the pipeline stopped, the tracker locked or a local
// detection arrived after the request was issued.
func (c *Coordinator) Accept(r Result, stopped, locked bool) bool {
	if stopped || locked {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.lastDetectionAt.After(r.IssuedAt)
}

// InFlight reports whether a request is outstanding.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Issued returns how many requests have been started.
func (c *Coordinator) Issued() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.issued
}

// Reset forgets the miss window and backoff, e.g. after Resume.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.missSince = time.Time{}
	c.lastIssued = time.Time{}
}

// Close cancels any outstanding request and waits for it to finish.
func (c *Coordinator) Close() {
	c.cancel()
	c.wg.Wait()
}
