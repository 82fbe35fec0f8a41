package overlay

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/docscan/internal/geometry"
)

// Options tunes a Renderer.
type Options struct {
	// TargetOmega is the spring frequency toward a live target.
	TargetOmega float64
	// RelaxOmega is the softer frequency toward the display center.
	RelaxOmega float64
	// FadeRate is the opacity change per second.
	FadeRate float64
	// MaxStep clamps the physics timestep.
	MaxStep time.Duration
	// DrawInterval throttles Surface.SetPolygon calls.
	DrawInterval time.Duration
	// TickInterval is the physics loop period. Zero disables the loop;
	// the caller then drives Step directly.
	TickInterval time.Duration
	// SettleAfter is how long a faded outline without a target is kept
	// before its state is discarded.
	SettleAfter time.Duration
}

// DefaultOptions returns the standard overlay motion.
func DefaultOptions() Options {
	return Options{
		TargetOmega:  18,
		RelaxOmega:   8,
		FadeRate:     4,
		MaxStep:      50 * time.Millisecond,
		DrawInterval: time.Second / 30,
		TickInterval: time.Second / 60,
		SettleAfter:  500 * time.Millisecond,
	}
}

const settleEpsilon = 0.05

// motion is the lazily created animation state.
type motion struct {
	corners       [4]Spring
	opacity       float64
	lastStep      time.Time
	lastDraw      time.Time
	drawnOpacity  float64
	noTargetSince time.Time
}

// Renderer animates the outline on a Surface. SetTarget may be called from
// any goroutine.
type Renderer struct {
	opts    Options
	surface Surface
	log     zerolog.Logger
	now     func() time.Time

	mu      sync.Mutex
	target  *geometry.Quad // display space
	locked  bool
	state   *motion
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewRenderer creates a Renderer drawing on surface.
func NewRenderer(surface Surface, opts Options, log zerolog.Logger) *Renderer {
	return &Renderer{
		opts:    opts,
		surface: surface,
		log:     log.With().Str("component", "overlay").Logger(),
		now:     time.Now,
	}
}

// SetTarget sets the quad to track, in processing coordinates of a
// procW×procH canvas. A nil quad removes the target. locked selects the
// style.
func (r *Renderer) SetTarget(q *geometry.Quad, procW, procH int, locked bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.locked = locked
	if q == nil {
		r.target = nil
		if r.state != nil {
			// the outline still has to relax and fade out
			r.startLocked()
		}
		return
	}
	dw, dh := r.surface.Size()
	fit := geometry.NewCoverFit(procW, procH, dw, dh)
	t := fit.QuadToDisplay(*q)
	r.target = &t

	if r.state == nil {
		r.state = &motion{}
		for i := range r.state.corners {
			r.state.corners[i].Pos = t[i]
		}
	}
	r.startLocked()
}

// startLocked launches the physics loop if it is enabled and not running.
// r.mu must be held.
func (r *Renderer) startLocked() {
	if r.running || r.opts.TickInterval <= 0 {
		return
	}
	r.running = true
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go r.loop(r.stop, r.done)
}

func (r *Renderer) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.opts.TickInterval)
	defer ticker.Stop()

	r.log.Debug().Msg("overlay loop started")
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if r.Step(r.now()) {
				continue
			}
			r.mu.Lock()
			// A SetTarget between Step and here needs the loop to keep going.
			if r.state != nil && (r.target == nil || !r.settledLocked()) {
				r.mu.Unlock()
				continue
			}
			r.running = false
			r.mu.Unlock()
			r.log.Debug().Msg("overlay loop idle")
			return
		}
	}
}

// Step advances physics to now and draws if the draw throttle allows. It
// returns false when there is nothing left to animate.
func (r *Renderer) Step(now time.Time) bool {
	r.mu.Lock()
	s := r.state
	if s == nil {
		r.mu.Unlock()
		return false
	}

	dt := 0.0
	if !s.lastStep.IsZero() {
		d := now.Sub(s.lastStep)
		if d > r.opts.MaxStep {
			d = r.opts.MaxStep
		}
		if d > 0 {
			dt = d.Seconds()
		}
	}
	s.lastStep = now

	if r.target != nil {
		s.noTargetSince = time.Time{}
		for i := range s.corners {
			s.corners[i].Step(r.target[i], r.opts.TargetOmega, dt)
		}
		s.opacity = math.Min(1, s.opacity+r.opts.FadeRate*dt)
	} else {
		if s.noTargetSince.IsZero() {
			s.noTargetSince = now
		}
		dw, dh := r.surface.Size()
		center := geometry.Point{X: float64(dw) / 2, Y: float64(dh) / 2}
		for i := range s.corners {
			s.corners[i].Step(center, r.opts.RelaxOmega, dt)
		}
		s.opacity = math.Max(0, s.opacity-r.opts.FadeRate*dt)
	}

	draw := s.lastDraw.IsZero() ||
		now.Sub(s.lastDraw) >= r.opts.DrawInterval ||
		(s.opacity == 0 && s.drawnOpacity > 0)
	var points []geometry.Point
	style := StyleFor(r.locked)
	opacity := s.opacity
	if draw {
		s.lastDraw = now
		s.drawnOpacity = opacity
		points = make([]geometry.Point, 4)
		for i := range s.corners {
			points[i] = s.corners[i].Pos
		}
	}

	active := true
	if r.target == nil && s.opacity == 0 && s.drawnOpacity == 0 &&
		now.Sub(s.noTargetSince) >= r.opts.SettleAfter {
		r.state = nil
		active = false
	} else if r.target != nil && r.settledLocked() && s.drawnOpacity == s.opacity {
		active = false
	}
	r.mu.Unlock()

	if draw {
		r.surface.SetPolygon(points, style, opacity)
	}
	return active
}

// settledLocked reports whether every corner rests on the target at full
// opacity. r.mu must be held.
func (r *Renderer) settledLocked() bool {
	s := r.state
	if s == nil || r.target == nil || s.opacity < 1 {
		return false
	}
	for i := range s.corners {
		if !s.corners[i].Settled(r.target[i], settleEpsilon) {
			return false
		}
	}
	return true
}

// Opacity returns the current outline opacity (0 without state).
func (r *Renderer) Opacity() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		return 0
	}
	return r.state.opacity
}

// HasState reports whether animation state currently exists.
func (r *Renderer) HasState() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state != nil
}

// Running reports whether the physics loop goroutine is alive.
func (r *Renderer) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Stop terminates the physics loop and discards all state.
func (r *Renderer) Stop() {
	r.mu.Lock()
	stop, done, running := r.stop, r.done, r.running
	r.running = false
	r.target = nil
	r.state = nil
	r.mu.Unlock()

	if running {
		close(stop)
		<-done
	}
}
