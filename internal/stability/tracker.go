package stability

import (
	"time"

	"github.com/ironsheep/docscan/internal/detection"
	"github.com/ironsheep/docscan/internal/geometry"
)

// Options tunes a Tracker.
type Options struct {
	// Alpha is the EWMA weight of the newest quad (1 disables smoothing).
	Alpha float64

	// EnterFactor times the canvas diagonal is the displacement below which
	// a frame counts as stable.
	EnterFactor float64

	// ExitFactor multiplies the enter threshold while Locked.
	ExitFactor float64

	// LockAfter is the continuous stability required to lock.
	LockAfter time.Duration

	// Cooldown is how long locking stays suppressed after a capture.
	Cooldown time.Duration

	// SnapshotInterval throttles UI snapshots.
	SnapshotInterval time.Duration
}

// DefaultOptions returns the standard tracker tuning.
func DefaultOptions() Options {
	return Options{
		Alpha:            0.5,
		EnterFactor:      0.003,
		ExitFactor:       1.5,
		LockAfter:        400 * time.Millisecond,
		Cooldown:         900 * time.Millisecond,
		SnapshotInterval: time.Second / 30,
	}
}

// Snapshot is the tracker's view of one frame for UI consumers.
type Snapshot struct {
	At             time.Time
	State          State
	Locked         bool
	Quad           *geometry.Quad // smoothed, processing space
	Width          int
	Height         int
	Brightness     float64
	Quality        float64
	Classification detection.Classification
	Source         detection.Source
	Diagnostic     string
}

// Tracker is the stability state machine. It is not safe for concurrent
// use; feed it from one goroutine in frame order.
type Tracker struct {
	opts Options

	state         State
	smoothed      *geometry.Quad
	stableSince   time.Time
	cooldownUntil time.Time

	lastLocked bool
	lastEmit   time.Time
	last       Snapshot
}

// NewTracker creates a Tracker in the Searching state.
func NewTracker(opts Options) *Tracker {
	d := DefaultOptions()
	if opts.Alpha <= 0 || opts.Alpha > 1 {
		opts.Alpha = d.Alpha
	}
	if opts.EnterFactor <= 0 {
		opts.EnterFactor = d.EnterFactor
	}
	if opts.ExitFactor < 1 {
		opts.ExitFactor = d.ExitFactor
	}
	return &Tracker{opts: opts, state: Searching}
}

// State returns the current state.
func (t *Tracker) State() State { return t.state }

// Locked reports whether the tracker is Locked.
func (t *Tracker) Locked() bool { return t.state == Locked }

// Last returns the snapshot built by the most recent Update.
func (t *Tracker) Last() Snapshot { return t.last }

// Update feeds one detection result. It returns the resulting snapshot and
// whether it should be published: snapshots are throttled to the snapshot
// interval except on the frame where Locked is entered or left.
func (t *Tracker) Update(now time.Time, res detection.Result) (Snapshot, bool) {
	if t.state == Cooldown && !now.Before(t.cooldownUntil) {
		t.state = Searching
		t.stableSince = time.Time{}
	}

	if res.HasQuad() {
		t.track(now, *res.Quad, res.Width, res.Height)
	} else {
		t.smoothed = nil
		t.stableSince = time.Time{}
		if t.state != Cooldown {
			t.state = Searching
		}
	}

	snap := Snapshot{
		At:             now,
		State:          t.state,
		Locked:         t.state == Locked,
		Width:          res.Width,
		Height:         res.Height,
		Brightness:     res.Brightness,
		Classification: res.Classification,
		Source:         res.Source,
		Diagnostic:     res.Diagnostic,
	}
	if t.smoothed != nil {
		q := *t.smoothed
		snap.Quad = &q
		snap.Quality = QualityScore(res.AreaRatio, res.Brightness)
	}
	t.last = snap

	emit := snap.Locked != t.lastLocked ||
		t.lastEmit.IsZero() ||
		now.Sub(t.lastEmit) >= t.opts.SnapshotInterval
	t.lastLocked = snap.Locked
	if emit {
		t.lastEmit = now
	}
	return snap, emit
}

// track advances smoothing and the lock window for a frame with a quad.
func (t *Tracker) track(now time.Time, raw geometry.Quad, w, h int) {
	if t.smoothed == nil {
		q := raw
		t.smoothed = &q
		if t.state != Cooldown {
			t.state = Acquiring
			t.stableSince = now
		}
		return
	}

	prev := *t.smoothed
	next := prev.Lerp(raw, t.opts.Alpha)
	t.smoothed = &next

	if t.state == Cooldown {
		return
	}

	threshold := t.opts.EnterFactor * geometry.Diagonal(w, h)
	if t.state == Locked {
		threshold *= t.opts.ExitFactor
	}

	if geometry.MeanDisplacement(prev, next) > threshold {
		t.state = Searching
		t.stableSince = time.Time{}
		return
	}

	if t.stableSince.IsZero() {
		t.stableSince = now
	}
	if now.Sub(t.stableSince) >= t.opts.LockAfter {
		t.state = Locked
	} else if t.state != Locked {
		t.state = Acquiring
	}
}

// TriggerCooldown enters Cooldown after a capture. Locking stays suppressed
// until the cooldown expires, after which a fresh stability window starts.
func (t *Tracker) TriggerCooldown(now time.Time) {
	t.state = Cooldown
	t.cooldownUntil = now.Add(t.opts.Cooldown)
	t.stableSince = time.Time{}
}

// InCooldown reports whether a capture cooldown is active at now.
func (t *Tracker) InCooldown(now time.Time) bool {
	return t.state == Cooldown && now.Before(t.cooldownUntil)
}

// Reset returns the tracker to Searching and clears all history.
func (t *Tracker) Reset() {
	*t = Tracker{opts: t.opts, state: Searching}
}
