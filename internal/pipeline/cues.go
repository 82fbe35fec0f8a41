package pipeline

import (
	"sync"

	"github.com/rs/zerolog"
)

// Cue is an audible or haptic signal.
type Cue int

const (
	// CueLock plays when the document locks.
	CueLock Cue = iota
	// CueCapture plays when a capture is taken.
	CueCapture
)

func (c Cue) String() string {
	switch c {
	case CueLock:
		return "lock"
	case CueCapture:
		return "capture"
	default:
		return "unknown"
	}
}

// CuePlayer plays cues. Implementations must not block.
type CuePlayer interface {
	Play(Cue)
}

// NopPlayer discards every cue.
type NopPlayer struct{}

// Play implements CuePlayer.
func (NopPlayer) Play(Cue) {}

// LogPlayer writes cues to a logger.
type LogPlayer struct {
	Log zerolog.Logger
}

// Play implements CuePlayer.
func (p LogPlayer) Play(c Cue) {
	p.Log.Info().Stringer("cue", c).Msg("cue")
}

// Cues is a lazily initialized handle to a CuePlayer. The factory runs on
// the first Play; if it fails, cues are silently dropped from then on.
type Cues struct {
	once    sync.Once
	factory func() (CuePlayer, error)
	player  CuePlayer
	log     zerolog.Logger
}

// NewCues creates a handle around factory. A nil factory yields NopPlayer.
func NewCues(factory func() (CuePlayer, error), log zerolog.Logger) *Cues {
	return &Cues{factory: factory, log: log}
}

// Play initializes the player if needed and plays c.
func (c *Cues) Play(cue Cue) {
	c.once.Do(c.init)
	c.player.Play(cue)
}

func (c *Cues) init() {
	if c.factory == nil {
		c.player = NopPlayer{}
		return
	}
	p, err := c.factory()
	if err != nil || p == nil {
		c.log.Warn().Err(err).Msg("cue player unavailable, cues disabled")
		c.player = NopPlayer{}
		return
	}
	c.player = p
}
