package pipeline

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/docscan/internal/detection"
	"github.com/ironsheep/docscan/internal/stability"
)

// Feedback is the user-facing status for one published snapshot.
type Feedback struct {
	At             time.Time                `json:"at"`
	State          string                   `json:"state"`
	Status         string                   `json:"status"`
	Locked         bool                     `json:"locked"`
	Quality        float64                  `json:"quality"`
	Brightness     float64                  `json:"brightness"`
	Classification detection.Classification `json:"classification,omitempty"`
	Source         string                   `json:"source"`
	Diagnostic     string                   `json:"diagnostic,omitempty"`
}

// FeedbackSink receives feedback. Publish must not block.
type FeedbackSink interface {
	Publish(Feedback)
}

// FeedbackFunc adapts a function to FeedbackSink.
type FeedbackFunc func(Feedback)

// Publish implements FeedbackSink.
func (f FeedbackFunc) Publish(fb Feedback) { f(fb) }

// LogSink writes feedback to a logger at debug level.
type LogSink struct {
	Log zerolog.Logger
}

// Publish implements FeedbackSink.
func (s LogSink) Publish(fb Feedback) {
	s.Log.Debug().
		Str("state", fb.State).
		Str("status", fb.Status).
		Float64("quality", fb.Quality).
		Str("class", string(fb.Classification)).
		Msg("feedback")
}

// Status strings.
const (
	StatusSearching = "searching"
	StatusTooDark   = "too dark"
	StatusHold      = "hold steady"
	StatusLocked    = "locked"
	StatusCaptured  = "captured"
)

// StatusText maps a snapshot to the status line. Diagnostics take
// precedence; a dark frame while searching reports StatusTooDark.
func StatusText(snap stability.Snapshot, darkThreshold float64) string {
	if snap.Diagnostic != "" {
		return snap.Diagnostic
	}
	switch snap.State {
	case stability.Acquiring:
		return StatusHold
	case stability.Locked:
		return StatusLocked
	case stability.Cooldown:
		return StatusCaptured
	default:
		if snap.Brightness < darkThreshold {
			return StatusTooDark
		}
		return StatusSearching
	}
}

// NewFeedback builds feedback for a snapshot.
func NewFeedback(snap stability.Snapshot, darkThreshold float64) Feedback {
	return Feedback{
		At:             snap.At,
		State:          snap.State.String(),
		Status:         StatusText(snap, darkThreshold),
		Locked:         snap.Locked,
		Quality:        snap.Quality,
		Brightness:     snap.Brightness,
		Classification: snap.Classification,
		Source:         snap.Source.String(),
		Diagnostic:     snap.Diagnostic,
	}
}
