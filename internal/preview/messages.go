package preview

import (
	"encoding/json"
	"image"
	"sync"

	stdimaging "github.com/disintegration/imaging"

	"github.com/ironsheep/docscan/internal/geometry"
	"github.com/ironsheep/docscan/internal/imaging"
	"github.com/ironsheep/docscan/internal/overlay"
	"github.com/ironsheep/docscan/internal/pipeline"
)

// Message types.
const (
	TypePolygon  = "polygon"
	TypeFeedback = "feedback"
	TypeFrame    = "frame"
)

// PolygonMessage is one overlay draw.
type PolygonMessage struct {
	Type    string           `json:"type"`
	Style   string           `json:"style"`
	Stroke  string           `json:"stroke"`
	Fill    string           `json:"fill"`
	Opacity float64          `json:"opacity"`
	Points  []geometry.Point `json:"points"`
	Width   int              `json:"width"`
	Height  int              `json:"height"`
}

// FeedbackMessage carries one status update.
type FeedbackMessage struct {
	Type     string            `json:"type"`
	Feedback pipeline.Feedback `json:"feedback"`
}

// FrameMessage carries a downscaled camera frame for the page background.
type FrameMessage struct {
	Type     string `json:"type"`
	Image    string `json:"image"`
	MimeType string `json:"mime_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Surface draws overlay polygons into a hub. It implements overlay.Surface.
type Surface struct {
	hub    *Hub
	width  int
	height int

	mu   sync.Mutex
	last *PolygonMessage
}

var _ overlay.Surface = (*Surface)(nil)

// NewSurface creates a width×height display surface backed by hub.
func NewSurface(hub *Hub, width, height int) *Surface {
	return &Surface{hub: hub, width: width, height: height}
}

// Size implements overlay.Surface.
func (s *Surface) Size() (int, int) { return s.width, s.height }

// SetPolygon implements overlay.Surface.
func (s *Surface) SetPolygon(points []geometry.Point, style overlay.Style, opacity float64) {
	msg := &PolygonMessage{
		Type:    TypePolygon,
		Style:   style.Name,
		Stroke:  style.Stroke.Hex(),
		Fill:    style.Fill.Hex(),
		Opacity: opacity,
		Points:  append([]geometry.Point(nil), points...),
		Width:   s.width,
		Height:  s.height,
	}
	s.mu.Lock()
	s.last = msg
	s.mu.Unlock()

	if data, err := json.Marshal(msg); err == nil {
		s.hub.Broadcast(data)
	}
}

// Last returns the most recent draw, or nil.
func (s *Surface) Last() *PolygonMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Sink publishes feedback to a hub. It implements pipeline.FeedbackSink.
type Sink struct {
	hub *Hub
}

var _ pipeline.FeedbackSink = Sink{}

// NewSink creates a feedback sink backed by hub.
func NewSink(hub *Hub) Sink { return Sink{hub: hub} }

// Publish implements pipeline.FeedbackSink.
func (s Sink) Publish(fb pipeline.Feedback) {
	if data, err := json.Marshal(FeedbackMessage{Type: TypeFeedback, Feedback: fb}); err == nil {
		s.hub.Broadcast(data)
	}
}

// PublishFrame sends img, fitted into width×height, as a JPEG frame message.
func PublishFrame(hub *Hub, img image.Image, width, height int) error {
	fitted := stdimaging.Fit(img, width, height, stdimaging.Box)
	enc, err := imaging.Encode(fitted, stdimaging.JPEG)
	if err != nil {
		return err
	}
	data, err := json.Marshal(FrameMessage{
		Type:     TypeFrame,
		Image:    enc.ImageBase64,
		MimeType: enc.MimeType,
		Width:    enc.Width,
		Height:   enc.Height,
	})
	if err != nil {
		return err
	}
	hub.Broadcast(data)
	return nil
}
