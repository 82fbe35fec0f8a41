package fallback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/docscan/internal/geometry"
)

// HTTPDetector posts a JPEG frame to a remote detection endpoint.
//
// The endpoint answers with
//
//	{"found": true, "corners": [{"x": 0.1, "y": 0.1}, ...], "status": "ok"}
//
// where corners are four points normalized to [0,1] of the posted frame.
type HTTPDetector struct {
	url        string
	apiKey     string
	quality    int
	httpClient *http.Client
}

type corner struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type detectResponse struct {
	Found   bool     `json:"found"`
	Corners []corner `json:"corners"`
	Status  string   `json:"status"`
}

// NewHTTPDetector creates a detector for url. apiKey is sent as a bearer
// token when non-empty.
func NewHTTPDetector(url, apiKey string) *HTTPDetector {
	return &HTTPDetector{
		url:        url,
		apiKey:     apiKey,
		quality:    80,
		httpClient: &http.Client{},
	}
}

// Detect implements Detector. The request honors ctx cancellation.
func (d *HTTPDetector) Detect(ctx context.Context, frame image.Image) (Response, error) {
	var body bytes.Buffer
	if err := imaging.Encode(&body, frame, imaging.JPEG, imaging.JPEGQuality(d.quality)); err != nil {
		return Response{}, fmt.Errorf("failed to encode frame: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, &body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("Accept", "application/json")
	if d.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Response{}, fmt.Errorf("detector returned status %d: %s", resp.StatusCode, string(msg))
	}

	var dr detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return Response{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if !dr.Found {
		return Response{Status: dr.Status}, nil
	}
	if len(dr.Corners) != 4 {
		return Response{}, fmt.Errorf("detector returned %d corners, want 4", len(dr.Corners))
	}

	out := Response{Found: true, Status: dr.Status}
	for i, c := range dr.Corners {
		if c.X < 0 || c.X > 1 || c.Y < 0 || c.Y > 1 {
			return Response{}, fmt.Errorf("corner %d (%g, %g) outside [0,1]", i, c.X, c.Y)
		}
		out.Corners[i] = geometry.Point{X: c.X, Y: c.Y}
	}
	return out, nil
}
