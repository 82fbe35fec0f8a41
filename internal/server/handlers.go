package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	stdimaging "github.com/disintegration/imaging"

	"github.com/ironsheep/docscan/internal/app"
	"github.com/ironsheep/docscan/internal/detection"
	"github.com/ironsheep/docscan/internal/geometry"
	"github.com/ironsheep/docscan/internal/imaging"
	"github.com/ironsheep/docscan/internal/ocr"
	"github.com/ironsheep/docscan/internal/overlay"
	"github.com/ironsheep/docscan/internal/rectify"
	"github.com/ironsheep/docscan/internal/replay"
)

// replayTimeout bounds a document_replay call.
const replayTimeout = 5 * time.Minute

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "document_detect").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.Warn().Err(err).Str("tool", params.Name).Msg("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "frame_info":
		return s.handleFrameInfo(args)
	case "document_detect":
		return s.handleDocumentDetect(args)
	case "document_rectify":
		return s.handleDocumentRectify(args)
	case "document_ocr":
		return s.handleDocumentOCR(args)
	case "document_replay":
		return s.handleDocumentReplay(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return fmt.Errorf("missing arguments")
	}
	return json.Unmarshal(args, v)
}

// === Frame information ===

type pathArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleFrameInfo(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadFrameInfo(s.cache, a.Path, s.cfg.Processing.MaxSide)
}

// === Detection ===

type detectArgs struct {
	Path     string `json:"path"`
	Annotate bool   `json:"annotate"`
}

// DetectResult is the document_detect response.
type DetectResult struct {
	Found          bool                     `json:"found"`
	Corners        *geometry.Quad           `json:"corners,omitempty"`
	Classification detection.Classification `json:"classification"`
	AreaRatio      float64                  `json:"area_ratio"`
	Brightness     float64                  `json:"brightness"`
	Width          int                      `json:"width"`
	Height         int                      `json:"height"`
	OutputWidth    int                      `json:"output_width,omitempty"`
	OutputHeight   int                      `json:"output_height,omitempty"`
	Diagnostic     string                   `json:"diagnostic,omitempty"`
	Annotated      *imaging.EncodedImage    `json:"annotated,omitempty"`
}

// detect runs the frame processor once and maps the quad back to img pixels.
func (s *Server) detect(img image.Image) (detection.Result, *geometry.Quad) {
	p := detection.NewProcessor(s.cfg.ProcessorOptions(), nil, s.log)
	defer p.Release()

	res, _ := p.Process(img)
	if !res.HasQuad() {
		return res, nil
	}
	b := img.Bounds()
	q := rectify.ScaleToCapture(*res.Quad, res.Width, res.Height, b.Dx(), b.Dy())
	return res, &q
}

func (s *Server) handleDocumentDetect(args json.RawMessage) (interface{}, error) {
	var a detectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	res, quad := s.detect(img)
	b := img.Bounds()
	out := &DetectResult{
		Found:          quad != nil,
		Corners:        quad,
		Classification: res.Classification,
		AreaRatio:      res.AreaRatio,
		Brightness:     res.Brightness,
		Width:          b.Dx(),
		Height:         b.Dy(),
		Diagnostic:     res.Diagnostic,
	}
	if quad == nil {
		return out, nil
	}
	out.OutputWidth, out.OutputHeight = rectify.OutputSize(*quad)

	if a.Annotate {
		thickness := b.Dx() / 250
		if thickness < 2 {
			thickness = 2
		}
		drawn := imaging.DrawQuad(img, *quad, overlay.LockedStyle.Stroke, thickness)
		if out.Annotated, err = imaging.Encode(drawn, stdimaging.PNG); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// === Rectification ===

type rectifyArgs struct {
	Path       string           `json:"path"`
	Corners    []geometry.Point `json:"corners"`
	Enhance    string           `json:"enhance"`
	Format     string           `json:"format"`
	OutputPath string           `json:"output_path"`
}

// RectifyResult is the document_rectify response.
type RectifyResult struct {
	Rectified  bool                  `json:"rectified"`
	Warning    string                `json:"warning,omitempty"`
	Corners    *geometry.Quad        `json:"corners,omitempty"`
	Width      int                   `json:"width"`
	Height     int                   `json:"height"`
	OutputPath string                `json:"output_path,omitempty"`
	Image      *imaging.EncodedImage `json:"image,omitempty"`
}

// page detects (or takes) the document corners and rectifies img.
func (s *Server) page(img image.Image, corners []geometry.Point, enhance string) (rectify.Output, *geometry.Quad, error) {
	opts := s.cfg.RectifyOptions()
	if enhance != "" {
		mode, err := rectify.ParseMode(enhance)
		if err != nil {
			return rectify.Output{}, nil, err
		}
		opts.Enhance = mode
	}

	var quad *geometry.Quad
	switch len(corners) {
	case 0:
		_, quad = s.detect(img)
	case 4:
		q := geometry.OrderCorners([4]geometry.Point{corners[0], corners[1], corners[2], corners[3]})
		quad = &q
	default:
		return rectify.Output{}, nil, fmt.Errorf("corners must have exactly 4 points, got %d", len(corners))
	}

	r := rectify.NewRectifier(opts, nil, s.log)
	if quad == nil {
		out := rectify.Output{
			Image:   rectify.Enhance(img, opts.Enhance, opts.BWLevel),
			Warning: "no document found; returning the original image",
		}
		return out, nil, nil
	}
	return r.Rectify(img, *quad), quad, nil
}

func (s *Server) handleDocumentRectify(args json.RawMessage) (interface{}, error) {
	var a rectifyArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	out, quad, err := s.page(img, a.Corners, a.Enhance)
	if err != nil {
		return nil, err
	}
	b := out.Image.Bounds()
	res := &RectifyResult{
		Rectified: out.Rectified,
		Warning:   out.Warning,
		Corners:   quad,
		Width:     b.Dx(),
		Height:    b.Dy(),
	}

	if a.OutputPath != "" {
		if err := os.MkdirAll(filepath.Dir(a.OutputPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output dir: %w", err)
		}
		if err := stdimaging.Save(out.Image, a.OutputPath, stdimaging.JPEGQuality(s.cfg.Capture.Quality)); err != nil {
			return nil, fmt.Errorf("failed to save page: %w", err)
		}
		res.OutputPath = a.OutputPath
		return res, nil
	}

	format := stdimaging.PNG
	if f := strings.ToLower(a.Format); f == "jpeg" || f == "jpg" {
		format = stdimaging.JPEG
	}
	if res.Image, err = imaging.Encode(out.Image, format); err != nil {
		return nil, err
	}
	return res, nil
}

// === OCR ===

type ocrArgs struct {
	Path          string           `json:"path"`
	Corners       []geometry.Point `json:"corners"`
	Enhance       string           `json:"enhance"`
	Language      string           `json:"language"`
	MinConfidence float64          `json:"min_confidence"`
}

// OCRResult is the document_ocr response.
type OCRResult struct {
	*ocr.Result
	Rectified bool   `json:"rectified"`
	Warning   string `json:"warning,omitempty"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

func (s *Server) handleDocumentOCR(args json.RawMessage) (interface{}, error) {
	var a ocrArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Language == "" {
		a.Language = "eng"
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	out, _, err := s.page(img, a.Corners, a.Enhance)
	if err != nil {
		return nil, err
	}
	text, err := ocr.ExtractText(out.Image, ocr.Options{Language: a.Language, MinConfidence: a.MinConfidence})
	if err != nil {
		return nil, err
	}
	b := out.Image.Bounds()
	return &OCRResult{
		Result:    text,
		Rectified: out.Rectified,
		Warning:   out.Warning,
		Width:     b.Dx(),
		Height:    b.Dy(),
	}, nil
}

// === Replay ===

type replayArgs struct {
	Dir    string `json:"dir"`
	Repeat int    `json:"repeat"`
	Store  bool   `json:"store"`
}

func (s *Server) handleDocumentReplay(args json.RawMessage) (interface{}, error) {
	var a replayArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	paths, err := replay.ListFrames(a.Dir)
	if err != nil {
		return nil, err
	}

	cfg := *s.cfg
	cfg.Store.Enabled = a.Store && s.cfg.Store.Enabled
	// Replay time is synthetic; the overlay has no display here.
	pipe, err := app.New(&cfg, app.Extras{}, s.log)
	if err != nil {
		return nil, err
	}
	defer pipe.Close()

	opts := replay.DefaultOptions()
	opts.Repeat = a.Repeat

	ctx, cancel := context.WithTimeout(context.Background(), replayTimeout)
	defer cancel()
	return replay.NewRunner(pipe.Controller, opts, s.log).Run(ctx, paths, time.Unix(0, 0).UTC())
}
