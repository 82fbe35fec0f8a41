package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the image file",
}

var cornersProperty = map[string]interface{}{
	"type": "array",
	"items": map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"x": map[string]interface{}{"type": "number"},
			"y": map[string]interface{}{"type": "number"},
		},
		"required": []string{"x", "y"},
	},
	"minItems":    4,
	"maxItems":    4,
	"description": "Optional document corners in image pixels, any order. If omitted the document is detected.",
}

var enhanceProperty = map[string]interface{}{
	"type":        "string",
	"enum":        []string{"none", "grayscale", "bw", "sharpen"},
	"description": "Post-processing applied to the rectified page. Defaults to the configured mode.",
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "frame_info",
			Description: "Load an image and report its size, format, file size, the processing raster size used for detection and the mean brightness.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "document_detect",
			Description: "Find the dominant four-sided document in a photo. Returns the corners in image pixels (top-left, top-right, bottom-right, bottom-left), a size classification (a4, card, receipt, unknown) and brightness. Optionally returns the photo with the outline drawn.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"annotate": map[string]interface{}{
						"type":        "boolean",
						"description": "Return a base64 PNG of the photo with the detected outline. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "document_rectify",
			Description: "Crop and perspective-correct a document into an upright rectangle. Returns the page as base64 or writes it to output_path. Falls back to the original photo with a warning when rectification is impossible.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":    pathProperty,
					"corners": cornersProperty,
					"enhance": enhanceProperty,
					"format": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"png", "jpeg"},
						"description": "Encoding of the returned page. Default png",
						"default":     "png",
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional file to write the page to instead of returning it inline. The extension selects the format.",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "document_ocr",
			Description: "Detect and rectify the document in a photo, then read its text with Tesseract. Returns the full text and word bounding boxes in rectified page coordinates.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":    pathProperty,
					"corners": cornersProperty,
					"enhance": enhanceProperty,
					"language": map[string]interface{}{
						"type":        "string",
						"description": "Tesseract language code (default 'eng')",
						"default":     "eng",
					},
					"min_confidence": map[string]interface{}{
						"type":        "number",
						"description": "Drop words below this confidence (0-1). Default 0",
						"default":     0,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "document_replay",
			Description: "Run a directory of camera frames through the live pipeline on a 30 Hz clock and report the timeline of tracking states, fallback requests and captures.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"dir": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to a directory of frames, replayed in file name order",
					},
					"repeat": map[string]interface{}{
						"type":        "integer",
						"description": "Offer every frame this many consecutive ticks. Use about 20 for still photos so they can lock. Default 1",
						"default":     1,
					},
					"store": map[string]interface{}{
						"type":        "boolean",
						"description": "Record captures in the configured capture store. Default false",
						"default":     false,
					},
				},
				"required": []string{"dir"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
