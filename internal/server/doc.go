// Package server implements the MCP (Model Context Protocol) server that
// exposes docscan's document pipeline as tools.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - frame_info: Size, format, processing raster and brightness of a photo
//   - document_detect: Find the document outline in a photo
//   - document_rectify: Crop and perspective-correct the document
//   - document_ocr: Rectify, then read the text with Tesseract
//   - document_replay: Run a directory of frames through the live pipeline
//
// Corners are always reported in the pixel coordinates of the input image,
// in top-left, top-right, bottom-right, bottom-left order.
//
// # Image Caching
//
// Images are cached by path and reused across tool calls for the lifetime of
// the process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// A photo without a detectable document is not an error: document_detect
// reports found=false and document_rectify returns the original image with
// a warning.
//
// # Usage
//
//	srv := server.New(cfg, log)
//	if err := srv.Run(); err != nil {
//	    log.Fatal().Err(err).Msg("server failed")
//	}
package server
