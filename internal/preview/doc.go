// Package preview streams the live overlay and status line to browsers over
// websocket.
//
// A Hub fans messages out to connected viewers. Surface adapts the hub to
// overlay.Surface so the renderer can draw into it, and Sink adapts it to
// pipeline.FeedbackSink. Server serves the websocket endpoint together with
// a small canvas page that renders the messages.
//
// Messages are JSON objects with a "type" field:
//
//	{"type":"polygon","style":"locked","stroke":"#27ae60","fill":"#a8d8b5","opacity":0.8,"points":[{"x":1,"y":2},...],"width":1280,"height":720}
//	{"type":"feedback","feedback":{"state":"stable","status":"hold steady",...}}
//	{"type":"frame","image":"<base64>","mime_type":"image/jpeg","width":1280,"height":720}
package preview
