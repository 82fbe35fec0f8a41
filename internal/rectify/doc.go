// Package rectify turns a captured frame and its document quad into a flat,
// deskewed image.
//
// The output size is the longer of each pair of opposite quad edges. The
// perspective warp is delegated to a Warper (imaging.Native by default). If
// the quad is degenerate or the warp fails, the unrectified frame is
// returned with a warning so a capture is never lost.
package rectify
