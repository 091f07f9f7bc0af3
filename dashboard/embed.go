// Package dashboard provides the embedded web UI assets for the training
// status board.
//
// This package uses Go's embed directive to include the dashboard HTML, CSS,
// and JavaScript at compile time. This enables single-binary deployment
// without external asset files.
//
// The embedded assets are served by the server package at the root path ("/").
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - status board and editor with inline CSS and JavaScript
//
// The page reads /api/definitions, /api/courses and /api/status/recent, saves
// through PUT /api/status and follows /api/sse. The literal {{.Title}} is
// replaced by the server with the escaped configured title.
//
//go:embed assets/*
var Assets embed.FS
