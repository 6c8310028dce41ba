// Package server provides the HTTP server for the buildwatch dashboard.
//
// Routes:
//
//   - GET /: the embedded dashboard page
//   - GET /api/bindings: current state of every bound element as JSON
//   - GET /api/sse: Server-Sent Events stream of element events
//   - GET /api/theme: the active theme
//   - POST /api/theme/toggle: switch between light and dark
//   - GET /health: liveness check
//
// The server shuts down gracefully when its context is cancelled.
package server
