// Package dashboard provides the embedded web UI for buildwatch.
//
// The page loads the current bindings over Server-Sent Events, fades each
// element while its status class is swapped, and toggles the light/dark
// theme through the server's theme API. It is served by the server package
// at "/".
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Dashboard page with inline CSS and JavaScript
//
// index.html carries {{.Title}} and {{.BodyClass}} placeholders that the
// server fills in per request.
//
//go:embed assets/*
var Assets embed.FS
