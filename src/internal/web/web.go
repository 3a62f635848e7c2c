package web

import "embed"

// FS holds the client-side helpers served next to the documentation.
//
//go:embed livereload.js
var FS embed.FS
