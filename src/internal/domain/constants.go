package domain

// Constants
const (
	DefaultPort = 8000
	LogPrefix   = "[MufiZ Server] "
	BuildPrefix = "[MufiZ Build] "

	LiveReloadPath       = "/__livereload"
	LiveReloadScriptPath = "/__livereload.js"
)

// ResponseHeaders are set on every response, error pages included.
var ResponseHeaders = [][2]string{
	{"Cache-Control", "no-cache, no-store, must-revalidate"},
	{"Pragma", "no-cache"},
	{"Expires", "0"},
	{"Access-Control-Allow-Origin", "*"},
	{"Access-Control-Allow-Methods", "GET, POST, OPTIONS"},
	{"Access-Control-Allow-Headers", "*"},
}

// ContentTypes overrides whatever the file server sniffed for these suffixes.
var ContentTypes = map[string]string{
	".js":   "application/javascript; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".html": "text/html; charset=utf-8",
}
