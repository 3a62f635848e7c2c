package api

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/Mufi-Lang/mufi-lang.org/src/internal/domain"
)

// applyResponseHeaders sets the fixed cache and CORS headers, then the
// Content-Type override for the path's extension, if it has one.
func applyResponseHeaders(h http.Header, path string) {
	for _, kv := range domain.ResponseHeaders {
		h.Set(kv[0], kv[1])
	}
	for ext, ctype := range domain.ContentTypes {
		if strings.HasSuffix(path, ext) {
			h.Set("Content-Type", ctype)
			break
		}
	}
}

// headerWriter applies the response headers at the last moment before they
// are sent, so that anything the wrapped handler set (or removed, as
// http.FileServer does on error paths) is overridden.
type headerWriter struct {
	http.ResponseWriter
	path        string
	wroteHeader bool
}

func (w *headerWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		applyResponseHeaders(w.Header(), w.path)
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *headerWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *headerWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("%T does not support hijacking", w.ResponseWriter)
	}
	conn, brw, err := hj.Hijack()
	if err == nil {
		// The upgrade response is written by the caller with its own headers.
		w.wroteHeader = true
	}
	return conn, brw, err
}

func (w *headerWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func withHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hw := &headerWriter{ResponseWriter: w, path: r.URL.Path}
		next.ServeHTTP(hw, r)
		// Handlers that return without writing still owe the client headers.
		if !hw.wroteHeader {
			hw.WriteHeader(http.StatusOK)
		}
	})
}

// staticFiles serves root with http.FileServer. Only GET and HEAD are
// supported; everything else is answered with 501.
func staticFiles(root string) http.Handler {
	fs := http.FileServer(http.Dir(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, fmt.Sprintf("Unsupported method (%q)", r.Method), http.StatusNotImplemented)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
