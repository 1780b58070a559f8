package server

import (
	"fmt"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/bigcalc/bigcalc/internal/constants"
)

const wasmContentType = "application/wasm"

func init() {
	// instantiateStreaming rejects any other content type.
	if err := mime.AddExtensionType(".wasm", wasmContentType); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", wasmContentType, err))
	}
}

// staticHandler serves a release directory. A request for a file that has a
// brotli sidecar gets the compressed bytes when the client accepts br.
type staticHandler struct {
	root  http.Dir
	files http.Handler
}

func newStaticHandler(dir string) *staticHandler {
	root := http.Dir(filepath.Clean(dir))
	return &staticHandler{root: root, files: http.FileServer(root)}
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + r.URL.Path)
	if strings.HasSuffix(name, ".wasm") {
		w.Header().Add("Vary", "Accept-Encoding")
		if acceptsBrotli(r) && h.serveCompressed(w, r, name) {
			return
		}
	}
	h.files.ServeHTTP(w, r)
}

func (h *staticHandler) serveCompressed(w http.ResponseWriter, r *http.Request, name string) bool {
	f, err := h.root.Open(name + constants.BrotliSuffix)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}

	w.Header().Set("Content-Type", mime.TypeByExtension(path.Ext(name)))
	w.Header().Set("Content-Encoding", "br")
	http.ServeContent(w, r, name, info.ModTime(), f)
	return true
}

func acceptsBrotli(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(coding), "br") {
			continue
		}
		return strings.ReplaceAll(strings.TrimSpace(params), " ", "") != "q=0"
	}
	return false
}
