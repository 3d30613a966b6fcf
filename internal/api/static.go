package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// StaticHandler serves the game client from a document root. It backs every
// path the API router does not claim.
type StaticHandler struct {
	root string
}

// NewStaticHandler builds a file responder over root.
func NewStaticHandler(root string) *StaticHandler {
	return &StaticHandler{root: root}
}

// mimeTypes maps lowercased extensions to the content types clients expect.
var mimeTypes = map[string]string{
	".htm":  "text/html",
	".html": "text/html",
	".css":  "text/css",
	".txt":  "text/plain",
	".js":   "text/javascript",
	".json": "application/json",
	".xml":  "application/xml",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpe":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".ico":  "image/vnd.microsoft.icon",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".svg":  "image/svg+xml",
	".svgz": "image/svg+xml",
	".mp3":  "audio/mpeg",
}

// mimeTypeFor resolves a file's content type by extension, case-insensitive.
func mimeTypeFor(path string) string {
	if mt, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mt
	}
	return "application/octet-stream"
}

func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeError(w, r, http.StatusMethodNotAllowed, "invalidMethod", "Invalid method")
		return
	}

	path := r.URL.Path
	if path == "/" {
		path = "/index.html"
	}
	// The check runs on the decoded path, so %2e%2e does not slip through.
	if strings.Contains(path, "..") {
		writeError(w, r, http.StatusBadRequest, "invalidPath", "Invalid path")
		return
	}

	full := filepath.Join(h.root, filepath.FromSlash(strings.TrimPrefix(path, "/")))
	info, err := os.Stat(full)
	if os.IsNotExist(err) {
		writeError(w, r, http.StatusNotFound, "fileNotFound", "File not found")
		return
	}
	if err != nil || info.IsDir() {
		writeError(w, r, http.StatusInternalServerError, "fileError", "Cannot open file")
		return
	}

	data, err := os.ReadFile(full)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "fileError", "File reading error")
		return
	}

	w.Header().Set("Content-Type", mimeTypeFor(full))
	w.Header().Set("Cache-Control", "max-age=3600")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(data)
	}
}
