package api

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/vaahk/wxdecode/pkg/logger"
)

// StaticFileHandler serves the browser UI from disk without caching, so
// edits to www/ show up on reload.
type StaticFileHandler struct {
	root   fs.FS
	dir    string
	logger *logger.Logger
}

// NewStaticFileHandler creates a new static file handler
func NewStaticFileHandler(staticDir string, log *logger.Logger) *StaticFileHandler {
	return &StaticFileHandler{
		root:   os.DirFS(staticDir),
		dir:    staticDir,
		logger: log.Named("static-handler"),
	}
}

// ServeHTTP serves static files dynamically
func (h *StaticFileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" {
		name = "."
	}

	// fs.ValidPath rejects ".." elements
	if !fs.ValidPath(name) {
		h.logger.Warn("Rejected static path", logger.String("requested_path", r.URL.Path))
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	info, err := fs.Stat(h.root, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			h.logger.Debug("File not found", logger.String("path", name))
			http.NotFound(w, r)
			return
		}
		h.logger.Error("Failed to stat file", logger.Error(err), logger.String("path", name))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if info.IsDir() {
		name = path.Join(name, "index.html")
		if _, err := fs.Stat(h.root, name); err != nil {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	h.logger.Debug("Serving static file",
		logger.String("requested_path", r.URL.Path),
		logger.String("file", path.Join(h.dir, name)))

	http.ServeFileFS(w, r, h.root, name)
}
