package api

import (
	"errors"
	"image"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/go-chi/chi/v5"

	// Poster decoders. The exhibition assets are re-exported in several
	// formats depending on who uploaded them last.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

var posterNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+\.(jpg|jpeg|png|webp)$`)

// PosterHandler serves exhibition poster images with a decode check, so a
// missing or corrupt asset degrades to a warning instead of breaking the
// narrative page.
type PosterHandler struct {
	dir string
}

// NewPosterHandler creates a poster handler rooted at dir.
func NewPosterHandler(dir string) *PosterHandler {
	return &PosterHandler{dir: dir}
}

// RegisterRoutes registers the poster route.
func (h *PosterHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/poster/{name}", h.GetPoster)
}

// GetPoster validates and serves one poster image. Failures are reported as
// warnings with non-5xx statuses; the frontend shows a placeholder.
func (h *PosterHandler) GetPoster(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !posterNamePattern.MatchString(name) {
		JSON(w, http.StatusNotFound, map[string]string{"warning": "找不到這張海報"})
		return
	}

	path := filepath.Join(h.dir, name)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		JSON(w, http.StatusNotFound, map[string]string{"warning": "找不到這張海報"})
		return
	}
	if err != nil {
		slog.Warn("Poster open failed", "path", path, "error", err)
		JSON(w, http.StatusNotFound, map[string]string{"warning": "找不到這張海報"})
		return
	}

	_, _, decodeErr := image.DecodeConfig(f)
	if closeErr := f.Close(); closeErr != nil {
		slog.Debug("Failed to close poster file", "path", path, "error", closeErr)
	}
	if decodeErr != nil {
		slog.Warn("Poster failed decode check", "path", path, "error", decodeErr)
		JSON(w, http.StatusUnprocessableEntity, map[string]string{"warning": "海報檔案損壞或格式錯誤"})
		return
	}

	http.ServeFile(w, r, path)
}
