package handlers

import (
	"image"
	"image/jpeg"
	_ "image/png"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/image/draw"

	"github.com/snapmatch/snapmatch/internal/constants"
	"github.com/snapmatch/snapmatch/internal/matcher"
	"github.com/snapmatch/snapmatch/internal/web/middleware"
)

// ResultsHandler serves the matched-image result set of a capture session.
type ResultsHandler struct {
	images *matcher.Store
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(images *matcher.Store) *ResultsHandler {
	return &ResultsHandler{images: images}
}

// List handles GET /results: the names of the session's matched files.
func (h *ResultsHandler) List(w http.ResponseWriter, r *http.Request) {
	id := middleware.CaptureIDFromContext(r.Context())
	files, err := h.images.List(id)
	if err != nil {
		respondOpError(w, err)
		return
	}
	if files == nil {
		files = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"images": files,
	})
}

// ServeImage handles GET /static/matched/{filename}: raw image bytes,
// confined to the session's matched directory.
func (h *ResultsHandler) ServeImage(w http.ResponseWriter, r *http.Request) {
	id := middleware.CaptureIDFromContext(r.Context())
	name := chi.URLParam(r, "filename")

	f, err := h.images.Open(id, name)
	if err != nil {
		respondOpError(w, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read file")
		return
	}
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// Thumbnail handles GET /static/matched/{filename}/thumb: the image scaled
// down to fit ThumbMaxSize, re-encoded as JPEG.
func (h *ResultsHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	id := middleware.CaptureIDFromContext(r.Context())
	name := chi.URLParam(r, "filename")

	f, err := h.images.Open(id, name)
	if err != nil {
		respondOpError(w, err)
		return
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		respondError(w, http.StatusUnsupportedMediaType, "not a decodable image")
		return
	}

	thumb := scaleDown(src, constants.ThumbMaxSize)

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=300")
	// Response has already started; an encode error can only be logged.
	if err := jpeg.Encode(w, thumb, &jpeg.Options{Quality: 80}); err != nil {
		log.Printf("thumbnail encode for %s: %v", sanitizeForLog(name), err)
	}
}

// scaleDown resizes src so its longer side is at most maxSize, preserving
// aspect ratio. Images already small enough are returned as-is.
func scaleDown(src image.Image, maxSize int) image.Image {
	b := src.Bounds()
	width, height := b.Dx(), b.Dy()
	if width <= maxSize && height <= maxSize {
		return src
	}

	if width > height {
		height = height * maxSize / width
		width = maxSize
	} else {
		width = width * maxSize / height
		height = maxSize
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
