package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/snapmatch/snapmatch/internal/apperr"
)

// Downloader fetches all files of a cloud share into a local directory.
type Downloader interface {
	DownloadShare(ctx context.Context, link, dir string) (int, error)
}

// GalleryHandler manages the reference gallery the matcher runs against.
type GalleryHandler struct {
	galleryDir string
	downloader Downloader
}

// NewGalleryHandler creates a new gallery handler.
func NewGalleryHandler(galleryDir string, downloader Downloader) *GalleryHandler {
	return &GalleryHandler{galleryDir: galleryDir, downloader: downloader}
}

type downloadRequest struct {
	Link string `json:"link"`
}

// Download handles POST /download_drive_images: fill the gallery from a
// cloud share link. Bad links are rejected before any transfer.
func (h *GalleryHandler) Download(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondOpError(w, apperr.New(apperr.Validation, errInvalidRequestBody))
		return
	}
	if req.Link == "" {
		respondOpError(w, apperr.New(apperr.Validation, "no share link provided"))
		return
	}

	n, err := h.downloader.DownloadShare(r.Context(), req.Link, h.galleryDir)
	if err != nil {
		respondOpError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, statusResponse{
		Status:  "ok",
		Message: fmt.Sprintf("Downloaded %d images.", n),
	})
}

// Clear handles POST /clear_gallery: empty the gallery directory.
func (h *GalleryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := ClearDir(h.galleryDir); err != nil {
		respondOpError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// ClearDir deletes and recreates a directory.
func ClearDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clearing directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("recreating directory: %w", err)
	}
	return nil
}

// CountFiles returns the number of regular files in dir; a missing dir
// counts as zero.
func CountFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			n++
		}
	}
	return n
}
