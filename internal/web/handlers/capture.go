package handlers

import (
	"log"
	"net/http"
	"sync"

	"github.com/snapmatch/snapmatch/internal/matcher"
	"github.com/snapmatch/snapmatch/internal/store"
	"github.com/snapmatch/snapmatch/internal/web/middleware"
)

// CaptureHandler orchestrates a capture: clear the session's result set,
// reset its email state, run the matcher, and report one of three outcomes
// (error / no_face / ok).
type CaptureHandler struct {
	matcher  matcher.Matcher
	images   *matcher.Store
	captures store.CaptureStore
	inFlight sync.Map // capture-session ID -> struct{}
}

// NewCaptureHandler creates a new capture handler.
func NewCaptureHandler(m matcher.Matcher, images *matcher.Store, captures store.CaptureStore) *CaptureHandler {
	return &CaptureHandler{
		matcher:  m,
		images:   images,
		captures: captures,
	}
}

// Capture handles POST /capture. The request blocks until the matcher
// finishes; /status reports processing in the meantime.
func (h *CaptureHandler) Capture(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := middleware.CaptureIDFromContext(ctx)
	if id == "" {
		respondError(w, http.StatusInternalServerError, "no capture session")
		return
	}

	if _, busy := h.inFlight.LoadOrStore(id, struct{}{}); busy {
		respondJSON(w, http.StatusConflict, statusResponse{
			Status:  "error",
			Message: "A capture is already in progress.",
		})
		return
	}
	defer h.inFlight.Delete(id)

	// Fresh result set and a cleared sent flag before the matcher runs.
	if err := h.images.Reset(id); err != nil {
		respondOpError(w, err)
		return
	}
	if err := h.captures.Reset(ctx, id); err != nil {
		respondOpError(w, err)
		return
	}

	if err := h.matcher.Match(ctx, h.images.SessionDir(id)); err != nil {
		log.Printf("capture %s: %v", sanitizeForLog(id), err)
		respondJSON(w, httpStatusFor(err), statusResponse{
			Status:  "error",
			Message: "Face matching failed. Try again.",
		})
		return
	}

	files, err := h.images.List(id)
	if err != nil {
		respondOpError(w, err)
		return
	}
	if len(files) == 0 {
		respondJSON(w, http.StatusOK, statusResponse{Status: "no_face"})
		return
	}

	respondJSON(w, http.StatusOK, statusResponse{Status: "ok", RedirectURL: "/results"})
}

// Status handles GET /status: processing while this session's capture is in
// flight, ready otherwise.
func (h *CaptureHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := middleware.CaptureIDFromContext(r.Context())
	if _, busy := h.inFlight.Load(id); busy {
		respondJSON(w, http.StatusOK, statusResponse{Status: "processing"})
		return
	}
	respondJSON(w, http.StatusOK, statusResponse{Status: "ready"})
}

// Reset handles POST /reset: the session returns to idle. The matched
// directory is recreated empty and the capture record disappears.
func (h *CaptureHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := middleware.CaptureIDFromContext(ctx)
	if id == "" {
		respondError(w, http.StatusInternalServerError, "no capture session")
		return
	}

	if err := h.images.Reset(id); err != nil {
		respondOpError(w, err)
		return
	}
	if err := h.captures.Delete(ctx, id); err != nil {
		respondOpError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}
