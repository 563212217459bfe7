package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net"
	netmail "net/mail"
	"net/http"

	"github.com/snapmatch/snapmatch/internal/apperr"
	"github.com/snapmatch/snapmatch/internal/mail"
	"github.com/snapmatch/snapmatch/internal/matcher"
	"github.com/snapmatch/snapmatch/internal/store"
	"github.com/snapmatch/snapmatch/internal/web/middleware"
)

// Uploader shares a set of local files through cloud storage and returns the
// public link.
type Uploader interface {
	ShareFiles(ctx context.Context, folderName string, paths []string) (string, error)
}

// shareFolderName is the display name of the cloud folder holding one
// session's matched images.
const shareFolderName = "Matched_Faces"

// EmailHandler coordinates the store-email / send-email flow: validate,
// upload the selected matches to cloud storage, send exactly one mail per
// capture session, and record the visitor.
type EmailHandler struct {
	captures   store.CaptureStore
	userLogs   store.UserLogStore
	images     *matcher.Store
	dispatcher mail.Dispatcher
	uploader   Uploader
}

// NewEmailHandler creates a new email handler.
func NewEmailHandler(captures store.CaptureStore, userLogs store.UserLogStore,
	images *matcher.Store, dispatcher mail.Dispatcher, uploader Uploader) *EmailHandler {
	return &EmailHandler{
		captures:   captures,
		userLogs:   userLogs,
		images:     images,
		dispatcher: dispatcher,
		uploader:   uploader,
	}
}

type storeEmailRequest struct {
	Email string `json:"email"`
}

// StoreEmail handles POST /store_email: persist the pending recipient for
// this capture session and append a visitor log entry.
func (h *EmailHandler) StoreEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := middleware.CaptureIDFromContext(ctx)

	var req storeEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondOpError(w, apperr.New(apperr.Validation, errInvalidRequestBody))
		return
	}
	if _, err := netmail.ParseAddress(req.Email); err != nil {
		respondOpError(w, apperr.New(apperr.Validation, "invalid email address"))
		return
	}

	if err := h.captures.SetRecipient(ctx, id, req.Email); err != nil {
		respondOpError(w, err)
		return
	}

	// Visitor log failures must not block the user flow.
	if err := h.userLogs.Insert(ctx, req.Email, clientIP(r)); err != nil {
		log.Printf("user log insert: %v", err)
	}

	respondJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

type sendEmailRequest struct {
	Email  string   `json:"email"`
	Images []string `json:"images"`
}

// SendEmail handles POST /send_email. All validation happens before any
// external call. If the session's mail was already sent this is a no-op
// success: at most one attempt is ever recorded per session, enforced by the
// capture record's sent flag rather than by the transport.
func (h *EmailHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := middleware.CaptureIDFromContext(ctx)

	var req sendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondOpError(w, apperr.New(apperr.Validation, errInvalidRequestBody))
		return
	}

	capture, err := h.captures.Get(ctx, id)
	if err != nil {
		respondOpError(w, err)
		return
	}
	if capture != nil && capture.EmailSent {
		respondJSON(w, http.StatusOK, statusResponse{Status: "ok"})
		return
	}

	recipient := req.Email
	if recipient == "" && capture != nil {
		recipient = capture.Recipient
	}
	if recipient == "" {
		respondOpError(w, apperr.New(apperr.Validation, "No recipient email provided."))
		return
	}
	if len(req.Images) == 0 {
		respondOpError(w, apperr.New(apperr.Validation, "No images selected."))
		return
	}

	// Resolve every requested image inside the session directory first.
	paths := make([]string, 0, len(req.Images))
	for _, name := range req.Images {
		path, err := h.images.Path(id, name)
		if err != nil {
			respondOpError(w, err)
			return
		}
		paths = append(paths, path)
	}

	link, err := h.uploader.ShareFiles(ctx, shareFolderName, paths)
	if err != nil {
		respondOpError(w, err)
		return
	}

	// A mail failure after a successful upload leaves the share behind;
	// there is deliberately no compensating delete.
	if err := h.dispatcher.Send(ctx, recipient, link); err != nil {
		log.Printf("send to %s: %v", sanitizeForLog(recipient), err)
		respondOpError(w, err)
		return
	}

	if err := h.captures.MarkSent(ctx, id); err != nil {
		respondOpError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// clientIP returns the request's client address without the port. The chi
// RealIP middleware has already folded X-Forwarded-For into RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
