package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/snapmatch/snapmatch/internal/constants"
	"github.com/snapmatch/snapmatch/internal/store"
	"github.com/snapmatch/snapmatch/internal/web/middleware"
)

// AdminHandler serves the admin surface: authentication, account
// management, the credentials artifact, and the visitor log.
type AdminHandler struct {
	admins          store.AdminStore
	userLogs        store.UserLogStore
	sessionManager  *middleware.SessionManager
	credentialsFile string
	galleryDir      string
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(admins store.AdminStore, userLogs store.UserLogStore,
	sm *middleware.SessionManager, credentialsFile, galleryDir string) *AdminHandler {
	return &AdminHandler{
		admins:          admins,
		userLogs:        userLogs,
		sessionManager:  sm,
		credentialsFile: credentialsFile,
		galleryDir:      galleryDir,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents a login response.
type LoginResponse struct {
	Success   bool   `json:"success"`
	Username  string `json:"username,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Login handles POST /admin/login. A wrong username and a wrong password
// produce the same answer.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	admin, err := h.admins.GetByUsername(r.Context(), req.Username)
	if err != nil {
		respondAdminError(w, err)
		return
	}
	if admin == nil ||
		bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)) != nil {
		respondJSON(w, http.StatusUnauthorized, LoginResponse{
			Success: false,
			Error:   "invalid credentials",
		})
		return
	}

	session, err := h.sessionManager.CreateSession(r.Context(), admin.ID, admin.Username)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	h.sessionManager.SetSessionCookie(w, session)

	respondJSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		Username:  admin.Username,
		ExpiresAt: session.ExpiresAt.Format("2006-01-02T15:04:05Z"),
	})
}

// Logout handles POST /admin/logout.
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessionManager.GetSessionFromRequest(r); session != nil {
		h.sessionManager.DeleteSession(session.ID)
	}
	h.sessionManager.ClearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// StatusResponse represents the auth status response.
type StatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	ExpiresAt     string `json:"expires_at,omitempty"`
}

// Status checks if the caller holds a valid admin session.
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	session := h.sessionManager.GetSessionFromRequest(r)
	if session == nil {
		respondJSON(w, http.StatusOK, StatusResponse{Authenticated: false})
		return
	}
	respondJSON(w, http.StatusOK, StatusResponse{
		Authenticated: true,
		Username:      session.Username,
		ExpiresAt:     session.ExpiresAt.Format("2006-01-02T15:04:05Z"),
	})
}

// Dashboard handles GET /admin/dashboard: a summary of the deployment.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	admins, err := h.admins.List(ctx)
	if err != nil {
		respondAdminError(w, err)
		return
	}
	logCount, err := h.userLogs.Count(ctx)
	if err != nil {
		respondAdminError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"admins":         len(admins),
		"user_logs":      logCount,
		"gallery_images": CountFiles(h.galleryDir),
	})
}

// UploadCredentials handles POST /admin/upload_credentials: store the
// service credentials artifact at its fixed path, replacing any previous
// file. There is only ever one; it is never versioned.
func (h *AdminHandler) UploadCredentials(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(constants.MaxCredentialsUpload); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, _, err := r.FormFile("credentials")
	if err != nil {
		respondError(w, http.StatusBadRequest, "credentials file is required")
		return
	}
	defer file.Close()

	if dir := filepath.Dir(h.credentialsFile); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to store credentials")
			return
		}
	}

	out, err := os.OpenFile(h.credentialsFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store credentials")
		return
	}
	defer out.Close()

	if _, err := io.Copy(out, io.LimitReader(file, constants.MaxCredentialsUpload)); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store credentials")
		return
	}

	log.Printf("credentials artifact replaced by %s", sanitizeForLog(adminName(r)))
	respondJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

type adminRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// AddAdmin handles POST /admin/add_admin. Duplicate usernames are rejected
// with a conflict and no row is created.
func (h *AdminHandler) AddAdmin(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	admin, err := h.admins.Create(r.Context(), req.Username, string(hash), req.Email)
	if err != nil {
		respondAdminError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, admin)
}

// ListAdmins handles GET /admin/list_admins.
func (h *AdminHandler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.admins.List(r.Context())
	if err != nil {
		respondAdminError(w, err)
		return
	}
	if admins == nil {
		admins = []store.Admin{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"admins": admins})
}

// DeleteAdmin handles DELETE /admin/delete_admin/{id}.
func (h *AdminHandler) DeleteAdmin(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid admin id")
		return
	}

	if err := h.admins.Delete(r.Context(), id); err != nil {
		respondAdminError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type editAdminRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// EditAdmin handles PUT /admin/edit_admin/{id}: a partial update. Only the
// fields present in the request change.
func (h *AdminHandler) EditAdmin(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid admin id")
		return
	}

	var req editAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	upd := store.AdminUpdate{Username: req.Username, Email: req.Email}
	if req.Password != nil {
		if *req.Password == "" {
			respondError(w, http.StatusBadRequest, "password must not be empty")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to hash password")
			return
		}
		hashStr := string(hash)
		upd.PasswordHash = &hashStr
	}

	if err := h.admins.Update(r.Context(), id, upd); err != nil {
		respondAdminError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ListUserLogs handles GET /admin/list_user_logs: the most recent visitor
// entries, newest first.
func (h *AdminHandler) ListUserLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.userLogs.Recent(r.Context(), constants.RecentUserLogs)
	if err != nil {
		respondAdminError(w, err)
		return
	}
	if logs == nil {
		logs = []store.UserLog{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"user_logs": logs})
}

// adminName names the acting admin for audit logging.
func adminName(r *http.Request) string {
	if s := middleware.GetSessionFromContext(r.Context()); s != nil {
		return s.Username
	}
	return "unknown"
}
