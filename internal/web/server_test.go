package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/snapmatch/snapmatch/internal/config"
	"github.com/snapmatch/snapmatch/internal/matcher"
	"github.com/snapmatch/snapmatch/internal/store"
)

type matcherFunc func(ctx context.Context, outputDir string) error

func (f matcherFunc) Match(ctx context.Context, outputDir string) error { return f(ctx, outputDir) }

type stubCaptures struct{}

func (stubCaptures) Get(ctx context.Context, id string) (*store.Capture, error) { return nil, nil }
func (stubCaptures) Reset(ctx context.Context, id string) error                 { return nil }
func (stubCaptures) SetRecipient(ctx context.Context, id, email string) error   { return nil }
func (stubCaptures) MarkSent(ctx context.Context, id string) error              { return nil }
func (stubCaptures) Delete(ctx context.Context, id string) error                { return nil }

type stubAdmins struct {
	admin *store.Admin
}

func (s *stubAdmins) GetByUsername(ctx context.Context, username string) (*store.Admin, error) {
	if s.admin != nil && s.admin.Username == username {
		return s.admin, nil
	}
	return nil, nil
}
func (s *stubAdmins) Create(ctx context.Context, username, passwordHash, email string) (*store.Admin, error) {
	return &store.Admin{ID: 1, Username: username, CreatedAt: time.Now()}, nil
}
func (s *stubAdmins) Update(ctx context.Context, id int64, upd store.AdminUpdate) error { return nil }
func (s *stubAdmins) Delete(ctx context.Context, id int64) error                        { return nil }
func (s *stubAdmins) List(ctx context.Context) ([]store.Admin, error)                   { return nil, nil }

type stubUserLogs struct{}

func (stubUserLogs) Insert(ctx context.Context, email, ip string) error { return nil }
func (stubUserLogs) Recent(ctx context.Context, limit int) ([]store.UserLog, error) {
	return nil, nil
}
func (stubUserLogs) Count(ctx context.Context) (int64, error) { return 0, nil }

type stubDispatcher struct{}

func (stubDispatcher) Send(ctx context.Context, recipient, link string) error { return nil }

type stubUploader struct{}

func (stubUploader) ShareFiles(ctx context.Context, folderName string, paths []string) (string, error) {
	return "http://localhost:9000/snapmatch/shares/test/", nil
}

type stubDownloader struct{}

func (stubDownloader) DownloadShare(ctx context.Context, link, dir string) (int, error) {
	return 0, nil
}

func newTestServer(t *testing.T, admins *stubAdmins) *Server {
	t.Helper()
	cfg := config.Load()
	cfg.Paths.GalleryDir = t.TempDir()
	cfg.Paths.CredentialsFile = t.TempDir() + "/storage_credentials.json"

	deps := Deps{
		Matcher:    matcherFunc(func(ctx context.Context, outputDir string) error { return nil }),
		Images:     matcher.NewStore(t.TempDir(), "clean_"),
		Admins:     admins,
		UserLogs:   stubUserLogs{},
		Captures:   stubCaptures{},
		Dispatcher: stubDispatcher{},
		Uploader:   stubUploader{},
		Downloader: stubDownloader{},
	}

	srv := NewServer(cfg, 0, "127.0.0.1", "test-session-secret-at-least-32-bytes!", deps)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubAdmins{})

	recorder := httptest.NewRecorder()
	srv.Router().ServeHTTP(recorder, httptest.NewRequest("GET", "/api/v1/health", nil))

	if recorder.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", recorder.Code)
	}
}

func TestCaptureFlowThroughRouter(t *testing.T) {
	srv := newTestServer(t, &stubAdmins{})

	recorder := httptest.NewRecorder()
	srv.Router().ServeHTTP(recorder, httptest.NewRequest("POST", "/capture", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d\nBody: %s", recorder.Code, recorder.Body.String())
	}
	// The matcher produced nothing, so the capture reports no face found.
	if !strings.Contains(recorder.Body.String(), "no_face") {
		t.Errorf("unexpected body %s", recorder.Body.String())
	}
	// A capture session cookie was issued on first contact.
	found := false
	for _, c := range recorder.Result().Cookies() {
		if c.Name == "snapmatch_capture" {
			found = true
		}
	}
	if !found {
		t.Error("expected a capture session cookie")
	}
}

func TestAdminRoutesRequireSession(t *testing.T) {
	srv := newTestServer(t, &stubAdmins{})

	protected := []struct{ method, path string }{
		{"GET", "/admin/dashboard"},
		{"POST", "/admin/upload_credentials"},
		{"POST", "/admin/add_admin"},
		{"GET", "/admin/list_admins"},
		{"DELETE", "/admin/delete_admin/1"},
		{"PUT", "/admin/edit_admin/1"},
		{"GET", "/admin/list_user_logs"},
		{"POST", "/download_drive_images"},
		{"POST", "/clear_gallery"},
	}
	for _, route := range protected {
		recorder := httptest.NewRecorder()
		srv.Router().ServeHTTP(recorder, httptest.NewRequest(route.method, route.path, nil))
		if recorder.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", route.method, route.path, recorder.Code)
		}
	}
}

func TestLoginOpensAdminSurface(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	admins := &stubAdmins{admin: &store.Admin{
		ID:           1,
		Username:     "alice",
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}}
	srv := newTestServer(t, admins)

	// Wrong password stays anonymous.
	recorder := httptest.NewRecorder()
	srv.Router().ServeHTTP(recorder, jsonBody("POST", "/admin/login",
		`{"username": "alice", "password": "wrong"}`))
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", recorder.Code)
	}

	// Correct password opens the admin surface.
	recorder = httptest.NewRecorder()
	srv.Router().ServeHTTP(recorder, jsonBody("POST", "/admin/login",
		`{"username": "alice", "password": "s3cret"}`))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 for login, got %d\nBody: %s", recorder.Code, recorder.Body.String())
	}

	req := httptest.NewRequest("GET", "/admin/dashboard", nil)
	for _, c := range recorder.Result().Cookies() {
		req.AddCookie(c)
	}
	recorder = httptest.NewRecorder()
	srv.Router().ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Errorf("expected dashboard reachable after login, got %d", recorder.Code)
	}
}

func jsonBody(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAdminStatusOpenToAnonymous(t *testing.T) {
	srv := newTestServer(t, &stubAdmins{})

	recorder := httptest.NewRecorder()
	srv.Router().ServeHTTP(recorder, httptest.NewRequest("GET", "/admin/status", nil))

	if recorder.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), `"authenticated":false`) {
		t.Errorf("unexpected body %s", recorder.Body.String())
	}
}
