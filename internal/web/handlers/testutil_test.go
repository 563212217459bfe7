package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/snapmatch/snapmatch/internal/apperr"
	"github.com/snapmatch/snapmatch/internal/matcher"
	"github.com/snapmatch/snapmatch/internal/store"
	"github.com/snapmatch/snapmatch/internal/web/middleware"
)

const testCaptureID = "3b7f8f6a-6c2e-4f6e-9c1a-2f5d8e4b7a10"

// newImagesStore creates a matched-image store rooted in a temp directory.
func newImagesStore(t *testing.T) *matcher.Store {
	t.Helper()
	return matcher.NewStore(t.TempDir(), "clean_")
}

// writeMatchedFile drops a file into a session's matched directory.
func writeMatchedFile(t *testing.T, images *matcher.Store, sessionID, name string, data []byte) {
	t.Helper()
	dir := images.SessionDir(sessionID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("failed to create session dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
		t.Fatalf("failed to write matched file: %v", err)
	}
}

// captureRequest creates a request with a capture-session ID in context.
func captureRequest(t *testing.T, method, path, body string) *http.Request {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(middleware.SetCaptureIDInContext(req.Context(), testCaptureID))
}

// requestWithChiParams creates a request with chi URL parameters.
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type.
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code.
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertOpStatus checks the public {status: ...} field of a response.
func assertOpStatus(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	var resp statusResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Status != expected {
		t.Errorf("expected status %q, got %q\nBody: %s", expected, resp.Status, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message.
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error %q, got %q", expectedMessage, result["error"])
	}
}

// --- fakes ---

// fakeMatcher runs a function instead of the external program.
type fakeMatcher struct {
	fn    func(outputDir string) error
	calls int
}

func (m *fakeMatcher) Match(ctx context.Context, outputDir string) error {
	m.calls++
	if m.fn == nil {
		return nil
	}
	return m.fn(outputDir)
}

// fakeCaptureStore is an in-memory CaptureStore.
type fakeCaptureStore struct {
	mu       sync.Mutex
	captures map[string]*store.Capture
}

func newFakeCaptureStore() *fakeCaptureStore {
	return &fakeCaptureStore{captures: make(map[string]*store.Capture)}
}

func (s *fakeCaptureStore) Get(ctx context.Context, id string) (*store.Capture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.captures[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (s *fakeCaptureStore) Reset(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captures[id] = &store.Capture{ID: id, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	return nil
}

func (s *fakeCaptureStore) SetRecipient(ctx context.Context, id, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.captures[id]
	if !ok {
		c = &store.Capture{ID: id, CreatedAt: time.Now()}
		s.captures[id] = c
	}
	c.Recipient = email
	c.UpdatedAt = time.Now()
	return nil
}

func (s *fakeCaptureStore) MarkSent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.captures[id]
	if !ok {
		c = &store.Capture{ID: id, CreatedAt: time.Now()}
		s.captures[id] = c
	}
	c.EmailSent = true
	c.Recipient = ""
	c.UpdatedAt = time.Now()
	return nil
}

func (s *fakeCaptureStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.captures, id)
	return nil
}

// fakeUserLogStore is an in-memory UserLogStore.
type fakeUserLogStore struct {
	mu   sync.Mutex
	logs []store.UserLog
}

func (s *fakeUserLogStore) Insert(ctx context.Context, email, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, store.UserLog{
		ID:        int64(len(s.logs) + 1),
		Email:     email,
		IP:        ip,
		CreatedAt: time.Now(),
	})
	return nil
}

func (s *fakeUserLogStore) Recent(ctx context.Context, limit int) ([]store.UserLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.UserLog
	for i := len(s.logs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.logs[i])
	}
	return out, nil
}

func (s *fakeUserLogStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.logs)), nil
}

// fakeAdminStore is an in-memory AdminStore.
type fakeAdminStore struct {
	mu     sync.Mutex
	nextID int64
	admins map[int64]*store.Admin
}

func newFakeAdminStore() *fakeAdminStore {
	return &fakeAdminStore{admins: make(map[int64]*store.Admin)}
}

func (s *fakeAdminStore) GetByUsername(ctx context.Context, username string) (*store.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	username = store.NormalizeUsername(username)
	for _, a := range s.admins {
		if a.Username == username {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeAdminStore) Create(ctx context.Context, username, passwordHash, email string) (*store.Admin, error) {
	username = store.NormalizeUsername(username)
	if existing, _ := s.GetByUsername(ctx, username); existing != nil {
		return nil, apperr.New(apperr.Conflict, "username already exists")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	a := &store.Admin{
		ID:           s.nextID,
		Username:     username,
		PasswordHash: passwordHash,
		Email:        email,
		CreatedAt:    time.Now(),
	}
	s.admins[a.ID] = a
	copied := *a
	return &copied, nil
}

func (s *fakeAdminStore) Update(ctx context.Context, id int64, upd store.AdminUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.admins[id]
	if !ok {
		return apperr.New(apperr.NotFound, "admin not found")
	}
	if upd.Username != nil {
		a.Username = store.NormalizeUsername(*upd.Username)
	}
	if upd.Email != nil {
		a.Email = *upd.Email
	}
	if upd.PasswordHash != nil {
		a.PasswordHash = *upd.PasswordHash
	}
	return nil
}

func (s *fakeAdminStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.admins[id]; !ok {
		return apperr.New(apperr.NotFound, "admin not found")
	}
	delete(s.admins, id)
	return nil
}

func (s *fakeAdminStore) List(ctx context.Context) ([]store.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Admin
	for _, a := range s.admins {
		out = append(out, *a)
	}
	return out, nil
}

// fakeDispatcher records send attempts.
type fakeDispatcher struct {
	mu         sync.Mutex
	sends      int
	recipients []string
	links      []string
	err        error
}

func (d *fakeDispatcher) Send(ctx context.Context, recipient, link string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sends++
	d.recipients = append(d.recipients, recipient)
	d.links = append(d.links, link)
	return nil
}

// fakeUploader records uploads and returns a fixed link.
type fakeUploader struct {
	mu      sync.Mutex
	uploads [][]string
	link    string
	err     error
}

func (u *fakeUploader) ShareFiles(ctx context.Context, folderName string, paths []string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return "", u.err
	}
	u.uploads = append(u.uploads, paths)
	if u.link == "" {
		return "http://localhost:9000/snapmatch/shares/test/", nil
	}
	return u.link, nil
}

// fakeDownloader records share downloads.
type fakeDownloader struct {
	count int
	err   error
	links []string
}

func (d *fakeDownloader) DownloadShare(ctx context.Context, link, dir string) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	d.links = append(d.links, link)
	return d.count, nil
}
