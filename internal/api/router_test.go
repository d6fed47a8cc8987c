package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/demotours/tour-builder/internal/core/domain"
	"github.com/demotours/tour-builder/internal/core/ports"
	"github.com/demotours/tour-builder/internal/core/service"
)

// ---------------------------------------------------------------------------
// In-memory repositories
// ---------------------------------------------------------------------------

type memUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[email]; ok {
		c := *u
		return &c, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUsers) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return nil, domain.ErrUserExists
	}
	c := *u
	c.ID = fmt.Sprintf("user-%d", len(m.users)+1)
	m.users[c.Email] = &c
	out := c
	return &out, nil
}

type memTours struct {
	mu    sync.Mutex
	seq   int
	tours map[string]*domain.Tour
}

func (m *memTours) get(id, ownerID string) (*domain.Tour, error) {
	t, ok := m.tours[id]
	if !ok || (ownerID != "" && t.OwnerID != ownerID) {
		return nil, domain.ErrTourNotFound
	}
	return t, nil
}

func copyTour(t *domain.Tour) *domain.Tour {
	c := *t
	c.Steps = append([]domain.Step(nil), t.Steps...)
	return &c
}

func (m *memTours) Create(_ context.Context, t *domain.Tour) (*domain.Tour, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	c := copyTour(t)
	c.ID = fmt.Sprintf("tour-%d", m.seq)
	m.tours[c.ID] = c
	return copyTour(c), nil
}

func (m *memTours) FindByID(_ context.Context, id, ownerID string) (*domain.Tour, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.get(id, ownerID)
	if err != nil {
		return nil, err
	}
	return copyTour(t), nil
}

func (m *memTours) FindPublic(_ context.Context, id string) (*domain.Tour, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.get(id, "")
	if err != nil || !t.IsPublic {
		return nil, domain.ErrTourNotFound
	}
	return copyTour(t), nil
}

func (m *memTours) ListByOwner(_ context.Context, ownerID string) ([]*domain.Tour, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Tour
	for _, t := range m.tours {
		if t.OwnerID == ownerID {
			out = append(out, copyTour(t))
		}
	}
	return out, nil
}

func (m *memTours) Update(_ context.Context, id, ownerID string, p ports.TourPatch) (*domain.Tour, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.get(id, ownerID)
	if err != nil {
		return nil, err
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.IsPublic != nil {
		t.IsPublic = *p.IsPublic
	}
	if p.Steps != nil {
		t.Steps = append([]domain.Step(nil), p.Steps...)
	}
	t.UpdatedAt = p.UpdatedAt
	return copyTour(t), nil
}

func (m *memTours) Delete(_ context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.get(id, ownerID); err != nil {
		return err
	}
	delete(m.tours, id)
	return nil
}

func (m *memTours) IncrementViews(_ context.Context, id string, n int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.get(id, "")
	if err != nil {
		return err
	}
	t.Views += n
	return nil
}

func (m *memTours) StatsByOwner(_ context.Context, ownerID string) (*domain.TourStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &domain.TourStats{}
	for _, t := range m.tours {
		if t.OwnerID != ownerID {
			continue
		}
		s.Total++
		s.TotalViews += t.Views
		if t.Status == domain.StatusPublished {
			s.Published++
		} else {
			s.Drafts++
		}
	}
	return s, nil
}

// syncViews counts views immediately so the test can observe them.
type syncViews struct{ repo *memTours }

func (v syncViews) Record(e domain.ViewEvent) {
	_ = v.repo.IncrementViews(context.Background(), e.TourID, 1)
}

type nopStore struct{}

func (nopStore) Put(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	_, _ = io.Copy(io.Discard, body)
	return "http://localhost:5000/uploads/" + key, nil
}

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

func newTestServer(t *testing.T) (*echo.Echo, *memTours) {
	t.Helper()
	tours := &memTours{tours: make(map[string]*domain.Tour)}
	e := NewRouter(Deps{
		Log:           zerolog.Nop(),
		AuthService:   service.NewAuthService(&memUsers{users: make(map[string]*domain.User)}, "test-secret", time.Hour),
		TourService:   service.NewTourService(tours, syncViews{repo: tours}, zerolog.Nop()),
		UploadService: service.NewUploadService(nopStore{}, zerolog.Nop()),
		CORSOrigins:   []string{"http://localhost:5173"},
		UploadMaxSize: 1 << 20,
		Registerer:    prometheus.NewRegistry(),
	})
	return e, tours
}

func call(t *testing.T, e *echo.Echo, method, path, token string, body any) (int, map[string]any, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var obj map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &obj)
	return rec.Code, obj, rec.Body.Bytes()
}

func registerAndLogin(t *testing.T, e *echo.Echo, name, email string) string {
	t.Helper()
	code, _, raw := call(t, e, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "secret1",
	})
	if code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", code, raw)
	}
	code, resp, raw := call(t, e, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": "secret1",
	})
	if code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", code, raw)
	}
	return resp["token"].(string)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestRouter_TourLifecycle(t *testing.T) {
	e, _ := newTestServer(t)
	token := registerAndLogin(t, e, "Alice", "alice@example.com")

	code, created, raw := call(t, e, http.MethodPost, "/api/tours", token, map[string]any{
		"title":       "Demo",
		"description": "d",
		"steps":       []map[string]any{{"title": "S1", "description": "d1"}},
	})
	if code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", code, raw)
	}
	id, _ := created["id"].(string)
	if id == "" || created["status"] != "draft" {
		t.Fatalf("unexpected created tour: %s", raw)
	}
	steps := created["steps"].([]any)
	if len(steps) != 1 || steps[0].(map[string]any)["id"] == "" {
		t.Fatalf("expected one step with id: %s", raw)
	}

	code, _, raw = call(t, e, http.MethodPut, "/api/tours/"+id, token, map[string]any{
		"steps": []map[string]any{
			{"title": "First", "description": "a"},
			{"title": "Second", "description": "b"},
		},
	})
	if code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", code, raw)
	}

	code, got, raw := call(t, e, http.MethodGet, "/api/tours/"+id, token, nil)
	if code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d: %s", code, raw)
	}
	steps = got["steps"].([]any)
	if len(steps) != 2 ||
		steps[0].(map[string]any)["title"] != "First" ||
		steps[1].(map[string]any)["title"] != "Second" {
		t.Fatalf("expected two steps in submitted order: %s", raw)
	}

	code, resp, _ := call(t, e, http.MethodDelete, "/api/tours/"+id, token, nil)
	if code != http.StatusOK || resp["msg"] != "tour deleted" {
		t.Fatalf("delete: got %d %v", code, resp)
	}

	code, resp, _ = call(t, e, http.MethodGet, "/api/tours/"+id, token, nil)
	if code != http.StatusNotFound || resp["error"] != "tour not found" {
		t.Fatalf("get after delete: got %d %v", code, resp)
	}
}

func TestRouter_OtherOwnerSeesNotFound(t *testing.T) {
	e, _ := newTestServer(t)
	alice := registerAndLogin(t, e, "Alice", "alice@example.com")
	bob := registerAndLogin(t, e, "Bob", "bob@example.com")

	_, created, _ := call(t, e, http.MethodPost, "/api/tours", alice, map[string]any{
		"title": "Mine", "description": "d",
	})
	id := created["id"].(string)

	code, _, _ := call(t, e, http.MethodGet, "/api/tours/"+id, bob, nil)
	if code != http.StatusNotFound {
		t.Fatalf("get: expected 404, got %d", code)
	}
	code, _, _ = call(t, e, http.MethodPut, "/api/tours/"+id, bob, map[string]any{"title": ""})
	if code != http.StatusNotFound {
		t.Fatalf("invalid update by other owner: expected 404, got %d", code)
	}
	code, _, _ = call(t, e, http.MethodDelete, "/api/tours/"+id, bob, nil)
	if code != http.StatusNotFound {
		t.Fatalf("delete: expected 404, got %d", code)
	}
}

func TestRouter_AuthErrors(t *testing.T) {
	e, _ := newTestServer(t)
	registerAndLogin(t, e, "Alice", "alice@example.com")

	code, resp, _ := call(t, e, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "secret1",
	})
	if code != http.StatusBadRequest || resp["error"] != "email already registered" {
		t.Fatalf("duplicate register: got %d %v", code, resp)
	}

	code, resp, _ = call(t, e, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong-pass",
	})
	if code != http.StatusUnauthorized || resp["error"] != "invalid credentials" {
		t.Fatalf("bad login: got %d %v", code, resp)
	}

	code, resp, _ = call(t, e, http.MethodGet, "/api/tours", "garbage", nil)
	if code != http.StatusUnauthorized || resp["error"] != "unauthenticated" {
		t.Fatalf("bad token: got %d %v", code, resp)
	}
}

func TestRouter_SignupAlias(t *testing.T) {
	e, _ := newTestServer(t)
	code, resp, _ := call(t, e, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "Carol", "email": "carol@example.com", "password": "secret1",
	})
	if code != http.StatusCreated || resp["token"] == "" {
		t.Fatalf("signup: got %d %v", code, resp)
	}
}

func TestRouter_PublicFetchCountsViewsOnlyWhenPublic(t *testing.T) {
	e, tours := newTestServer(t)
	token := registerAndLogin(t, e, "Alice", "alice@example.com")

	_, created, _ := call(t, e, http.MethodPost, "/api/tours", token, map[string]any{
		"title": "Demo", "description": "d",
	})
	id := created["id"].(string)

	code, _, _ := call(t, e, http.MethodGet, "/api/public/tours/"+id, "", nil)
	if code != http.StatusNotFound {
		t.Fatalf("private tour: expected 404, got %d", code)
	}

	call(t, e, http.MethodPut, "/api/tours/"+id, token, map[string]any{"isPublic": true})
	code, _, _ = call(t, e, http.MethodGet, "/api/public/tours/"+id, "", nil)
	if code != http.StatusOK {
		t.Fatalf("public tour: expected 200, got %d", code)
	}

	// Owner reads never count.
	call(t, e, http.MethodGet, "/api/tours/"+id, token, nil)

	stored, _ := tours.FindByID(context.Background(), id, created["ownerId"].(string))
	if stored.Views != 1 {
		t.Fatalf("expected 1 view, got %d", stored.Views)
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	e, _ := newTestServer(t)

	if code, _, _ := call(t, e, http.MethodGet, "/health", "", nil); code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", code)
	}
	if code, _, _ := call(t, e, http.MethodGet, "/health/ready", "", nil); code != http.StatusOK {
		t.Fatalf("ready without checks: expected 200, got %d", code)
	}
	if code, _, _ := call(t, e, http.MethodGet, "/metrics", "", nil); code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", code)
	}
}

func TestRouter_UnknownRouteUsesEnvelope(t *testing.T) {
	e, _ := newTestServer(t)
	code, resp, _ := call(t, e, http.MethodGet, "/api/nope", "", nil)
	if code != http.StatusNotFound || resp["error"] == nil {
		t.Fatalf("expected 404 envelope, got %d %v", code, resp)
	}
}

func TestRouter_UploadsServedWithoutSniffing(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "alice"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "alice", "a.png"), []byte("\x89PNG\r\n\x1a\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	e := NewRouter(Deps{
		Log:           zerolog.Nop(),
		AuthService:   service.NewAuthService(&memUsers{users: make(map[string]*domain.User)}, "test-secret", time.Hour),
		TourService:   service.NewTourService(&memTours{tours: make(map[string]*domain.Tour)}, nil, zerolog.Nop()),
		UploadService: service.NewUploadService(nopStore{}, zerolog.Nop()),
		UploadMaxSize: 1 << 20,
		UploadDir:     dir,
		Registerer:    prometheus.NewRegistry(),
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/alice/a.png", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get(echo.HeaderXContentTypeOptions); got != "nosniff" {
		t.Fatalf("expected nosniff, got %q", got)
	}
	if got := rec.Header().Get(echo.HeaderContentSecurityPolicy); !strings.Contains(got, "sandbox") {
		t.Fatalf("expected sandboxing CSP, got %q", got)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/../go.mod", nil))
	if rec.Code == http.StatusOK {
		t.Fatal("expected path escape to be refused")
	}
}
