package viewer

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const testKey = "xK8nP2mQ9rT5vW7yB3cF6hJ0lN4sU1wZ"

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(testKey, "test-session", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

// serve runs one request through the middleware and returns the viewer the
// handler saw plus the response.
func serve(m *Manager, req *http.Request, h func(http.ResponseWriter, *http.Request)) (Viewer, *httptest.ResponseRecorder) {
	var seen Viewer
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = Current(r)
		if h != nil {
			h(w, r)
		}
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return seen, rec
}

func withCookies(req *http.Request, rec *httptest.ResponseRecorder) *http.Request {
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestNewManager(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		secure  bool
		wantErr bool
	}{
		{"valid key dev mode", testKey, false, false},
		{"valid key prod mode", testKey, true, false},
		{"empty key", "", false, true},
		{"weak key dev mode", "short", false, false},
		{"weak key prod mode", "short", true, true},
		{"default key prod mode", "dev-only-session-key-not-for-production", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManager(tt.key, "", "", time.Hour, tt.secure, zap.NewNop())
			if tt.wantErr {
				var cfgErr *ConfigError
				if !errors.As(err, &cfgErr) {
					t.Errorf("NewManager() error = %v, want *ConfigError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewManager() error = %v", err)
			}
			if m.SessionName() != DefaultSessionName {
				t.Errorf("SessionName() = %q, want %q", m.SessionName(), DefaultSessionName)
			}
		})
	}
}

func TestMiddleware_NewViewer(t *testing.T) {
	m := newTestManager(t)

	v, rec := serve(m, httptest.NewRequest(http.MethodGet, "/dashboard", nil), nil)
	if !v.New {
		t.Error("New = false for a request without a cookie")
	}
	if _, err := uuid.Parse(v.ID); err != nil {
		t.Errorf("ID = %q is not a UUID", v.ID)
	}
	if v.Slug != "" {
		t.Errorf("Slug = %q, want empty", v.Slug)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Fatal("no session cookie set")
	}
}

func TestMiddleware_ReturningViewer(t *testing.T) {
	m := newTestManager(t)

	first, rec := serve(m, httptest.NewRequest(http.MethodGet, "/dashboard", nil), nil)

	req := withCookies(httptest.NewRequest(http.MethodGet, "/dashboard", nil), rec)
	second, _ := serve(m, req, nil)
	if second.ID != first.ID {
		t.Errorf("ID changed from %q to %q", first.ID, second.ID)
	}
	if second.New {
		t.Error("New = true for a returning viewer")
	}
}

func TestRemember(t *testing.T) {
	m := newTestManager(t)

	first, rec := serve(m, httptest.NewRequest(http.MethodGet, "/dashboard", nil), nil)

	req := withCookies(httptest.NewRequest(http.MethodPost, "/dashboard/select", nil), rec)
	_, rec = serve(m, req, func(w http.ResponseWriter, r *http.Request) {
		if err := m.Remember(w, r, " United-States "); err != nil {
			t.Errorf("Remember() error = %v", err)
		}
	})

	req = withCookies(httptest.NewRequest(http.MethodGet, "/dashboard", nil), rec)
	v, _ := serve(m, req, nil)
	if v.ID != first.ID {
		t.Errorf("ID changed from %q to %q", first.ID, v.ID)
	}
	if v.Slug != "united-states" {
		t.Errorf("Slug = %q, want united-states", v.Slug)
	}
}

func TestMiddleware_TamperedCookie(t *testing.T) {
	m := newTestManager(t)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "test-session", Value: "not-a-signed-value"})
	v, _ := serve(m, req, nil)
	if !v.New {
		t.Error("a tampered cookie should start a new viewer")
	}
}

func TestMiddleware_ForeignKey(t *testing.T) {
	a := newTestManager(t)
	b, err := NewManager("another-random-32-character-key!", "test-session", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	first, rec := serve(a, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	v, _ := serve(b, withCookies(httptest.NewRequest(http.MethodGet, "/", nil), rec), nil)
	if v.ID == first.ID {
		t.Error("a cookie signed with another key was accepted")
	}
}

func TestWithViewer(t *testing.T) {
	req := WithViewer(httptest.NewRequest(http.MethodGet, "/", nil), Viewer{ID: "abc", Slug: "turkey"})
	v, ok := Current(req)
	if !ok || v.ID != "abc" || v.Slug != "turkey" {
		t.Errorf("Current() = %+v, %v", v, ok)
	}

	if _, ok := Current(httptest.NewRequest(http.MethodGet, "/", nil)); ok {
		t.Error("Current() found a viewer on a bare request")
	}
}

func TestIsDefaultKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"dev-only-key", true},
		{"change-me-please", true},
		{"placeholder-key", true},
		{"default-session-key", true},
		{"insecure-dev-key", true},
		{"password123", true},
		{testKey, false},
		{"secure-random-key-that-is-long-enough", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := isDefaultKey(tt.key); got != tt.want {
				t.Errorf("isDefaultKey(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

// mockSecureCookieError implements securecookie.Error.
type mockSecureCookieError struct {
	msg      string
	isDecode bool
}

func (e mockSecureCookieError) Error() string    { return e.msg }
func (e mockSecureCookieError) IsDecode() bool   { return e.isDecode }
func (e mockSecureCookieError) IsUsage() bool    { return false }
func (e mockSecureCookieError) IsInternal() bool { return false }
func (e mockSecureCookieError) Cause() error     { return nil }

func TestClassifySessionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType sessionErrorType
	}{
		{"nil", nil, sessionErrUnknown},
		{"expired", mockSecureCookieError{msg: "expired timestamp", isDecode: true}, sessionErrExpired},
		{"mac invalid", mockSecureCookieError{msg: "mac validation failed", isDecode: true}, sessionErrTampered},
		{"hash invalid", mockSecureCookieError{msg: "hash mismatch", isDecode: true}, sessionErrTampered},
		{"decrypt failed", mockSecureCookieError{msg: "decrypt error", isDecode: true}, sessionErrCorrupted},
		{"base64 error", mockSecureCookieError{msg: "base64 decode failed", isDecode: true}, sessionErrCorrupted},
		{"not decode", mockSecureCookieError{msg: "backend error"}, sessionErrBackend},
		{"plain error", errors.New("boom"), sessionErrBackend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := classifySessionError(tt.err); got != tt.wantType {
				t.Errorf("classifySessionError() = %v, want %v", got, tt.wantType)
			}
		})
	}
}
