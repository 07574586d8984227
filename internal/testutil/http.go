package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/dalemusser/stratacovid/internal/app/system/viewer"
	"github.com/google/uuid"
)

// TestViewer returns a viewer with a fresh ID and no remembered country.
func TestViewer() viewer.Viewer {
	return viewer.Viewer{ID: uuid.NewString()}
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewViewerRequest creates a request with v attached, bypassing the viewer
// session middleware. body may be nil.
func NewViewerRequest(method, target string, body io.Reader, v viewer.Viewer) *http.Request {
	req := httptest.NewRequest(method, target, body)
	return viewer.WithViewer(req, v)
}

// NewJSONRequest creates a JSON POST with v attached.
func NewJSONRequest(target, body string, v viewer.Viewer) *http.Request {
	req := NewViewerRequest(http.MethodPost, target, strings.NewReader(body), v)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewFormRequest creates a form POST with v attached.
func NewFormRequest(target, form string, v viewer.Viewer) *http.Request {
	req := NewViewerRequest(http.MethodPost, target, strings.NewReader(form), v)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d", r.Code, expected)
	}
}

// AssertRedirect checks for a redirect to the expected location.
func (r *ResponseRecorder) AssertRedirect(t interface{ Errorf(string, ...any) }, expectedLocation string) {
	if r.Code != http.StatusSeeOther && r.Code != http.StatusFound && r.Code != http.StatusMovedPermanently {
		t.Errorf("expected redirect status, got %d", r.Code)
	}
	if location := r.Header().Get("Location"); location != expectedLocation {
		t.Errorf("redirect location: got %q, want %q", location, expectedLocation)
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}
