// internal/app/features/errors/errors.go
package errors

import (
	"net/http"
	"strings"

	"github.com/dalemusser/stratacovid/internal/app/system/jsonutil"
	"github.com/dalemusser/stratacovid/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// ErrorLogger wraps the zap logger for handler error logging.
type ErrorLogger struct {
	logger *zap.Logger
}

// NewErrorLogger creates a new ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorLogger{logger: logger}
}

// Log logs err with the request's path and method.
func (e *ErrorLogger) Log(r *http.Request, msg string, err error) {
	e.LogWithFields(r, msg, err)
}

// LogWithFields logs err with the request's path and method plus fields.
func (e *ErrorLogger) LogWithFields(r *http.Request, msg string, err error, fields ...zap.Field) {
	all := append([]zap.Field{
		zap.Error(err),
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
	}, fields...)
	e.logger.Error(msg, all...)
}

// PageVM is the view model for error pages.
type PageVM struct {
	viewdata.BaseVM
	Status  int
	Message string
}

// Handler renders error responses. Requests under /api/ get JSON, others
// an HTML page.
type Handler struct {
	logger *zap.Logger
}

// NewHandler creates a new error Handler.
func NewHandler(logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{logger: logger}
}

// NotFound renders the 404 response.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "Not Found", "The page you asked for does not exist.")
}

// MethodNotAllowed renders the 405 response.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusMethodNotAllowed, "Method Not Allowed", "That action is not available here.")
}

// Forbidden renders the 403 response. It is installed as the CSRF failure
// handler, so it logs the failure reason.
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	if reason := csrf.FailureReason(r); reason != nil {
		h.logger.Warn("csrf validation failed",
			zap.Error(reason),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr))
	}
	h.render(w, r, http.StatusForbidden, "Access Denied", "Your form expired. Reload the page and try again.")
}

// InternalError renders the 500 response.
func (h *Handler) InternalError(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusInternalServerError, "Server Error", "Something went wrong on our side.")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	if wantsJSON(r) {
		jsonutil.Error(w, status, strings.ToLower(title))
		return
	}

	vm := PageVM{
		BaseVM:  viewdata.New(r, title),
		Status:  status,
		Message: message,
	}
	w.WriteHeader(status)
	templates.Render(w, r, "errors/page", vm)
}

func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}
