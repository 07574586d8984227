// Package ledger records API requests as structured log entries.
//
// Each request under the configured prefixes produces one Entry, written to
// zap when the response completes. Handlers may attach an error class and
// message through the request context so failed calls are easy to search.
package ledger

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/stratacovid/internal/app/system/viewer"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ctxKey int

const ctxKeyEntry ctxKey = iota

// Config holds configuration for the ledger middleware.
type Config struct {
	Logger *zap.Logger

	// OnlyErrors logs only responses with status >= 400.
	OnlyErrors bool

	// SlowThreshold promotes a successful entry to Warn when the request
	// took at least this long. Zero disables it.
	SlowThreshold time.Duration

	// ExcludePaths lists path prefixes that are never logged.
	ExcludePaths []string
}

// Entry is one logged API request.
type Entry struct {
	RequestID    string
	Method       string
	Path         string
	Query        string
	RemoteIP     string
	ViewerID     string
	Status       int
	Bytes        int64
	Duration     time.Duration
	ErrorClass   string
	ErrorMessage string
}

// Fields returns the entry as zap fields.
func (e *Entry) Fields() []zap.Field {
	fields := []zap.Field{
		zap.String("request_id", e.RequestID),
		zap.String("method", e.Method),
		zap.String("path", e.Path),
		zap.Int("status", e.Status),
		zap.Int64("bytes", e.Bytes),
		zap.Duration("duration", e.Duration),
		zap.String("remote_ip", e.RemoteIP),
	}
	if e.Query != "" {
		fields = append(fields, zap.String("query", e.Query))
	}
	if e.ViewerID != "" {
		fields = append(fields, zap.String("viewer_id", e.ViewerID))
	}
	if e.ErrorClass != "" {
		fields = append(fields, zap.String("error_class", e.ErrorClass))
	}
	if e.ErrorMessage != "" {
		fields = append(fields, zap.String("error", e.ErrorMessage))
	}
	return fields
}

// Middleware returns HTTP middleware that logs requests to the ledger.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("ledger")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range cfg.ExcludePaths {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			requestID := chimw.GetReqID(r.Context())
			if requestID == "" {
				requestID = uuid.NewString()
			}

			entry := &Entry{
				RequestID: requestID,
				Method:    r.Method,
				Path:      r.URL.Path,
				Query:     r.URL.RawQuery,
				RemoteIP:  ClientIP(r),
			}
			if v, ok := viewer.Current(r); ok {
				entry.ViewerID = v.ID
			}

			r = r.WithContext(context.WithValue(r.Context(), ctxKeyEntry, entry))
			wrapped := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

			start := time.Now()
			next.ServeHTTP(wrapped, r)

			entry.Duration = time.Since(start)
			entry.Status = wrapped.statusCode
			entry.Bytes = wrapped.bytesWritten
			if entry.Status >= 400 && entry.ErrorClass == "" {
				entry.ErrorClass = ClassifyStatus(entry.Status)
			}

			write(logger, cfg, entry)
		})
	}
}

func write(logger *zap.Logger, cfg Config, e *Entry) {
	switch {
	case e.Status >= 500:
		logger.Error("api request", e.Fields()...)
	case e.Status >= 400:
		logger.Warn("api request", e.Fields()...)
	case cfg.OnlyErrors:
		return
	case cfg.SlowThreshold > 0 && e.Duration >= cfg.SlowThreshold:
		logger.Warn("slow api request", e.Fields()...)
	default:
		logger.Info("api request", e.Fields()...)
	}
}

// ClassifyStatus maps an error status to a short class name.
func ClassifyStatus(status int) string {
	switch {
	case status == http.StatusBadRequest:
		return "validation"
	case status == http.StatusForbidden:
		return "forbidden"
	case status == http.StatusNotFound:
		return "not_found"
	case status == http.StatusMethodNotAllowed:
		return "method"
	case status == http.StatusServiceUnavailable:
		return "upstream"
	case status >= 500:
		return "internal"
	default:
		return "client_error"
	}
}

// SetError records an error class and message on the current request's
// entry. It is a no-op outside the middleware.
func SetError(ctx context.Context, class, message string) {
	entry, ok := ctx.Value(ctxKeyEntry).(*Entry)
	if !ok {
		return
	}
	entry.ErrorClass = class
	entry.ErrorMessage = message
}

// RequestID returns the ledger request ID for the current request.
func RequestID(ctx context.Context) string {
	entry, ok := ctx.Value(ctxKeyEntry).(*Entry)
	if !ok {
		return ""
	}
	return entry.RequestID
}

// ClientIP returns the client address, preferring the first
// X-Forwarded-For hop, then X-Real-IP, then RemoteAddr without its port.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// responseWrapper captures the status code and bytes written.
type responseWrapper struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func (rw *responseWrapper) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWrapper) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// Flush implements http.Flusher.
func (rw *responseWrapper) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
