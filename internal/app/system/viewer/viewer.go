// Package viewer identifies dashboard viewers through a signed cookie session.
//
// Every browser gets a random viewer ID on its first request. The ID keys the
// viewer's dashboard controller; the session also remembers the last country
// the viewer selected so a new controller can start on it.
package viewer

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/stratacovid/internal/app/system/normalize"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

// DefaultSessionName is used when no session_name is configured.
const DefaultSessionName = "stratacovid-session"

const (
	viewerIDKey = "viewer_id"
	slugKey     = "country"
)

// Session error classification for logging.
type sessionErrorType int

const (
	sessionErrUnknown   sessionErrorType = iota
	sessionErrExpired                    // timestamp expired - normal
	sessionErrTampered                   // MAC invalid - potential attack
	sessionErrCorrupted                  // decode failed - corruption or key rotation
	sessionErrBackend                    // store failure
)

// Viewer is the identity attached to each request.
type Viewer struct {
	ID   string
	Slug string // last selected country; empty for a new viewer
	New  bool
}

// ConfigError is returned when session configuration is invalid.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// Manager owns the cookie store and the viewer middleware.
type Manager struct {
	store  *sessions.CookieStore
	logger *zap.Logger
	name   string
}

// NewManager creates a Manager.
//
// sessionKey signs the cookie and must be at least 32 chars when secure is
// true (production); a weak key only logs a warning in dev. An empty name
// falls back to DefaultSessionName.
func NewManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sessionKey == "" {
		return nil, &ConfigError{Message: "session key is empty; provide ≥32 random chars"}
	}

	weak := len(sessionKey) < 32 || isDefaultKey(sessionKey)
	if secure && weak {
		return nil, &ConfigError{
			Message: "session key is too weak for production; provide ≥32 random chars (not the default dev key)",
		}
	} else if weak {
		logger.Warn("session key is weak; 32+ random chars required in production",
			zap.Int("length", len(sessionKey)),
			zap.Bool("is_default", isDefaultKey(sessionKey)))
	}

	if name == "" {
		name = DefaultSessionName
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(int(maxAge.Seconds()))

	logger.Info("viewer sessions initialized",
		zap.Bool("secure", secure),
		zap.String("name", name),
		zap.String("domain", domain))

	return &Manager{store: store, logger: logger, name: name}, nil
}

// SessionName returns the cookie name.
func (m *Manager) SessionName() string {
	return m.name
}

type ctxKey string

const viewerKey ctxKey = "viewer"

// Current returns the viewer attached by Middleware.
func Current(r *http.Request) (Viewer, bool) {
	v, ok := r.Context().Value(viewerKey).(Viewer)
	return v, ok
}

// WithViewer attaches v to the request context. Intended for tests.
func WithViewer(r *http.Request, v Viewer) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), viewerKey, v))
}

// Middleware loads (or starts) the viewer session and attaches the Viewer
// to the request context. A session that cannot be decoded is replaced.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := m.session(r)

		v := Viewer{
			ID:   getString(sess, viewerIDKey),
			Slug: normalize.Slug(getString(sess, slugKey)),
		}
		if _, err := uuid.Parse(v.ID); err != nil {
			v = Viewer{ID: uuid.NewString(), New: true}
			sess.Values[viewerIDKey] = v.ID
			delete(sess.Values, slugKey)
			if err := sess.Save(r, w); err != nil {
				// The viewer still gets a working page; they just get a
				// fresh ID on the next request.
				m.logger.Error("save viewer session", zap.Error(err), zap.String("path", r.URL.Path))
			} else {
				m.logger.Debug("new viewer", zap.String("viewer", v.ID))
			}
		}

		next.ServeHTTP(w, WithViewer(r, v))
	})
}

// Remember stores slug as the viewer's selection. It must run before the
// response body is written.
func (m *Manager) Remember(w http.ResponseWriter, r *http.Request, slug string) error {
	sess := m.session(r)
	if v, ok := Current(r); ok {
		sess.Values[viewerIDKey] = v.ID
	}
	sess.Values[slugKey] = normalize.Slug(slug)
	return sess.Save(r, w)
}

func (m *Manager) session(r *http.Request) *sessions.Session {
	sess, err := m.store.Get(r, m.name)
	if err == nil {
		return sess
	}

	errType, category := classifySessionError(err)
	switch errType {
	case sessionErrExpired:
		m.logger.Debug("session expired, starting fresh session",
			zap.String("category", category),
			zap.String("path", r.URL.Path))
	case sessionErrTampered:
		m.logger.Warn("session MAC validation failed (possible tampering)",
			zap.String("category", category),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("user_agent", r.UserAgent()))
	case sessionErrCorrupted:
		m.logger.Info("session decode failed, starting fresh session",
			zap.String("category", category),
			zap.String("path", r.URL.Path))
	default:
		m.logger.Error("session store error, starting fresh session",
			zap.Error(err),
			zap.String("path", r.URL.Path))
	}

	// store.Get returns a usable new session alongside decode errors.
	if sess == nil {
		sess = sessions.NewSession(m.store, m.name)
		sess.Options = m.store.Options
		sess.IsNew = true
	}
	return sess
}

func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}

// isDefaultKey reports whether key looks like a placeholder.
func isDefaultKey(key string) bool {
	lower := strings.ToLower(key)
	for _, p := range []string{
		"dev-only",
		"change-me",
		"placeholder",
		"default",
		"example",
		"insecure",
		"test-key",
		"secret123",
		"password",
	} {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// classifySessionError categorizes a cookie error for logging.
func classifySessionError(err error) (sessionErrorType, string) {
	if err == nil {
		return sessionErrUnknown, "none"
	}

	scErr, ok := err.(securecookie.Error)
	if !ok {
		return sessionErrBackend, "unknown"
	}
	if !scErr.IsDecode() {
		return sessionErrBackend, "backend"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "expired timestamp"):
		return sessionErrExpired, "expired"
	case strings.Contains(msg, "mac") || strings.Contains(msg, "hash"):
		return sessionErrTampered, "mac_invalid"
	case strings.Contains(msg, "decrypt"):
		return sessionErrCorrupted, "decrypt_failed"
	case strings.Contains(msg, "base64") || strings.Contains(msg, "decode"):
		return sessionErrCorrupted, "decode_failed"
	default:
		return sessionErrCorrupted, "decode_other"
	}
}
