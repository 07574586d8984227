// Package apicors provides CORS middleware for endpoints that carry no
// cookies and change no state, such as the health probes.
//
// The dashboard API is not wrapped: it is keyed by the viewer session cookie
// and stays behind WAFFLE's configured CORS policy.
package apicors

import (
	"net/http"
	"strings"
)

// ReadOnly allows any origin to GET or HEAD the wrapped routes. Other
// methods get no CORS headers, so browsers refuse cross-origin writes.
//
// Usage in routes.go:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(apicors.ReadOnly())
//	    r.Mount("/health", healthRoutes)
//	})
func ReadOnly() func(http.Handler) http.Handler {
	return withOrigins(nil, "GET, HEAD, OPTIONS")
}

// ReadOnlyWithOrigins is ReadOnly restricted to the listed origins.
func ReadOnlyWithOrigins(allowedOrigins ...string) func(http.Handler) http.Handler {
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[strings.TrimRight(o, "/")] = struct{}{}
	}
	return withOrigins(originSet, "GET, HEAD, OPTIONS")
}

// withOrigins answers preflights itself. A nil set allows every origin.
func withOrigins(originSet map[string]struct{}, methods string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			readOnly := r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions
			origin := r.Header.Get("Origin")

			if readOnly {
				switch {
				case originSet == nil:
					w.Header().Set("Access-Control-Allow-Origin", "*")
				case origin != "":
					if _, ok := originSet[origin]; ok {
						w.Header().Set("Access-Control-Allow-Origin", origin)
						w.Header().Add("Vary", "Origin")
					}
				}
				w.Header().Set("Access-Control-Allow-Methods", methods)
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type")
				w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours
			}

			// Handle preflight OPTIONS request
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
