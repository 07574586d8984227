// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"strings"
	"time"

	dashboardfeature "github.com/dalemusser/stratacovid/internal/app/features/dashboard"
	dashboardapifeature "github.com/dalemusser/stratacovid/internal/app/features/dashboardapi"
	errorsfeature "github.com/dalemusser/stratacovid/internal/app/features/errors"
	healthfeature "github.com/dalemusser/stratacovid/internal/app/features/health"
	appresources "github.com/dalemusser/stratacovid/internal/app/resources"
	"github.com/dalemusser/stratacovid/internal/app/system/apicors"
	"github.com/dalemusser/stratacovid/internal/app/system/ledger"
	"github.com/dalemusser/stratacovid/internal/app/system/viewer"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// csrfExemptPrefix marks routes that take JSON bodies instead of forms.
// They rely on the SameSite session cookie and on jsonutil.Decode refusing
// anything but application/json, which a cross-site form cannot send.
const csrfExemptPrefix = "/api/"

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, backend setup, and Startup have
// completed. Routes:
//   - /dashboard: server-rendered dashboard (form posts, CSRF protected)
//   - /api/dashboard: JSON view of the same per-viewer state
//   - /health, /ready, /live: probes for load balancers
//   - /assets, /static: embedded and on-disk static files
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	viewers, err := viewer.NewManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("viewer session manager init failed", zap.Error(err))
		return nil, err
	}

	// Initialize and boot the template engine once at startup.
	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	errLog := errorsfeature.NewErrorLogger(logger)
	errorsHandler := errorsfeature.NewHandler(logger)

	r := chi.NewRouter()

	// ─────────────────────────────────────────────────────────────────────────────
	// Global Middleware (applies to ALL routes)
	// ─────────────────────────────────────────────────────────────────────────────

	r.Use(chimw.RequestID)

	// Request timeout middleware: the API's ?wait=1 may block up to
	// settle_timeout, so the request budget sits above it.
	r.Use(chimw.Timeout(appCfg.SettleTimeout + 10*time.Second))

	// CORS middleware: must be early in the chain to handle preflight requests.
	r.Use(middleware.CORSFromConfig(coreCfg))

	// Security headers middleware: adds X-Frame-Options, X-Content-Type-Options, etc.
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// CSRF protection for form posts. The cookie name is app-specific to
	// avoid collisions with other services on the same domain.
	csrfOpts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.CookieName("stratacovid_csrf"),
		csrf.FieldName("csrf_token"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(errorsHandler.Forbidden)),
	}
	// In dev mode, trust localhost origins for CSRF validation.
	trustedOrigins := []string{
		"localhost:8080",
		"localhost:3000",
		"127.0.0.1:8080",
		"127.0.0.1:3000",
	}
	if !secure {
		csrfOpts = append(csrfOpts, csrf.TrustedOrigins(trustedOrigins))
	}
	if appCfg.SessionDomain != "" {
		csrfOpts = append(csrfOpts, csrf.Domain(appCfg.SessionDomain))
	}
	csrfProtect := csrf.Protect([]byte(appCfg.CSRFKey), csrfOpts...)

	csrfMiddleware := func(next http.Handler) http.Handler {
		csrfHandler := csrfProtect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if strings.HasPrefix(req.URL.Path, csrfExemptPrefix) {
				next.ServeHTTP(w, req)
				return
			}
			csrfHandler.ServeHTTP(w, req)
		})
	}

	// ─────────────────────────────────────────────────────────────────────────────
	// Routes
	// ─────────────────────────────────────────────────────────────────────────────

	// Health check endpoints carry no cookies, so any origin may read them.
	healthHandler := healthfeature.NewHandler(deps.Health, deps.Registry, logger)
	r.Group(func(pr chi.Router) {
		pr.Use(apicors.ReadOnly())
		pr.Mount("/health", healthfeature.Routes(healthHandler))
		healthfeature.MountRootEndpoints(pr, healthHandler)
	})

	// Static assets with pre-compressed file support (gzip/brotli)
	// /static/* serves files from disk (static directory)
	r.Handle("/static/*", fileserver.Handler("/static", "static"))

	// /assets/* serves embedded assets (bundled into the binary)
	r.Handle("/assets/*", appresources.AssetsHandler("/assets"))

	// Everything below identifies the viewer by session cookie.
	r.Group(func(vr chi.Router) {
		vr.Use(viewers.Middleware)
		vr.Use(csrfMiddleware)

		vr.Get("/", func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, "/dashboard", http.StatusSeeOther)
		})

		dashboardHandler := dashboardfeature.NewHandler(deps.Registry, viewers, deps.Formatter, logger)
		vr.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler))

		// API requests are written to the ledger.
		apiHandler := dashboardapifeature.NewHandler(deps.Registry, viewers, errLog, appCfg.SettleTimeout, logger)
		vr.Route("/api/dashboard", func(ar chi.Router) {
			ar.Use(ledger.Middleware(ledger.Config{
				Logger:        logger,
				SlowThreshold: appCfg.UpstreamTimeout,
				ExcludePaths:  []string{"/api/dashboard/countries"},
			}))
			ar.Mount("/", dashboardapifeature.Routes(apiHandler))
		})
	})

	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	return r, nil
}
