// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like HTTP ports, TLS,
// logging, CORS and request body limits. AppConfig carries the upstream
// statistics API settings, the dashboard defaults, and the viewer session.
//
// APIBaseURL and DefaultCountry are read once at startup and stay fixed for
// the life of the process.
type AppConfig struct {
	// Upstream statistics API
	APIBaseURL            string        // e.g. https://api.covid19api.com
	UpstreamTimeout       time.Duration // per request to the API
	UpstreamMaxBody       int64         // response body cap in bytes
	UpstreamUserAgent     string        // User-Agent header sent upstream
	UpstreamProbeInterval time.Duration // how often the health probe runs
	UpstreamCertInterval  time.Duration // how often the API's TLS certificate is checked; 0 disables

	// Dashboard behaviour
	DefaultCountry string        // slug a new viewer starts with (default: turkey)
	NumberLocale   string        // BCP 47 tag for counter grouping (default: en)
	SettleTimeout  time.Duration // max wait for ?wait=1 API requests

	// Per-viewer dashboard controllers
	ViewerIdleTimeout   time.Duration // evict controllers unused for this long
	ViewerSweepInterval time.Duration // how often eviction runs
	ViewerLimit         int           // max live controllers; least recently seen is dropped

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: stratacovid-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Maximum session cookie lifetime (default: 720h)

	// CSRF protection
	CSRFKey string // Secret key for CSRF tokens (32+ chars in production)

	// Presentation
	SiteName string // shown in the page title and header
}
