// internal/app/bootstrap/hooks.go
package bootstrap

import (
	"github.com/dalemusser/waffle/app"
)

// Hooks wires this app into the WAFFLE lifecycle.
// Each function is called in order by app.Run, from configuration
// loading through backend setup, one-time startup work, HTTP handler
// construction, and finally graceful shutdown.
//
// There is no schema to ensure, so EnsureSchema is left nil.
var Hooks = app.Hooks[AppConfig, DBDeps]{
	Name:           "stratacovid",  // used only for logging/diagnostics
	LoadConfig:     LoadConfig,     // load core + app config
	ValidateConfig: ValidateConfig, // validate API URL, locale, timeouts
	ConnectDB:      ConnectDB,      // build API client and viewer registry
	Startup:        Startup,        // load shared templates, start jobs
	BuildHandler:   BuildHandler,   // build the HTTP router + middleware stack
	Shutdown:       Shutdown,       // stop jobs, cancel fetch cycles
}
