// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/stratacovid/internal/app/system/countrystats"
	"github.com/dalemusser/stratacovid/internal/app/system/covidapi"
	"github.com/dalemusser/stratacovid/internal/app/system/dashstate"
)

// DBDeps holds the backend dependencies for this WAFFLE app.
//
// There is no database: the only backend is the upstream statistics API.
// The struct is created in ConnectDB and passed to Startup, BuildHandler,
// and Shutdown.
//
// Shutdown closes Registry, which cancels every in-flight fetch cycle.
type DBDeps struct {
	// Upstream statistics API client and its last probe result
	Client *covidapi.Client
	Health *covidapi.Health

	// Per-viewer dashboard controllers
	Registry *dashstate.Registry

	// Counter formatting for the configured locale
	Formatter *countrystats.Formatter
}
