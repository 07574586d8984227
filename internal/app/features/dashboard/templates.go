// internal/app/features/dashboard/templates.go
package dashboard

import (
	"embed"

	"github.com/dalemusser/waffle/pantry/templates"
)

// templateFS holds "dashboard/index" (the full page) and "dashboard/panel"
// (the counters and chart, re-fetched while a cycle is loading).
//
//go:embed templates/*.gohtml
var templateFS embed.FS

func init() {
	templates.Register(templates.Set{Name: "dashboard", FS: templateFS, Patterns: []string{"templates/*.gohtml"}})
}
