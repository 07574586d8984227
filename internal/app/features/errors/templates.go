// internal/app/features/errors/templates.go
package errors

import (
	"embed"

	"github.com/dalemusser/waffle/pantry/templates"
)

// templateFS holds "errors/page", the shared 403/404/405/500 page.
//
//go:embed templates/*.gohtml
var templateFS embed.FS

func init() {
	templates.Register(templates.Set{Name: "errors", FS: templateFS, Patterns: []string{"templates/*.gohtml"}})
}
