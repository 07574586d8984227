package testutil

import (
	"sync"

	"github.com/dalemusser/stratacovid/internal/app/resources"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

var (
	bootOnce sync.Once
	bootErr  error
)

// BootTemplatesOnce registers the shared layout and boots a production-mode
// template engine the first time it is called. Feature templates register
// themselves in init, so importing a feature package is enough to make its
// pages renderable.
func BootTemplatesOnce() error {
	bootOnce.Do(func() {
		resources.LoadSharedTemplates()

		eng := templates.New(false)
		logger := zap.NewNop()
		if bootErr = eng.Boot(logger); bootErr != nil {
			return
		}
		templates.UseEngine(eng, logger)
	})
	return bootErr
}

// MustBootTemplates is BootTemplatesOnce for tests:
//
//	func TestShow(t *testing.T) {
//	    testutil.MustBootTemplates(t)
//	    ...
//	}
func MustBootTemplates(t interface{ Fatalf(string, ...any) }) {
	if err := BootTemplatesOnce(); err != nil {
		t.Fatalf("failed to boot templates: %v", err)
	}
}
