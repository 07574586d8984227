// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/stratacovid/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/gorilla/csrf"
)

// BaseVM contains common fields for all view models.
// Embed it in feature-specific view models:
//
//	type dashboardData struct {
//	    viewdata.BaseVM
//	    // page-specific fields...
//	}
//
//	data := dashboardData{BaseVM: viewdata.New(r, "Dashboard")}
type BaseVM struct {
	SiteName    string
	Title       string
	CurrentPath string
	CSRFToken   string // for hidden form fields
	Year        int
}

var (
	mu       sync.RWMutex
	siteName = models.DefaultSiteName
)

// Init sets the site name shown in page titles and the header.
// Call it once at startup; an empty name keeps the default.
func Init(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = models.DefaultSiteName
	}
	mu.Lock()
	siteName = name
	mu.Unlock()
}

// SiteName returns the configured site name.
func SiteName() string {
	mu.RLock()
	defer mu.RUnlock()
	return siteName
}

// New creates the BaseVM for a page.
func New(r *http.Request, title string) BaseVM {
	return BaseVM{
		SiteName:    SiteName(),
		Title:       title,
		CurrentPath: httpnav.CurrentPath(r),
		CSRFToken:   csrf.Token(r),
		Year:        time.Now().Year(),
	}
}
