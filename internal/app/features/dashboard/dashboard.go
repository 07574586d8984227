// internal/app/features/dashboard/dashboard.go
package dashboard

import (
	"errors"
	"net/http"

	"github.com/dalemusser/stratacovid/internal/app/system/countrystats"
	"github.com/dalemusser/stratacovid/internal/app/system/dashstate"
	"github.com/dalemusser/stratacovid/internal/app/system/inputval"
	"github.com/dalemusser/stratacovid/internal/app/system/normalize"
	"github.com/dalemusser/stratacovid/internal/app/system/viewdata"
	"github.com/dalemusser/stratacovid/internal/app/system/viewer"
	"github.com/dalemusser/stratacovid/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// PollInterval is how often the page refreshes the panel while a fetch
// cycle is in flight.
const PollInterval = 1500 // milliseconds

var errNoViewer = errors.New("request has no viewer")

// Handler provides the dashboard pages.
type Handler struct {
	registry *dashstate.Registry
	viewers  *viewer.Manager
	format   *countrystats.Formatter
	logger   *zap.Logger
}

// NewHandler creates a new dashboard Handler.
func NewHandler(registry *dashstate.Registry, viewers *viewer.Manager, format *countrystats.Formatter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if format == nil {
		format = countrystats.MustFormatter("en")
	}
	return &Handler{
		registry: registry,
		viewers:  viewers,
		format:   format,
		logger:   logger,
	}
}

// DashboardVM is the view model for the dashboard page and its panel.
type DashboardVM struct {
	viewdata.BaseVM
	dashstate.View

	SelectedLabel string
	Poll          bool
	PollMS        int
	Graph         Graph
}

// Routes returns a chi.Router with the dashboard routes mounted.
// The POST routes expect CSRF protection from the caller's middleware.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.show)
	r.Get("/panel", h.panel)
	r.Post("/select", h.selectCountry)
	r.Post("/retry", h.retry)
	return r
}

// controller returns the viewer's controller, or nil for a viewer whose
// session cookie has not come back yet.
func (h *Handler) controller(r *http.Request) (*dashstate.Controller, viewer.Viewer, error) {
	v, ok := viewer.Current(r)
	if !ok {
		return nil, v, errNoViewer
	}
	if v.New {
		return nil, v, nil
	}
	return h.registry.Get(v.ID, v.Slug), v, nil
}

// current returns the snapshot to render, starting the viewer's first fetch
// cycle if needed. New viewers see a loading preview; the page polls the
// panel, and that request (carrying the cookie) starts the cycle.
func (h *Handler) current(r *http.Request) (dashstate.Snapshot, error) {
	c, v, err := h.controller(r)
	if err != nil {
		return dashstate.Snapshot{}, err
	}
	if c == nil {
		return h.registry.Preview(v.Slug), nil
	}
	if c.Activate() {
		h.logger.Debug("dashboard activated",
			zap.String("viewer", v.ID),
			zap.String("slug", c.Snapshot().Slug))
	}
	return c.Snapshot(), nil
}

func (h *Handler) viewModel(r *http.Request, snap dashstate.Snapshot) DashboardVM {
	view := snap.View()
	return DashboardVM{
		BaseVM:        viewdata.New(r, "Dashboard"),
		View:          view,
		SelectedLabel: snap.SelectedLabel(),
		Poll:          view.Loading || view.ChartPending,
		PollMS:        PollInterval,
		Graph:         buildGraph(view.Chart, h.format),
	}
}

// show renders the full dashboard page.
func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	snap, err := h.current(r)
	if err != nil {
		h.logger.Error("dashboard without viewer", zap.Error(err), zap.String("path", r.URL.Path))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	templates.Render(w, r, "dashboard/index", h.viewModel(r, snap))
}

// panel renders the counters and chart fragment the page polls while
// loading.
func (h *Handler) panel(w http.ResponseWriter, r *http.Request) {
	snap, err := h.current(r)
	if err != nil {
		h.logger.Error("dashboard panel without viewer", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	templates.RenderSnippet(w, "dashboard/panel", h.viewModel(r, snap))
}

// selectInput is the selector form.
type selectInput struct {
	Country string `validate:"required,slug,max=100" label:"Country"`
	Label   string `validate:"max=200" label:"Country name"`
}

// selectCountry handles the selector form. The form field "country" holds
// the slug; an optional "label" carries the display name.
func (h *Handler) selectCountry(w http.ResponseWriter, r *http.Request) {
	if _, ok := viewer.Current(r); !ok {
		h.logger.Error("select without viewer", zap.Error(errNoViewer))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	input := selectInput{
		Country: normalize.Slug(r.PostFormValue("country")),
		Label:   normalize.Label(r.PostFormValue("label")),
	}
	if res := inputval.Validate(input); res.HasErrors() {
		// The selector only offers valid slugs; anything else keeps the
		// current selection.
		h.logger.Debug("ignoring invalid selection", zap.String("reason", res.First()))
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	opt := models.CountryOption{Value: input.Country, Label: input.Label}
	c, _, err := h.controller(r)
	if err != nil {
		h.logger.Error("select without viewer", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	// A new viewer's selection is only remembered; the next page load
	// starts on it.
	if c != nil {
		if err := c.SelectCountry(opt); err != nil {
			if errors.Is(err, dashstate.ErrEmptySelection) {
				http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
				return
			}
			h.logger.Error("select country", zap.Error(err), zap.String("slug", opt.Value))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}

	if err := h.viewers.Remember(w, r, opt.Value); err != nil {
		// The selection still applies to this viewer's controller.
		h.logger.Warn("remember selection", zap.Error(err), zap.String("slug", opt.Value))
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// retry restarts the fetch sequence for the current selection.
func (h *Handler) retry(w http.ResponseWriter, r *http.Request) {
	c, _, err := h.controller(r)
	if err != nil {
		h.logger.Error("retry without viewer", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if c != nil {
		c.Retry()
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}
