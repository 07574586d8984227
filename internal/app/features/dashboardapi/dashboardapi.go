// Package dashboardapi serves the dashboard state as JSON.
//
// Every endpoint works on the calling viewer's controller. GET endpoints
// accept ?wait=1 to hold the response until the current fetch cycle
// settles (bounded by the settle timeout); a response that is still
// loading is sent with 202 Accepted. A viewer seen for the first time gets
// placeholders with 202 until its session cookie comes back. POST bodies
// must be application/json.
package dashboardapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	errorsfeature "github.com/dalemusser/stratacovid/internal/app/features/errors"
	"github.com/dalemusser/stratacovid/internal/app/system/dashstate"
	"github.com/dalemusser/stratacovid/internal/app/system/inputval"
	"github.com/dalemusser/stratacovid/internal/app/system/jsonutil"
	"github.com/dalemusser/stratacovid/internal/app/system/ledger"
	"github.com/dalemusser/stratacovid/internal/app/system/normalize"
	"github.com/dalemusser/stratacovid/internal/app/system/timeouts"
	"github.com/dalemusser/stratacovid/internal/app/system/viewer"
	"github.com/dalemusser/stratacovid/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var errNoViewer = errors.New("request has no viewer")

// Handler serves the dashboard API.
type Handler struct {
	registry *dashstate.Registry
	viewers  *viewer.Manager
	errLog   *errorsfeature.ErrorLogger
	settle   time.Duration
	logger   *zap.Logger
}

// NewHandler creates a new dashboard API Handler. A non-positive settle
// uses timeouts.Settle().
func NewHandler(registry *dashstate.Registry, viewers *viewer.Manager, errLog *errorsfeature.ErrorLogger, settle time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if errLog == nil {
		errLog = errorsfeature.NewErrorLogger(logger)
	}
	if settle <= 0 {
		settle = timeouts.Settle()
	}
	return &Handler{
		registry: registry,
		viewers:  viewers,
		errLog:   errLog,
		settle:   settle,
		logger:   logger,
	}
}

// Routes returns a chi.Router with the API routes mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.state)
	r.Get("/chart", h.chart)
	r.Get("/countries", h.countries)
	r.Post("/select", h.selectCountry)
	r.Post("/retry", h.retry)
	return r
}

// SelectRequest is the body of POST /select.
type SelectRequest struct {
	Value string `json:"value" validate:"required,slug,max=100" label:"Country"`
	Label string `json:"label" validate:"max=200" label:"Country name"`
}

// controller returns the viewer's controller without starting a cycle. It
// returns nil for a viewer whose session cookie has not come back yet;
// those requests are answered from a preview so clients that drop cookies
// never register state or reach the upstream API.
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

func (h *Handler) noViewer(w http.ResponseWriter, r *http.Request, err error) {
	h.errLog.Log(r, "dashboard api without viewer", err)
	ledger.SetError(r.Context(), "session", err.Error())
	jsonutil.InternalError(w, "no viewer session")
}

// snapshot returns the viewer's snapshot, starting the first cycle and
// waiting for it to settle when the request asks for it.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) (dashstate.Snapshot, bool) {
	c, v, err := h.controller(r)
	if err != nil {
		h.noViewer(w, r, err)
		return dashstate.Snapshot{}, false
	}
	if c == nil {
		return h.registry.Preview(v.Slug), true
	}
	c.Activate()
	if normalize.Flag(r.URL.Query().Get("wait")) {
		h.wait(r, c)
	}
	return c.Snapshot(), true
}

func (h *Handler) wait(r *http.Request, c *dashstate.Controller) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), h.settle, h.logger, "settle dashboard")
	defer cancel()
	if err := c.Settled(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) && r.Context().Err() == nil {
		h.logger.Debug("settle wait ended early", zap.Error(err))
	}
}

func respond(w http.ResponseWriter, s dashstate.Snapshot, data any) {
	if s.Loading() {
		jsonutil.Accepted(w, data)
		return
	}
	jsonutil.OK(w, data)
}

// state returns the full dashboard view.
func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	s, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	respond(w, s, s.View())
}

// chart returns the chart series as [{label, value}].
func (h *Handler) chart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	series := s.ChartSeries()
	if series == nil {
		series = []models.ChartDatum{}
	}
	respond(w, s, series)
}

// countries returns the selector options as [{value, label}].
func (h *Handler) countries(w http.ResponseWriter, r *http.Request) {
	s, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	options := s.CountryList()
	if options == nil {
		options = []models.CountryOption{}
	}
	respond(w, s, options)
}

// selectCountry changes the viewer's selection and restarts the fetch cycle.
// A new viewer only has the selection remembered; its cycle starts once the
// session cookie comes back.
func (h *Handler) selectCountry(w http.ResponseWriter, r *http.Request) {
	if _, ok := viewer.Current(r); !ok {
		h.noViewer(w, r, errNoViewer)
		return
	}

	var req SelectRequest
	if err := jsonutil.Decode(w, r, &req); err != nil {
		ledger.SetError(r.Context(), "decode", err.Error())
		if errors.Is(err, jsonutil.ErrContentType) {
			jsonutil.UnsupportedMediaType(w, err.Error())
			return
		}
		jsonutil.BadRequest(w, err.Error())
		return
	}
	req.Value = normalize.Slug(req.Value)
	req.Label = normalize.Label(req.Label)
	if res := inputval.Validate(req); res.HasErrors() {
		ledger.SetError(r.Context(), "validation", res.First())
		jsonutil.BadRequest(w, res.First())
		return
	}
	opt := models.CountryOption{Value: req.Value, Label: req.Label}

	c, _, err := h.controller(r)
	if err != nil {
		h.noViewer(w, r, err)
		return
	}
	if c != nil {
		if err := c.SelectCountry(opt); err != nil {
			if errors.Is(err, dashstate.ErrEmptySelection) {
				jsonutil.BadRequest(w, "value is required")
				return
			}
			h.errLog.Log(r, "select country", err)
			jsonutil.InternalError(w, "selection failed")
			return
		}
	}

	if err := h.viewers.Remember(w, r, opt.Value); err != nil {
		h.logger.Warn("remember selection", zap.Error(err))
	}
	if c == nil {
		s := h.registry.Preview(opt.Value)
		respond(w, s, s.View())
		return
	}
	if normalize.Flag(r.URL.Query().Get("wait")) {
		h.wait(r, c)
	}
	s := c.Snapshot()
	respond(w, s, s.View())
}

// retry restarts the fetch cycle for the current selection.
func (h *Handler) retry(w http.ResponseWriter, r *http.Request) {
	c, v, err := h.controller(r)
	if err != nil {
		h.noViewer(w, r, err)
		return
	}
	if c == nil {
		s := h.registry.Preview(v.Slug)
		respond(w, s, s.View())
		return
	}
	c.Retry()
	if normalize.Flag(r.URL.Query().Get("wait")) {
		h.wait(r, c)
	}
	s := c.Snapshot()
	respond(w, s, s.View())
}
