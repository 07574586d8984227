// internal/app/features/health/health.go
package health

import (
	"net/http"
	"time"

	"github.com/dalemusser/stratacovid/internal/app/system/certcheck"
	"github.com/dalemusser/stratacovid/internal/app/system/covidapi"
	"github.com/dalemusser/stratacovid/internal/app/system/jsonutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProbeSource reports the latest upstream probe. *covidapi.Health satisfies it.
type ProbeSource interface {
	Status() covidapi.ProbeStatus
}

// ViewerCounter reports how many viewers are active. *dashstate.Registry
// satisfies it.
type ViewerCounter interface {
	Len() int
}

// Handler provides health check endpoints.
type Handler struct {
	probe   ProbeSource
	viewers ViewerCounter
	logger  *zap.Logger
}

// NewHandler creates a new health check Handler. viewers may be nil.
func NewHandler(probe ProbeSource, viewers ViewerCounter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{probe: probe, viewers: viewers, logger: logger}
}

// Response represents the health check response.
type Response struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
	Viewers  *int              `json:"viewers,omitempty"`
	Upstream *UpstreamStatus   `json:"upstream,omitempty"`
}

// UpstreamStatus is the probe detail in a full health check.
type UpstreamStatus struct {
	CheckedAt time.Time       `json:"checked_at"`
	LatencyMS int64           `json:"latency_ms"`
	Error     string          `json:"error,omitempty"`
	Cert      *certcheck.Info `json:"cert,omitempty"`
}

// Routes returns a chi.Router with /health (full check), /health/ready,
// and /health/live.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Check)
	r.Get("/ready", h.Ready)
	r.Get("/live", h.Live)
	return r
}

// MountRootEndpoints adds the conventional probe paths to the root router:
// /ready and /readyz for readiness, /livez for liveness.
func MountRootEndpoints(r chi.Router, h *Handler) {
	r.Get("/ready", h.Ready)
	r.Get("/readyz", h.Ready)
	r.Get("/livez", h.Live)
}

// Check reports upstream reachability and the active viewer count. A failed
// probe makes the service "degraded" (503); a probe that has not run yet
// counts as healthy.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	resp := Response{
		Status:   "ok",
		Services: make(map[string]string),
	}

	s := h.probe.Status()
	switch {
	case !s.Checked:
		resp.Services["upstream"] = "pending"
	case s.Reachable:
		resp.Services["upstream"] = "ok"
	default:
		resp.Status = "degraded"
		resp.Services["upstream"] = "unavailable"
		h.logger.Warn("health check: upstream probe failing",
			zap.String("error", s.Error),
			zap.Time("checked_at", s.CheckedAt))
	}
	if s.Checked {
		resp.Upstream = &UpstreamStatus{
			CheckedAt: s.CheckedAt,
			LatencyMS: s.Latency.Milliseconds(),
			Error:     s.Error,
		}
	}
	// Certificate state is informational; an invalid certificate already
	// shows up as a failed probe.
	if s.Cert != nil {
		resp.Services["upstream_tls"] = s.Cert.State()
		if resp.Upstream == nil {
			resp.Upstream = &UpstreamStatus{}
		}
		resp.Upstream.Cert = s.Cert
	}
	if h.viewers != nil {
		n := h.viewers.Len()
		resp.Viewers = &n
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	jsonutil.JSON(w, status, resp)
}

// Ready reports whether the service can serve dashboards, i.e. the last
// upstream probe did not fail.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if s := h.probe.Status(); s.Checked && !s.Reachable {
		h.logger.Warn("readiness check failed", zap.String("error", s.Error))
		jsonutil.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	jsonutil.OK(w, map[string]string{"status": "ready"})
}

// Live reports that the process is up.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	jsonutil.OK(w, map[string]string{"status": "alive"})
}
