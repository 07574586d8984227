package covidapi

import (
	"sync"
	"time"

	"github.com/dalemusser/stratacovid/internal/app/system/certcheck"
)

// ProbeStatus is the latest result of an upstream probe.
type ProbeStatus struct {
	Checked   bool          `json:"checked"`
	Reachable bool          `json:"reachable"`
	CheckedAt time.Time     `json:"checked_at,omitempty"`
	Latency   time.Duration `json:"latency_ns,omitempty"`
	Error     string        `json:"error,omitempty"`

	// Cert is the last TLS certificate check, nil until one has run.
	Cert *certcheck.Info `json:"cert,omitempty"`
}

// Health records probe outcomes for the health endpoints.
// The zero value reports "not checked yet".
type Health struct {
	mu     sync.RWMutex
	status ProbeStatus
	cert   *certcheck.Info
}

// NewHealth returns an empty Health tracker.
func NewHealth() *Health {
	return &Health{}
}

// Record stores the outcome of one probe.
func (h *Health) Record(err error, latency time.Duration, at time.Time) {
	s := ProbeStatus{
		Checked:   true,
		Reachable: err == nil,
		CheckedAt: at,
		Latency:   latency,
	}
	if err != nil {
		s.Error = Describe(err)
	}

	h.mu.Lock()
	h.status = s
	h.mu.Unlock()
}

// RecordCert stores the outcome of one certificate check.
func (h *Health) RecordCert(info certcheck.Info) {
	h.mu.Lock()
	h.cert = &info
	h.mu.Unlock()
}

// Status returns the most recent probe and certificate results.
func (h *Health) Status() ProbeStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := h.status
	if h.cert != nil {
		c := *h.cert
		s.Cert = &c
	}
	return s
}
