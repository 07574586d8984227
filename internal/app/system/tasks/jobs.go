// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"crypto/tls"
	"errors"
	"time"

	"github.com/dalemusser/stratacovid/internal/app/system/certcheck"
	"github.com/dalemusser/stratacovid/internal/app/system/covidapi"
	"github.com/dalemusser/stratacovid/internal/app/system/dashstate"
	"github.com/dalemusser/stratacovid/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Job names.
const (
	ViewerEvictionJobName = "viewer-eviction"
	UpstreamProbeJobName  = "upstream-probe"
	UpstreamCertJobName   = "upstream-cert"
)

// ViewerEvictionJob closes dashboard controllers whose viewers have been
// idle for longer than maxIdle.
func ViewerEvictionJob(reg *dashstate.Registry, maxIdle, interval time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     ViewerEvictionJobName,
		Interval: interval,
		Run: func(ctx context.Context) error {
			if n := reg.EvictIdle(maxIdle); n > 0 {
				logger.Info("evicted idle viewers",
					zap.Int("evicted", n),
					zap.Int("remaining", reg.Len()))
			}
			return nil
		},
	}
}

// Prober is the upstream reachability check. *covidapi.Client satisfies it.
type Prober interface {
	Probe(ctx context.Context) error
}

// UpstreamProbeJob checks that the statistics API answers and records the
// result in health. A failed probe is recorded, not returned, so the runner
// does not log it twice.
func UpstreamProbeJob(p Prober, health *covidapi.Health, interval time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     UpstreamProbeJobName,
		Interval: interval,
		Run: func(ctx context.Context) error {
			pctx, cancel := timeouts.WithTimeout(ctx, timeouts.Probe(), logger, "upstream probe")
			defer cancel()

			start := time.Now()
			err := p.Probe(pctx)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			health.Record(err, time.Since(start), time.Now())
			if err != nil {
				logger.Warn("upstream probe failed", zap.Error(err))
			}
			return nil
		},
	}
}

// UpstreamCertJob checks the TLS certificate of the statistics API host and
// records it in health. A plain http base URL makes the job a no-op. cfg may
// be nil to use the system roots.
func UpstreamCertJob(baseURL string, cfg *tls.Config, health *covidapi.Health, interval time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     UpstreamCertJobName,
		Interval: interval,
		Run: func(ctx context.Context) error {
			cctx, cancel := timeouts.WithTimeout(ctx, timeouts.Probe(), logger, "upstream cert check")
			defer cancel()

			info, err := certcheck.Check(cctx, baseURL, cfg, time.Now())
			if errors.Is(err, certcheck.ErrNotTLS) {
				return nil
			}
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			health.RecordCert(info)

			switch info.State() {
			case "invalid":
				logger.Warn("upstream certificate invalid",
					zap.String("host", info.Host),
					zap.String("error", info.Error))
			case "expiring":
				logger.Warn("upstream certificate expiring soon",
					zap.String("host", info.Host),
					zap.Time("expires_at", info.ExpiresAt),
					zap.Int("days_left", info.DaysLeft))
			}
			return nil
		},
	}
}
