package dashstate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dalemusser/stratacovid/internal/app/system/countrystats"
	"github.com/dalemusser/stratacovid/internal/app/system/covidapi"
	"github.com/dalemusser/stratacovid/internal/app/system/normalize"
	"github.com/dalemusser/stratacovid/internal/domain/models"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"
)

// ErrEmptySelection is returned by SelectCountry for an option without a slug.
var ErrEmptySelection = errors.New("country selection has no slug")

// Fetcher is the upstream surface a Controller needs. *covidapi.Client
// satisfies it.
type Fetcher interface {
	FetchSummary(ctx context.Context) ([]models.CountrySummary, error)
	FetchHistory(ctx context.Context, slug string) ([]models.DayCase, error)
}

// ControllerConfig configures new Controllers.
type ControllerConfig struct {
	DefaultSlug string
	Formatter   *countrystats.Formatter
	Now         func() time.Time
}

// Controller runs fetch cycles for one viewer and publishes snapshots.
//
// A cycle fetches the summary, then (when the selected country is present)
// its history. Starting a cycle cancels the previous one; any result that
// still arrives from it carries an old epoch and is discarded by Reduce.
type Controller struct {
	fetcher Fetcher
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	snap     Snapshot
	cancel   context.CancelFunc
	done     chan struct{} // closed when the current cycle ends
	closed   bool
	lastSeen time.Time
}

// NewController returns a Controller in PhaseUninitialized for slug. An
// empty slug falls back to cfg.DefaultSlug, then models.DefaultCountrySlug.
func NewController(f Fetcher, cfg ControllerConfig, slug string, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	format := cfg.Formatter
	if format == nil {
		format = countrystats.MustFormatter("en")
	}

	slug = normalize.Slug(slug)
	if slug == "" {
		slug = normalize.Slug(cfg.DefaultSlug)
	}
	if slug == "" {
		slug = models.DefaultCountrySlug
	}

	return &Controller{
		fetcher:  f,
		logger:   logger,
		now:      now,
		snap:     Snapshot{Phase: PhaseUninitialized, Slug: slug, format: format},
		lastSeen: now(),
	}
}

// Snapshot returns the current snapshot.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Activate starts the first cycle. It reports whether a cycle was started;
// calls after the first are no-ops.
func (c *Controller) Activate() bool {
	c.mu.Lock()
	if c.snap.Phase != PhaseUninitialized || c.closed {
		c.mu.Unlock()
		return false
	}
	c.startLocked(models.CountryOption{Value: c.snap.Slug})
	c.mu.Unlock()
	return true
}

// SelectCountry makes opt the selection and restarts the fetch sequence.
func (c *Controller) SelectCountry(opt models.CountryOption) error {
	opt.Value = normalize.Slug(opt.Value)
	opt.Label = normalize.Label(opt.Label)
	if opt.Value == "" {
		return ErrEmptySelection
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	if opt.Label == "" {
		// Reuse the known label so the selector does not go blank.
		if known, ok := countrystats.FindOption(c.snap.Options, opt.Value); ok {
			opt = known
		}
	}
	c.startLocked(opt)
	return nil
}

// Retry restarts the fetch sequence for the current selection.
func (c *Controller) Retry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	sel := c.snap.Selected
	if sel.IsZero() {
		sel = models.CountryOption{Value: c.snap.Slug}
	}
	c.startLocked(sel)
}

// Settled waits until no cycle is in flight or ctx is done.
func (c *Controller) Settled(ctx context.Context) error {
	for {
		c.mu.Lock()
		done := c.done
		c.mu.Unlock()
		if done == nil {
			return nil
		}
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}

		c.mu.Lock()
		same := c.done == done
		c.mu.Unlock()
		if same {
			return nil
		}
	}
}

// Close cancels any in-flight cycle. Later calls that would start a cycle
// are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Touch records viewer activity.
func (c *Controller) Touch() {
	c.mu.Lock()
	c.lastSeen = c.now()
	c.mu.Unlock()
}

// LastSeen returns the time of the last recorded activity.
func (c *Controller) LastSeen() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// startLocked opens a new cycle. c.mu must be held.
func (c *Controller) startLocked(sel models.CountryOption) {
	if c.cancel != nil {
		c.cancel()
	}

	epoch := c.snap.Epoch + 1
	cycleID := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	next, _ := Reduce(c.snap, Started{Epoch: epoch, CycleID: cycleID, Selection: sel, At: c.now()})
	c.snap = next
	c.cancel = cancel
	c.done = done

	log := c.logger.With(
		zap.Uint64("epoch", epoch),
		zap.String("cycle", cycleID),
		zap.String("slug", sel.Value),
	)
	log.Debug("fetch cycle started")

	go c.run(ctx, cancel, done, epoch, sel.Value, log)
}

func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}, epoch uint64, slug string, log *zap.Logger) {
	defer close(done)
	defer cancel()

	stats, err := c.fetcher.FetchSummary(ctx)
	if err != nil && ctx.Err() == nil {
		log.Warn("summary fetch failed", zap.Error(err))
	}
	if !c.dispatch(SummaryLoaded{Epoch: epoch, Stats: stats, Err: err, At: c.now()}, log) || err != nil {
		return
	}

	snap := c.Snapshot()
	if snap.Notice != "" {
		log.Info("selected country not in summary", zap.Int("countries", len(snap.Stats)))
	}
	if !snap.ChartPending {
		return
	}

	points, err := c.history(ctx, slug)
	if err != nil && ctx.Err() == nil {
		log.Warn("history fetch failed", zap.Error(err))
	}
	if c.dispatch(HistoryLoaded{Epoch: epoch, Points: points, Err: err, At: c.now()}, log) && err == nil {
		if countrystats.SpansMultipleYears(points) {
			log.Warn("chart series spans more than one year; day - month labels repeat",
				zap.Int("points", len(points)))
		}
		log.Debug("fetch cycle finished", zap.Int("points", len(points)))
	}
}

func (c *Controller) history(ctx context.Context, slug string) ([]models.ChartPoint, error) {
	days, err := c.fetcher.FetchHistory(ctx, slug)
	if err != nil {
		return nil, err
	}
	points, err := countrystats.BuildChart(days)
	if err != nil {
		return nil, goerr.Wrap(fmt.Errorf("%w: %w", covidapi.ErrMalformed, err),
			"build chart series", goerr.V("slug", slug))
	}
	return points, nil
}

// dispatch reduces ev into the current snapshot and reports whether it was
// applied.
func (c *Controller) dispatch(ev Event, log *zap.Logger) bool {
	c.mu.Lock()
	next, applied := Reduce(c.snap, ev)
	if applied {
		c.snap = next
	}
	c.mu.Unlock()

	if !applied {
		log.Debug("discarding result of superseded cycle", zap.Uint64("current_epoch", c.Snapshot().Epoch))
	}
	return applied
}
