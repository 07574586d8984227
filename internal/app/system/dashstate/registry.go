package dashstate

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry keeps one Controller per viewer.
//
// When limit is positive the registry holds at most limit Controllers;
// registering one more closes the least recently seen.
type Registry struct {
	fetcher Fetcher
	cfg     ControllerConfig
	limit   int
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	viewers map[string]*Controller
}

// NewRegistry returns an empty Registry whose Controllers share fetcher and
// cfg. A non-positive limit leaves the registry unbounded.
func NewRegistry(fetcher Fetcher, cfg ControllerConfig, limit int, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{
		fetcher: fetcher,
		cfg:     cfg,
		limit:   limit,
		logger:  logger,
		now:     now,
		viewers: make(map[string]*Controller),
	}
}

// Get returns the viewer's Controller, creating it on slug (or the default
// country) when the viewer is new. The Controller is marked as seen.
func (r *Registry) Get(viewerID, slug string) *Controller {
	r.mu.Lock()
	c, ok := r.viewers[viewerID]
	var evicted *Controller
	if !ok {
		if r.limit > 0 && len(r.viewers) >= r.limit {
			evicted = r.evictOldestLocked()
		}
		c = NewController(r.fetcher, r.cfg, slug, r.logger.With(zap.String("viewer", viewerID)))
		r.viewers[viewerID] = c
	}
	r.mu.Unlock()

	if evicted != nil {
		evicted.Close()
		r.logger.Debug("viewer limit reached; evicted least recently seen", zap.Int("limit", r.limit))
	}
	if !ok {
		r.logger.Debug("viewer registered", zap.String("viewer", viewerID), zap.String("slug", c.Snapshot().Slug))
	}
	c.Touch()
	return c
}

// evictOldestLocked removes the least recently seen Controller and returns
// it for the caller to close. r.mu must be held.
func (r *Registry) evictOldestLocked() *Controller {
	var (
		oldestID string
		oldest   *Controller
		seen     time.Time
	)
	for id, c := range r.viewers {
		if t := c.LastSeen(); oldest == nil || t.Before(seen) {
			oldestID, oldest, seen = id, c, t
		}
	}
	if oldest != nil {
		delete(r.viewers, oldestID)
	}
	return oldest
}

// Preview returns the snapshot a new viewer on slug would start from,
// without registering a Controller or fetching anything.
func (r *Registry) Preview(slug string) Snapshot {
	return NewController(r.fetcher, r.cfg, slug, r.logger).Snapshot()
}

// Lookup returns the viewer's Controller without creating one.
func (r *Registry) Lookup(viewerID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.viewers[viewerID]
	return c, ok
}

// Len returns the number of registered viewers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.viewers)
}

// EvictIdle closes and removes Controllers not seen for longer than maxIdle.
// It returns the number removed.
func (r *Registry) EvictIdle(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	var idle []*Controller
	for id, c := range r.viewers {
		if c.LastSeen().Before(cutoff) {
			idle = append(idle, c)
			delete(r.viewers, id)
		}
	}
	r.mu.Unlock()

	for _, c := range idle {
		c.Close()
	}
	return len(idle)
}

// Close closes every Controller and empties the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	viewers := r.viewers
	r.viewers = make(map[string]*Controller)
	r.mu.Unlock()

	for _, c := range viewers {
		c.Close()
	}
}
