// Package refresh recomputes order read models on a pull schedule.
//
// A Refresher polls the open orders every interval and recomputes those
// whose cache entry is missing or stale. Orders whose last computation
// failed are skipped by polling; only an explicit Trigger retries them.
// Recomputation runs with bounded concurrency and a rate limit on fetches
// against the event store. Successful results are cached, mirrored when a
// mirror is configured, and persisted through a ProgressWriter, which keeps
// stored progress monotonic.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/roach88/seamline/internal/cache"
	"github.com/roach88/seamline/internal/model"
	"github.com/roach88/seamline/internal/projection"
)

// Defaults for New.
const (
	DefaultInterval    = 30 * time.Second
	DefaultConcurrency = 4
	DefaultRate        = 10 // fetches per second
)

// Trigger says why a refresh happened.
type Trigger int

const (
	// TriggerPoll is the periodic refresh. It respects cache freshness
	// and failure markers.
	TriggerPoll Trigger = iota + 1
	// TriggerExplicit is a user or caller request. It always recomputes.
	TriggerExplicit
)

func (t Trigger) String() string {
	switch t {
	case TriggerPoll:
		return "poll"
	case TriggerExplicit:
		return "explicit"
	default:
		return fmt.Sprintf("Trigger(%d)", int(t))
	}
}

// Computer produces the read model for one order from a fresh snapshot.
// *projection.Projector satisfies it.
type Computer interface {
	Compute(ctx context.Context, orderID string) (projection.Progress, error)
}

// OrderLister lists the orders polling should cover.
type OrderLister interface {
	ListOpenOrderIDs(ctx context.Context) ([]string, error)
}

// ProgressWriter persists computed progress. *store.Store satisfies it.
type ProgressWriter interface {
	UpdateOrderProgress(ctx context.Context, id string, percent int, processName string) (bool, error)
}

// Mirror publishes cache entries elsewhere. *cache.RedisMirror satisfies it.
type Mirror interface {
	Publish(ctx context.Context, key string, e cache.Entry[projection.Progress]) error
}

// Refresher keeps a cache of order read models current.
type Refresher struct {
	computer Computer
	lister   OrderLister
	cache    *cache.Cache[projection.Progress]

	writer      ProgressWriter
	mirror      Mirror
	logger      *slog.Logger
	limiter     *rate.Limiter
	interval    time.Duration
	concurrency int
	now         func() time.Time

	queue *triggerQueue
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithWriter persists each successful result.
func WithWriter(w ProgressWriter) Option {
	return func(r *Refresher) { r.writer = w }
}

// WithMirror publishes each cache write.
func WithMirror(m Mirror) Option {
	return func(r *Refresher) { r.mirror = m }
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(r *Refresher) { r.logger = l }
}

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) Option {
	return func(r *Refresher) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithConcurrency caps concurrent recomputations.
func WithConcurrency(n int) Option {
	return func(r *Refresher) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithRateLimit caps snapshot loads per second. perSecond <= 0 disables
// limiting.
func WithRateLimit(perSecond float64) Option {
	return func(r *Refresher) {
		if perSecond <= 0 {
			r.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithClock sets the time source used to stamp triggers.
func WithClock(now func() time.Time) Option {
	return func(r *Refresher) { r.now = now }
}

// New creates a Refresher.
func New(computer Computer, lister OrderLister, c *cache.Cache[projection.Progress], opts ...Option) *Refresher {
	r := &Refresher{
		computer:    computer,
		lister:      lister,
		cache:       c,
		logger:      slog.New(slog.DiscardHandler),
		limiter:     rate.NewLimiter(rate.Limit(DefaultRate), DefaultRate),
		interval:    DefaultInterval,
		concurrency: DefaultConcurrency,
		now:         time.Now,
		queue:       newTriggerQueue(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Cache returns the cache the refresher writes to.
func (r *Refresher) Cache() *cache.Cache[projection.Progress] {
	return r.cache
}

// Refresh recomputes one order now, regardless of cache state.
func (r *Refresher) Refresh(ctx context.Context, orderID string) (projection.Progress, error) {
	return r.refreshOne(ctx, orderID, TriggerExplicit)
}

// RefreshAll recomputes every listed order that is due for the trigger.
// Per-order failures are cached as failure markers and joined into the
// returned error; they do not stop the other orders.
func (r *Refresher) RefreshAll(ctx context.Context, trigger Trigger) error {
	ids, err := r.lister.ListOpenOrderIDs(ctx)
	if err != nil {
		return fmt.Errorf("list open orders: %w", err)
	}

	due := ids[:0:0]
	for _, id := range ids {
		if trigger == TriggerExplicit || r.cache.ShouldAutoRefresh(id) {
			due = append(due, id)
		}
	}
	r.logger.Debug("refresh pass",
		"trigger", trigger.String(),
		"open", len(ids),
		"due", len(due),
	)

	errs := make([]error, len(due))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, id := range due {
		g.Go(func() error {
			if _, err := r.refreshOne(gctx, id, trigger); err != nil {
				errs[i] = fmt.Errorf("order %s: %w", id, err)
			}
			// Never cancel siblings for one order's failure.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

// Trigger queues an explicit refresh of orderID for the Run loop.
// Returns false once the refresher is stopped.
func (r *Refresher) Trigger(orderID string) bool {
	return r.queue.Enqueue(orderID)
}

// Run polls every interval and serves explicit triggers until ctx is
// cancelled or Stop is called. A poll pass runs immediately on start.
//
// Must be called from one goroutine.
func (r *Refresher) Run(ctx context.Context) error {
	r.logger.Info("refresher starting",
		"interval", r.interval.String(),
		"concurrency", r.concurrency,
	)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.poll(ctx)

	for {
		if id, ok := r.queue.TryDequeue(); ok {
			if _, err := r.refreshOne(ctx, id, TriggerExplicit); err != nil && ctx.Err() == nil {
				r.logger.Warn("explicit refresh failed", "order_id", id, "error", err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			r.logger.Info("refresher stopping: context cancelled")
			r.queue.Close()
			return ctx.Err()

		case <-ticker.C:
			r.poll(ctx)

		case <-r.queue.Wait():
			// The signal channel is closed by Stop.
			if r.queue.Len() == 0 && r.stopped() {
				r.logger.Info("refresher stopping: stopped")
				return nil
			}
		}
	}
}

// Stop makes Run return after it drains queued triggers.
func (r *Refresher) Stop() {
	r.queue.Close()
}

func (r *Refresher) stopped() bool {
	r.queue.mu.Lock()
	defer r.queue.mu.Unlock()
	return r.queue.closed
}

func (r *Refresher) poll(ctx context.Context) {
	if err := r.RefreshAll(ctx, TriggerPoll); err != nil && ctx.Err() == nil {
		r.logger.Warn("poll pass had failures", "error", err)
	}
}

func (r *Refresher) refreshOne(ctx context.Context, id string, trigger Trigger) (projection.Progress, error) {
	triggeredAt := r.now()
	start := time.Now()

	if err := r.limiter.Wait(ctx); err != nil {
		return projection.Progress{}, err
	}

	p, err := r.computer.Compute(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return projection.Progress{}, err
		}
		if r.cache.Fail(id, triggeredAt, err) {
			r.publish(ctx, id)
		}
		r.logger.Warn("order refresh failed",
			"order_id", id,
			"trigger", trigger.String(),
			"error", err,
		)
		return projection.Progress{}, err
	}

	if len(p.EstimatedNodes) > 0 {
		r.logger.Warn("sub-process count inferred from scans",
			"order_id", id,
			"nodes", p.EstimatedNodes,
		)
	}

	if !r.cache.Put(id, triggeredAt, p) {
		r.logger.Debug("refresh superseded", "order_id", id)
		return p, nil
	}
	r.publish(ctx, id)

	if r.writer != nil && p.Status != model.OrderCompleted {
		applied, err := r.writer.UpdateOrderProgress(ctx, id, p.Percent, p.CurrentNode)
		if err != nil {
			r.logger.Warn("persist progress failed", "order_id", id, "error", err)
		} else if applied {
			r.logger.Debug("progress persisted", "order_id", id, "percent", p.Percent)
		}
	}

	r.logger.Debug("order refreshed",
		"order_id", id,
		"trigger", trigger.String(),
		"percent", p.Percent,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return p, nil
}

func (r *Refresher) publish(ctx context.Context, id string) {
	if r.mirror == nil {
		return
	}
	e, ok := r.cache.Get(id)
	if !ok {
		return
	}
	if err := r.mirror.Publish(ctx, id, e); err != nil {
		r.logger.Warn("mirror publish failed", "order_id", id, "error", err)
	}
}
