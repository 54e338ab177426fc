package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/delimatsuo/headhunter-sub005/pkg/log"
)

// DefaultMaxConcurrent is used when no concurrency limit is configured.
const DefaultMaxConcurrent = 5

// ErrNoWorker is reported when ProcessBatch is called without a worker.
var ErrNoWorker = errors.New("batch: no worker function")

// Func processes one item.
type Func[T, R any] func(ctx context.Context, item T) (R, error)

// PanicError records a recovered panic from a worker.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("batch: worker panic: %v", e.Value) }

// ItemResult is the outcome for items[Index].
type ItemResult[R any] struct {
	Index    int           `json:"index"`
	Value    R             `json:"value"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// OK reports whether the item succeeded.
func (r ItemResult[R]) OK() bool { return r.Err == nil }

// Result aggregates a whole batch. Results[i] corresponds to items[i].
type Result[R any] struct {
	Success bool `json:"success"`
	// ProcessedCount counts items that completed without error.
	ProcessedCount int             `json:"processedCount"`
	FailedCount    int             `json:"failedCount"`
	Results        []ItemResult[R] `json:"results"`
	ErrorMessage   string          `json:"errorMessage,omitempty"`
	Elapsed        time.Duration   `json:"elapsed"`
}

// Options configures a Processor.
type Options struct {
	// MaxConcurrent bounds in-flight worker calls. Values below 1 become 1;
	// zero means DefaultMaxConcurrent.
	MaxConcurrent int
	// RatePerSecond paces worker starts. Zero disables pacing.
	RatePerSecond float64
	// ItemTimeout bounds the context handed to each worker call.
	ItemTimeout time.Duration
	Logger      log.Logger
}

// Option mutates Options.
type Option func(*Options)

// WithMaxConcurrent sets the concurrency bound.
func WithMaxConcurrent(n int) Option { return func(o *Options) { o.MaxConcurrent = n } }

// WithRate paces worker starts to perSecond.
func WithRate(perSecond float64) Option { return func(o *Options) { o.RatePerSecond = perSecond } }

// WithItemTimeout sets a per-item deadline.
func WithItemTimeout(d time.Duration) Option { return func(o *Options) { o.ItemTimeout = d } }

// WithLogger sets the logger used for per-item debug lines and the summary.
func WithLogger(l log.Logger) Option { return func(o *Options) { o.Logger = l } }

// Processor runs a worker over a slice of items with bounded concurrency.
// A Processor is safe for concurrent use; each ProcessBatch call has its
// own concurrency budget while the rate limiter is shared.
type Processor[T, R any] struct {
	maxConcurrent int
	itemTimeout   time.Duration
	limiter       *rate.Limiter
	logger        log.Logger
}

// New builds a Processor.
func New[T, R any](opts ...Option) *Processor[T, R] {
	o := Options{MaxConcurrent: DefaultMaxConcurrent}
	for _, opt := range opts {
		opt(&o)
	}
	if o.MaxConcurrent < 1 {
		o.MaxConcurrent = 1
	}
	p := &Processor[T, R]{
		maxConcurrent: o.MaxConcurrent,
		itemTimeout:   o.ItemTimeout,
		logger:        o.Logger,
	}
	if o.RatePerSecond > 0 {
		burst := int(o.RatePerSecond)
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(o.RatePerSecond), burst)
	}
	if p.logger == nil {
		p.logger = log.NewLogger(log.WithOutput(log.NullOutput{}))
	}
	p.logger = p.logger.WithComponent("batch")
	return p
}

// NewFromOptions builds a Processor from a populated Options value. A zero
// MaxConcurrent keeps DefaultMaxConcurrent.
func NewFromOptions[T, R any](o Options) *Processor[T, R] {
	if o.MaxConcurrent == 0 {
		o.MaxConcurrent = DefaultMaxConcurrent
	}
	return New[T, R](
		WithMaxConcurrent(o.MaxConcurrent),
		WithRate(o.RatePerSecond),
		WithItemTimeout(o.ItemTimeout),
		WithLogger(o.Logger),
	)
}

// MaxConcurrent returns the effective concurrency bound.
func (p *Processor[T, R]) MaxConcurrent() int { return p.maxConcurrent }

// ProcessBatch runs fn over items. Failures are recorded per item and never
// cancel siblings. When ctx is cancelled, items that have not started are
// recorded as failed with ctx.Err() without calling fn, and ProcessBatch
// returns once in-flight calls finish.
func (p *Processor[T, R]) ProcessBatch(ctx context.Context, items []T, fn Func[T, R]) Result[R] {
	start := time.Now()
	res := Result[R]{Results: make([]ItemResult[R], len(items))}

	if fn == nil {
		for i := range res.Results {
			res.Results[i] = ItemResult[R]{Index: i, Err: ErrNoWorker}
		}
		res.FailedCount = len(items)
		res.ErrorMessage = ErrNoWorker.Error()
		res.Elapsed = time.Since(start)
		return res
	}

	var g errgroup.Group
	g.SetLimit(p.maxConcurrent)
	for i := range items {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(items); j++ {
				res.Results[j] = ItemResult[R]{Index: j, Err: err}
			}
			break
		}
		g.Go(func() error {
			res.Results[i] = p.runOne(ctx, i, items[i], fn)
			return nil
		})
	}
	_ = g.Wait()

	var firstErr error
	for i, r := range res.Results {
		if r.Err != nil {
			res.Results[i].Error = r.Err.Error()
			res.FailedCount++
			if firstErr == nil {
				firstErr = r.Err
			}
			continue
		}
		res.ProcessedCount++
	}
	res.Success = res.FailedCount == 0
	if !res.Success {
		res.ErrorMessage = fmt.Sprintf("%d of %d items failed: %v", res.FailedCount, len(items), firstErr)
	}
	res.Elapsed = time.Since(start)

	p.logger.Debug("batch finished",
		log.Int("items", len(items)),
		log.Int("processed", res.ProcessedCount),
		log.Int("failed", res.FailedCount),
		log.Dur("elapsed", res.Elapsed),
	)
	return res
}

func (p *Processor[T, R]) runOne(ctx context.Context, idx int, item T, fn Func[T, R]) (out ItemResult[R]) {
	out.Index = idx
	started := time.Now()
	defer func() { out.Duration = time.Since(started) }()

	// a slot may free up after cancellation
	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			out.Err = err
			return out
		}
	}

	ictx := ctx
	if p.itemTimeout > 0 {
		var cancel context.CancelFunc
		ictx, cancel = context.WithTimeout(ctx, p.itemTimeout)
		defer cancel()
	}
	out.Value, out.Err = call(ictx, item, fn)
	if out.Err != nil {
		p.logger.Debug("item failed", log.Int("index", idx), log.Err(out.Err))
	}
	return out
}

func call[T, R any](ctx context.Context, item T, fn Func[T, R]) (v R, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &PanicError{Value: rec, Stack: debug.Stack()}
		}
	}()
	return fn(ctx, item)
}
