package checksvc

import (
	"context"
	"fmt"
	"time"

	"github.com/delimatsuo/headhunter-sub005/internal/batch"
)

// DemoRequest shapes the synthetic batch run.
type DemoRequest struct {
	Items         int           `json:"items"`
	MaxConcurrent int           `json:"maxConcurrent,omitempty"`
	Sleep         time.Duration `json:"sleep,omitempty"`
	// FailEvery makes every n-th item (1-based) fail. 0 disables failures.
	FailEvery     int           `json:"failEvery,omitempty"`
	RatePerSecond float64       `json:"ratePerSecond,omitempty"`
	ItemTimeout   time.Duration `json:"itemTimeout,omitempty"`
}

// DemoWorker sleeps for d and returns item*2, failing every failEvery-th item.
func DemoWorker(d time.Duration, failEvery int) batch.Func[int, int] {
	return func(ctx context.Context, item int) (int, error) {
		if d > 0 {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-t.C:
			}
		}
		if failEvery > 0 && (item+1)%failEvery == 0 {
			return 0, fmt.Errorf("item %d: simulated failure", item)
		}
		return item * 2, nil
	}
}

// BatchDemo runs DemoWorker over 0..Items-1 through the batch processor.
func (s *Service) BatchDemo(ctx context.Context, req DemoRequest) batch.Result[int] {
	bc := s.cfg.Batch
	opts := batch.Options{
		MaxConcurrent: req.MaxConcurrent,
		RatePerSecond: req.RatePerSecond,
		ItemTimeout:   req.ItemTimeout,
		Logger:        s.logger,
	}
	if opts.MaxConcurrent == 0 {
		opts.MaxConcurrent = bc.MaxConcurrent
	}
	if opts.RatePerSecond == 0 {
		opts.RatePerSecond = bc.RatePerSecond
	}
	if opts.ItemTimeout == 0 {
		opts.ItemTimeout = bc.ItemTimeout.D()
	}
	items := make([]int, req.Items)
	for i := range items {
		items[i] = i
	}

	started := time.Now()
	p := batch.NewFromOptions[int, int](opts)
	res := p.ProcessBatch(ctx, items, DemoWorker(req.Sleep, req.FailEvery))
	summary := fmt.Sprintf("%d processed, %d failed, max concurrent %d", res.ProcessedCount, res.FailedCount, p.MaxConcurrent())
	s.record(ctx, CheckBatch, fmt.Sprintf("%d items", req.Items), res.Success, summary, started, res)
	return res
}
