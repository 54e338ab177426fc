package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func double(_ context.Context, n int) (int, error) { return n * 2, nil }

func TestProcessBatchAllSucceed(t *testing.T) {
	p := New[int, int](WithMaxConcurrent(3))
	items := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	res := p.ProcessBatch(context.Background(), items, double)

	require.True(t, res.Success)
	assert.Equal(t, 10, res.ProcessedCount)
	assert.Equal(t, 0, res.FailedCount)
	assert.Empty(t, res.ErrorMessage)
	require.Len(t, res.Results, len(items))
	for i, r := range res.Results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, items[i]*2, r.Value)
		assert.NoError(t, r.Err)
	}
}

func TestProcessBatchBoundsConcurrency(t *testing.T) {
	const limit = 3
	var inFlight, peak int32
	fn := func(ctx context.Context, n int) (int, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return n, nil
	}
	items := make([]int, 20)
	res := New[int, int](WithMaxConcurrent(limit)).ProcessBatch(context.Background(), items, fn)
	require.True(t, res.Success)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(limit))
	assert.Greater(t, atomic.LoadInt32(&peak), int32(1))
}

func TestProcessBatchPartialFailure(t *testing.T) {
	boom := errors.New("boom")
	fn := func(_ context.Context, n int) (int, error) {
		if n%3 == 2 {
			return 0, fmt.Errorf("item %d: %w", n, boom)
		}
		return n, nil
	}
	res := New[int, int]().ProcessBatch(context.Background(), []int{0, 1, 2, 3, 4, 5}, fn)

	assert.False(t, res.Success)
	assert.Equal(t, 4, res.ProcessedCount)
	assert.Equal(t, 2, res.FailedCount)
	assert.Equal(t, "2 of 6 items failed: item 2: boom", res.ErrorMessage)
	assert.ErrorIs(t, res.Results[5].Err, boom)
	assert.Equal(t, 4, res.Results[4].Value)
}

func TestItemErrorSurvivesJSON(t *testing.T) {
	fn := func(_ context.Context, n int) (int, error) {
		if n == 1 {
			return 0, errors.New("boom")
		}
		return n, nil
	}
	res := New[int, int]().ProcessBatch(context.Background(), []int{0, 1}, fn)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	var decoded Result[int]
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Len(t, decoded.Results, 2)
	assert.Empty(t, decoded.Results[0].Error)
	assert.Equal(t, "boom", decoded.Results[1].Error)
}

func TestProcessBatchRecoversPanic(t *testing.T) {
	fn := func(_ context.Context, n int) (int, error) {
		if n == 1 {
			panic("kaboom")
		}
		return n, nil
	}
	res := New[int, int]().ProcessBatch(context.Background(), []int{0, 1, 2}, fn)
	assert.Equal(t, 1, res.FailedCount)
	var pe *PanicError
	require.ErrorAs(t, res.Results[1].Err, &pe)
	assert.Equal(t, "kaboom", pe.Value)
	assert.NotEmpty(t, pe.Stack)
}

func TestProcessBatchEmpty(t *testing.T) {
	res := New[int, int]().ProcessBatch(context.Background(), nil, double)
	assert.True(t, res.Success)
	assert.Zero(t, res.ProcessedCount)
	assert.Zero(t, res.FailedCount)
	assert.Empty(t, res.Results)
}

func TestProcessBatchNilWorker(t *testing.T) {
	res := New[int, int]().ProcessBatch(context.Background(), []int{1, 2}, nil)
	assert.False(t, res.Success)
	assert.Equal(t, 2, res.FailedCount)
	assert.Equal(t, ErrNoWorker.Error(), res.ErrorMessage)
	assert.ErrorIs(t, res.Results[0].Err, ErrNoWorker)
}

func TestProcessBatchCancelSkipsUnstarted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int32
	release := make(chan struct{})
	fn := func(ctx context.Context, n int) (int, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			cancel()
		}
		<-release
		return n, nil
	}
	done := make(chan Result[int])
	go func() {
		done <- New[int, int](WithMaxConcurrent(1)).ProcessBatch(ctx, []int{0, 1, 2, 3}, fn)
	}()
	time.Sleep(10 * time.Millisecond)
	close(release)
	res := <-done

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, res.ProcessedCount)
	assert.Equal(t, 3, res.FailedCount)
	for _, r := range res.Results[1:] {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
	assert.Equal(t, res.ProcessedCount+res.FailedCount, len(res.Results))
}

func TestProcessBatchItemTimeout(t *testing.T) {
	fn := func(ctx context.Context, n int) (int, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(time.Second):
			return n, nil
		}
	}
	res := New[int, int](WithItemTimeout(10*time.Millisecond)).ProcessBatch(context.Background(), []int{1}, fn)
	assert.ErrorIs(t, res.Results[0].Err, context.DeadlineExceeded)
}

func TestProcessBatchRatePacing(t *testing.T) {
	p := New[int, int](WithMaxConcurrent(10), WithRate(50))
	items := make([]int, 60)
	start := time.Now()
	res := p.ProcessBatch(context.Background(), items, double)
	require.True(t, res.Success)
	// 50 burst, then 10 more at 50/s ~ 200ms
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestNewClampsConcurrency(t *testing.T) {
	assert.Equal(t, DefaultMaxConcurrent, New[int, int]().MaxConcurrent())
	assert.Equal(t, 1, New[int, int](WithMaxConcurrent(0)).MaxConcurrent())
	assert.Equal(t, 1, New[int, int](WithMaxConcurrent(-4)).MaxConcurrent())
	assert.Equal(t, 7, NewFromOptions[int, int](Options{MaxConcurrent: 7}).MaxConcurrent())
}
