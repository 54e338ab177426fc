// Package batch runs a worker function over a slice of items with a bounded
// number of concurrent calls and aggregates per-item outcomes.
//
//	p := batch.New[int, int](batch.WithMaxConcurrent(3))
//	res := p.ProcessBatch(ctx, []int{1, 2, 3}, func(ctx context.Context, n int) (int, error) {
//	    return n * 2, nil
//	})
//	if !res.Success {
//	    fmt.Println(res.ErrorMessage) // "1 of 3 items failed: ..."
//	}
//
// Results are index-aligned with the input. A failing or panicking item never
// cancels its siblings; cancelling ctx stops items that have not yet started.
package batch
