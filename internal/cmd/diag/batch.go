package diag

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	checksvc "github.com/delimatsuo/headhunter-sub005/internal/services/checks"
)

// newBatchCommand constructs the `batch` command group.
func newBatchCommand(a *app) *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Batch runner diagnostics",
	}
	batchCmd.AddCommand(newBatchDemoCommand(a))
	return batchCmd
}

// newBatchDemoCommand constructs the `batch demo` subcommand.
func newBatchDemoCommand(a *app) *cobra.Command {
	demoCmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a synthetic batch through the bounded-concurrency runner",
		Long: `Runs items 0..N-1 through a worker that sleeps and returns item*2,
with at most --max-concurrent workers in flight. --fail-every M makes every
M-th item fail so error aggregation can be observed.`,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			items, _ := cmd.Flags().GetInt("items")
			maxConc, _ := cmd.Flags().GetInt("max-concurrent")
			sleep, _ := cmd.Flags().GetDuration("sleep")
			failEvery, _ := cmd.Flags().GetInt("fail-every")
			rate, _ := cmd.Flags().GetFloat64("rate")
			timeout, _ := cmd.Flags().GetDuration("item-timeout")
			if items < 0 {
				return fmt.Errorf("--items must not be negative")
			}

			res := a.svc.BatchDemo(cmd.Context(), checksvc.DemoRequest{
				Items:         items,
				MaxConcurrent: maxConc,
				Sleep:         sleep,
				FailEvery:     failEvery,
				RatePerSecond: rate,
				ItemTimeout:   timeout,
			})
			return verdict(cmd, res.Success, res, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "processed %d/%d in %s\n", res.ProcessedCount, len(res.Results), ms(res.Elapsed))
				for _, r := range res.Results {
					if r.Err != nil {
						_, _ = fmt.Fprintf(w, "[%d] error=%v duration=%s\n", r.Index, r.Err, ms(r.Duration))
						continue
					}
					_, _ = fmt.Fprintf(w, "[%d] value=%d duration=%s\n", r.Index, r.Value, ms(r.Duration))
				}
				if res.ErrorMessage != "" {
					_, _ = fmt.Fprintln(w, "error:", res.ErrorMessage)
				}
			})
		}),
	}
	demoCmd.Flags().Int("items", 10, "Number of items")
	demoCmd.Flags().Int("max-concurrent", 0, "Concurrency bound (default from config, 5)")
	demoCmd.Flags().Duration("sleep", 100*time.Millisecond, "Per-item work duration")
	demoCmd.Flags().Int("fail-every", 0, "Fail every M-th item (0 = never)")
	demoCmd.Flags().Float64("rate", 0, "Item starts per second (0 = unlimited)")
	demoCmd.Flags().Duration("item-timeout", 0, "Per-item timeout (0 = none)")
	return demoCmd
}
