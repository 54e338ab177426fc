package diag

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/delimatsuo/headhunter-sub005/internal/config"
	"github.com/delimatsuo/headhunter-sub005/internal/history"
)

// newHistoryCommand constructs the `history` command group.
func newHistoryCommand(a *app) *cobra.Command {
	histCmd := &cobra.Command{
		Use:   "history",
		Short: "Recorded check runs",
	}
	histCmd.AddCommand(newHistoryListCommand(a), newHistoryPruneCommand(a))
	return histCmd
}

// newHistoryListCommand constructs the `history list` subcommand.
func newHistoryListCommand(a *app) *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			check, _ := cmd.Flags().GetString("check")
			limit, _ := cmd.Flags().GetInt("limit")
			entries, _, err := a.svc.History(check, limit, history.Token{})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, map[string]any{"runs": entries})
			}
			for _, e := range entries {
				status := "ok"
				if !e.OK {
					status = "FAIL"
				}
				_, _ = fmt.Fprintf(out, "%s  %-10s %-4s %-30s %s (%s)\n",
					e.StartedAt.Local().Format(time.DateTime), e.Check, status, e.Target, e.Summary, ms(e.Duration))
			}
			return nil
		}),
	}
	listCmd.Flags().String("check", "", "Only runs of this check")
	listCmd.Flags().Int("limit", 20, "Maximum runs")
	return listCmd
}

// newHistoryPruneCommand constructs the `history prune` subcommand.
func newHistoryPruneCommand(a *app) *cobra.Command {
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs older than a given age",
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			raw, _ := cmd.Flags().GetString("older-than")
			age, err := config.ParseDuration(raw)
			if err != nil {
				return err
			}
			n, err := a.svc.Prune(cmd.Context(), age)
			if err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), map[string]int{"removed": n})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %d runs\n", n)
			return nil
		}),
	}
	pruneCmd.Flags().String("older-than", "30d", "Age, e.g. 72h or 30d")
	return pruneCmd
}
