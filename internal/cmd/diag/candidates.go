package diag

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	checksvc "github.com/delimatsuo/headhunter-sub005/internal/services/checks"
)

// newCandidatesCommand constructs the `candidates` command group.
func newCandidatesCommand(a *app) *cobra.Command {
	candCmd := &cobra.Command{
		Use:   "candidates",
		Short: "Candidate record checks",
	}
	candCmd.AddCommand(newCandidatesCheckCommand(a))
	return candCmd
}

// newCandidatesCheckCommand constructs the `candidates check` subcommand.
func newCandidatesCheckCommand(a *app) *cobra.Command {
	checkCmd := &cobra.Command{
		Use:   "check [ids...]",
		Short: "Confirm that known candidate documents exist",
		Long: `Looks up each id in the configured document store and prints
"<id>: exists" or "<id>: missing". Ids come from the arguments, then --ids,
then candidates.ids in the config. Duplicates are checked once.

--expect takes a CEL expression over doc, id and exists, for example:
has(doc.embedding) && size(doc.embedding) == 768`,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			collection, _ := cmd.Flags().GetString("collection")
			ids, _ := cmd.Flags().GetStringSlice("ids")
			expr, _ := cmd.Flags().GetString("expect")
			ids = append(append([]string{}, args...), ids...)

			rep, err := a.svc.Candidates(cmd.Context(), checksvc.CandidatesRequest{
				Collection: collection,
				IDs:        ids,
				Expect:     expr,
			})
			if err != nil {
				return err
			}
			return verdict(cmd, rep.OK(), rep, func(w io.Writer) {
				for _, it := range rep.Items {
					switch it.State() {
					case "error":
						_, _ = fmt.Fprintf(w, "%s: error: %s\n", it.ID, it.Error)
					default:
						_, _ = fmt.Fprintf(w, "%s: %s\n", it.ID, it.State())
					}
				}
				_, _ = fmt.Fprintf(w, "%s/%s: %s\n", rep.Backend, rep.Collection, rep.Summary())
			})
		}),
	}
	checkCmd.Flags().String("collection", "", "Collection (default from config, candidates)")
	checkCmd.Flags().StringSlice("ids", nil, "Comma-separated ids")
	checkCmd.Flags().String("expect", "", "CEL expectation evaluated per existing document")
	return checkCmd
}
