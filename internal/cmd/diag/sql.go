package diag

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	checksvc "github.com/delimatsuo/headhunter-sub005/internal/services/checks"
)

// newSQLCommand constructs the `sql` command group.
func newSQLCommand(a *app) *cobra.Command {
	sqlCmd := &cobra.Command{
		Use:   "sql",
		Short: "SQL schema introspection",
	}
	sqlCmd.AddCommand(newSQLDimensionCommand(a))
	return sqlCmd
}

// newSQLDimensionCommand constructs the `sql dimension` subcommand.
func newSQLDimensionCommand(a *app) *cobra.Command {
	dimCmd := &cobra.Command{
		Use:   "dimension",
		Short: "Report the declared dimension of a vector column",
		Long: `Reads the type of table.column and prints its vector dimension, e.g.
"candidate_embeddings.embedding: vector(768)". Drivers:

  pgx     connect with sql.dsn (set sql.simpleProtocol behind PgBouncer)
  cli     run gcloud sql connect (sql.instance) or psql (sql.dsn)
  sqlite  read the column DDL from the database file at sql.dsn

With --expect-dim the command fails when the dimension differs.`,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			driver, _ := cmd.Flags().GetString("driver")
			table, _ := cmd.Flags().GetString("table")
			column, _ := cmd.Flags().GetString("column")
			expect, _ := cmd.Flags().GetInt("expect-dim")
			raw, _ := cmd.Flags().GetBool("raw")

			rep, err := a.svc.Dimension(cmd.Context(), checksvc.DimensionRequest{
				Driver:    driver,
				Table:     table,
				Column:    column,
				ExpectDim: expect,
			})
			if err != nil {
				return err
			}
			return verdict(cmd, rep.OK(), rep, func(w io.Writer) {
				name := rep.Table + "." + rep.Column
				if rep.Schema != "" {
					name = rep.Schema + "." + name
				}
				switch {
				case rep.Err != nil:
					_, _ = fmt.Fprintf(w, "%s: error: %s\n", name, rep.Error)
				case rep.Dimension == 0:
					_, _ = fmt.Fprintf(w, "%s: %s (unconstrained)\n", name, rep.Type)
				default:
					_, _ = fmt.Fprintf(w, "%s: %s dimension %d\n", name, rep.Type, rep.Dimension)
				}
				if rep.Err == nil && !rep.Matches {
					_, _ = fmt.Fprintf(w, "expected dimension %d\n", rep.ExpectDim)
				}
				if raw && rep.Raw != "" {
					_, _ = fmt.Fprintln(w, rep.Raw)
				}
			})
		}),
	}
	dimCmd.Flags().String("driver", "", "Driver: pgx|cli|sqlite (default from config)")
	dimCmd.Flags().String("table", "", "Table, optionally schema-qualified")
	dimCmd.Flags().String("column", "", "Vector column")
	dimCmd.Flags().Int("expect-dim", 0, "Fail unless the dimension equals this value")
	dimCmd.Flags().Bool("raw", false, "Also print the raw driver output")
	return dimCmd
}
