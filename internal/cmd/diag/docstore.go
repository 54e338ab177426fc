package diag

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// newDocstoreCommand constructs the `docstore` command group.
func newDocstoreCommand(a *app) *cobra.Command {
	dsCmd := &cobra.Command{
		Use:   "docstore",
		Short: "Document store diagnostics and local fixtures",
		Long: `smoke reads one document through the configured backend (Firestore or
local). put, get and list operate on the local pebble-backed store, which
serves as a fixture store for offline runs with docstore.backend=local.`,
	}
	dsCmd.AddCommand(
		newDocstoreSmokeCommand(a),
		newDocstorePutCommand(a),
		newDocstoreGetCommand(a),
		newDocstoreListCommand(a),
	)
	return dsCmd
}

// newDocstoreSmokeCommand constructs the `docstore smoke` subcommand.
func newDocstoreSmokeCommand(a *app) *cobra.Command {
	smokeCmd := &cobra.Command{
		Use:   "smoke",
		Short: "Fetch one document and report whether it exists",
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			collection, _ := cmd.Flags().GetString("collection")
			id, _ := cmd.Flags().GetString("id")
			rep, err := a.svc.Smoke(cmd.Context(), collection, id)
			if err != nil {
				return err
			}
			return verdict(cmd, rep.OK(), rep, func(w io.Writer) {
				_, _ = fmt.Fprintln(w, "backend:", rep.Backend)
				switch {
				case rep.Err != nil:
					_, _ = fmt.Fprintf(w, "%s/%s: error: %s\n", rep.Collection, rep.ID, rep.Error)
				case rep.Exists:
					_, _ = fmt.Fprintf(w, "%s/%s: exists (%s)\n", rep.Collection, rep.ID, ms(rep.Latency))
					_, _ = fmt.Fprintln(w, "keys:", strings.Join(rep.Keys, ", "))
				default:
					_, _ = fmt.Fprintf(w, "%s/%s: missing (%s)\n", rep.Collection, rep.ID, ms(rep.Latency))
				}
			})
		}),
	}
	smokeCmd.Flags().String("collection", "", "Collection (default from config)")
	smokeCmd.Flags().String("id", "", "Document id (default from config)")
	return smokeCmd
}

// newDocstorePutCommand constructs the `docstore put` subcommand.
func newDocstorePutCommand(a *app) *cobra.Command {
	putCmd := &cobra.Command{
		Use:   "put",
		Short: "Write a JSON document to the local store",
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			collection, _ := cmd.Flags().GetString("collection")
			id, _ := cmd.Flags().GetString("id")
			data, _ := cmd.Flags().GetString("data")
			var fields map[string]any
			if err := json.Unmarshal([]byte(data), &fields); err != nil {
				return fmt.Errorf("invalid --data, expected a JSON object: %w", err)
			}
			local, err := a.svc.LocalStore()
			if err != nil {
				return err
			}
			if _, err := local.EnsureCollection(collection); err != nil {
				return err
			}
			doc, err := local.Put(cmd.Context(), collection, id, fields)
			if err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), doc)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status:", "OK")
			return nil
		}),
	}
	putCmd.Flags().String("collection", "candidates", "Collection")
	putCmd.Flags().String("id", "", "Document id")
	putCmd.Flags().String("data", "{}", "Document fields as a JSON object")
	return putCmd
}

// newDocstoreGetCommand constructs the `docstore get` subcommand.
func newDocstoreGetCommand(a *app) *cobra.Command {
	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Print a document from the local store",
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			collection, _ := cmd.Flags().GetString("collection")
			id, _ := cmd.Flags().GetString("id")
			local, err := a.svc.LocalStore()
			if err != nil {
				return err
			}
			doc, err := local.Get(cmd.Context(), collection, id)
			if err != nil {
				return err
			}
			if !doc.Exists {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s/%s: missing\n", collection, id)
				return ErrCheckFailed
			}
			return printJSON(cmd.OutOrStdout(), doc)
		}),
	}
	getCmd.Flags().String("collection", "candidates", "Collection")
	getCmd.Flags().String("id", "", "Document id")
	return getCmd
}

// newDocstoreListCommand constructs the `docstore list` subcommand.
func newDocstoreListCommand(a *app) *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List documents (or collections) in the local store",
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			collection, _ := cmd.Flags().GetString("collection")
			limit, _ := cmd.Flags().GetInt("limit")
			local, err := a.svc.LocalStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if collection == "" {
				metas, err := local.Collections()
				if err != nil {
					return err
				}
				if wantJSON(cmd) {
					return printJSON(out, map[string]any{"collections": metas})
				}
				for _, m := range metas {
					_, _ = fmt.Fprintln(out, m.Name)
				}
				return nil
			}
			docs, err := local.List(cmd.Context(), collection, limit)
			if err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(out, map[string]any{"documents": docs})
			}
			for _, d := range docs {
				_, _ = fmt.Fprintf(out, "%s\t%s\n", d.ID, strings.Join(d.Keys(), ","))
			}
			return nil
		}),
	}
	listCmd.Flags().String("collection", "", "Collection (empty lists collections)")
	listCmd.Flags().Int("limit", 100, "Maximum documents")
	return listCmd
}
