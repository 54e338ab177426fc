package diag

import (
	"encoding/json"
	"io"
	"time"

	"github.com/spf13/cobra"
)

func wantJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// verdict prints rep as JSON when asked, otherwise calls text, and turns a
// failed check into ErrCheckFailed.
func verdict(cmd *cobra.Command, ok bool, rep any, text func(io.Writer)) error {
	if wantJSON(cmd) {
		if err := printJSON(cmd.OutOrStdout(), rep); err != nil {
			return err
		}
	} else {
		text(cmd.OutOrStdout())
	}
	if !ok {
		return ErrCheckFailed
	}
	return nil
}

func ms(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
