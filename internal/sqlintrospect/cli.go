package sqlintrospect

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/delimatsuo/headhunter-sub005/internal/identity"
)

// CLIOptions configures the command-line driver.
type CLIOptions struct {
	// Path is gcloud or psql. Defaults to gcloud.
	Path     string
	Instance string
	Database string
	User     string
	// DSN is passed to psql as its connection string when set.
	DSN    string
	Runner identity.Runner
}

// CLIQuerier feeds queries on stdin to `gcloud sql connect` or psql.
// Placeholders ($1, $2, ...) are inlined as quoted literals.
type CLIQuerier struct {
	opts CLIOptions
}

// NewCLI validates opts.
func NewCLI(opts CLIOptions) (*CLIQuerier, error) {
	if opts.Path == "" {
		opts.Path = "gcloud"
	}
	if opts.Runner == nil {
		opts.Runner = identity.ExecRunner
	}
	if !opts.psql() && opts.Instance == "" {
		return nil, errors.New("sqlintrospect: cli driver needs an instance for gcloud sql connect")
	}
	return &CLIQuerier{opts: opts}, nil
}

func (o CLIOptions) psql() bool {
	return strings.HasPrefix(filepath.Base(o.Path), "psql")
}

// Args returns the command line used for every query.
func (q *CLIQuerier) Args() []string {
	o := q.opts
	if o.psql() {
		var args []string
		if o.DSN != "" {
			args = append(args, o.DSN)
		}
		if o.User != "" {
			args = append(args, "--username="+o.User)
		}
		if o.Database != "" && o.DSN == "" {
			args = append(args, "--dbname="+o.Database)
		}
		return args
	}
	args := []string{"sql", "connect", o.Instance}
	if o.User != "" {
		args = append(args, "--user="+o.User)
	}
	if o.Database != "" {
		args = append(args, "--database="+o.Database)
	}
	return append(args, "--quiet")
}

func (q *CLIQuerier) Dialect() string { return DialectPostgres }

func (q *CLIQuerier) Close() error { return nil }

// QueryRow runs query and parses the first data row of the tabular output.
func (q *CLIQuerier) QueryRow(ctx context.Context, query string, args ...any) (Row, error) {
	stmt, err := inline(query, args)
	if err != nil {
		return nil, err
	}
	stdout, stderr, err := q.opts.Runner(ctx, []byte(stmt+"\n"), q.opts.Path, q.Args()...)
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			return nil, fmt.Errorf("sqlintrospect: %s: %w", q.opts.Path, err)
		}
		return nil, fmt.Errorf("sqlintrospect: %s: %w: %s", q.opts.Path, err, msg)
	}
	raw := string(stdout)
	return &cliRow{raw: raw, fields: ParseTable(raw)}, nil
}

var placeholder = regexp.MustCompile(`\$(\d+)`)

func inline(query string, args []any) (string, error) {
	var bad error
	out := placeholder.ReplaceAllStringFunc(query, func(m string) string {
		n, _ := strconv.Atoi(m[1:])
		if n < 1 || n > len(args) {
			bad = fmt.Errorf("sqlintrospect: placeholder %s has no argument", m)
			return m
		}
		switch v := args[n-1].(type) {
		case string:
			return "'" + strings.ReplaceAll(v, "'", "''") + "'"
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		default:
			bad = fmt.Errorf("sqlintrospect: unsupported argument type %T", v)
			return m
		}
	})
	return out, bad
}

// ParseTable extracts the first data row from psql output. Both aligned
// output (header, dashed separator, rows) and unaligned tuples-only output
// are accepted. A nil result means no rows.
func ParseTable(out string) []string {
	lines := strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n")
	start := 0
	for i, l := range lines {
		t := strings.TrimSpace(l)
		if t != "" && strings.Trim(t, "-+") == "" {
			start = i + 1
			break
		}
	}
	for _, l := range lines[start:] {
		t := strings.TrimSpace(l)
		if t == "" || (strings.HasPrefix(t, "(") && strings.HasSuffix(t, ")")) {
			continue
		}
		parts := strings.Split(l, "|")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return nil
}

type cliRow struct {
	raw    string
	fields []string
}

func (r *cliRow) Raw() string { return r.raw }

func (r *cliRow) Scan(dest ...any) error {
	if r.fields == nil {
		return ErrNoRows
	}
	if len(dest) > len(r.fields) {
		return fmt.Errorf("sqlintrospect: row has %d columns, want %d", len(r.fields), len(dest))
	}
	for i, d := range dest {
		f := r.fields[i]
		switch p := d.(type) {
		case *string:
			*p = f
		case *int:
			n, err := strconv.Atoi(f)
			if err != nil {
				return fmt.Errorf("sqlintrospect: column %d: %w", i+1, err)
			}
			*p = n
		default:
			return fmt.Errorf("sqlintrospect: unsupported scan target %T", d)
		}
	}
	return nil
}
