package sqlintrospect

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const alignedOutput = ` nspname |  format_type  | atttypmod
---------+---------------+-----------
 public  | vector(768)   |       768
(1 row)

`

type recorded struct {
	stdin string
	name  string
	args  []string
}

func fakeRunner(rec *recorded, stdout, stderr string, err error) func(context.Context, []byte, string, ...string) ([]byte, []byte, error) {
	return func(_ context.Context, stdin []byte, name string, args ...string) ([]byte, []byte, error) {
		rec.stdin, rec.name, rec.args = string(stdin), name, args
		return []byte(stdout), []byte(stderr), err
	}
}

func TestParseTable(t *testing.T) {
	if diff := cmp.Diff([]string{"public", "vector(768)", "768"}, ParseTable(alignedOutput)); diff != "" {
		t.Fatalf("aligned (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"public", "halfvec(3)", "3"}, ParseTable("public|halfvec(3)|3\n")); diff != "" {
		t.Fatalf("unaligned (-want +got):\n%s", diff)
	}
	empty := " nspname | format_type | atttypmod\n---------+-------------+-----------\n(0 rows)\n"
	if got := ParseTable(empty); got != nil {
		t.Fatalf("want nil for no rows, got %v", got)
	}
}

func TestCLIDimensionGcloud(t *testing.T) {
	var rec recorded
	q, err := NewCLI(CLIOptions{Instance: "hh-sql", Database: "headhunter", User: "postgres", Runner: fakeRunner(&rec, alignedOutput, "", nil)})
	if err != nil {
		t.Fatalf("NewCLI: %v", err)
	}
	info, err := Dimension(context.Background(), q, "candidate_embeddings", "embedding")
	if err != nil {
		t.Fatalf("Dimension: %v", err)
	}
	if info.Dimension != 768 || info.Raw != alignedOutput {
		t.Fatalf("got %+v", info)
	}
	if rec.name != "gcloud" {
		t.Fatalf("ran %q", rec.name)
	}
	wantArgs := []string{"sql", "connect", "hh-sql", "--user=postgres", "--database=headhunter", "--quiet"}
	if diff := cmp.Diff(wantArgs, rec.args); diff != "" {
		t.Fatalf("args (-want +got):\n%s", diff)
	}
	if !strings.Contains(rec.stdin, "c.relname = 'candidate_embeddings'") || strings.Contains(rec.stdin, "$2") {
		t.Fatalf("placeholders not inlined: %s", rec.stdin)
	}
}

func TestCLIPsqlArgs(t *testing.T) {
	q, err := NewCLI(CLIOptions{Path: "/usr/bin/psql", Database: "hh", User: "me"})
	if err != nil {
		t.Fatalf("NewCLI: %v", err)
	}
	if diff := cmp.Diff([]string{"--username=me", "--dbname=hh"}, q.Args()); diff != "" {
		t.Fatalf("args (-want +got):\n%s", diff)
	}
	if _, err := NewCLI(CLIOptions{}); err == nil {
		t.Fatal("gcloud without instance should fail")
	}
}

func TestCLIRunnerFailure(t *testing.T) {
	var rec recorded
	q, _ := NewCLI(CLIOptions{Instance: "x", Runner: fakeRunner(&rec, "", "ERROR: (gcloud.sql.connect) not authorized\n", errors.New("exit status 1"))})
	_, err := Dimension(context.Background(), q, "t", "c")
	if err == nil || !strings.Contains(err.Error(), "not authorized") {
		t.Fatalf("stderr should be surfaced, got %v", err)
	}
}

func TestInlineQuotes(t *testing.T) {
	got, err := inline("SELECT $1, $2", []any{"o'brien", 3})
	if err != nil {
		t.Fatal(err)
	}
	if got != "SELECT 'o''brien', 3" {
		t.Fatalf("got %q", got)
	}
	if _, err := inline("SELECT $2", []any{"a"}); err == nil {
		t.Fatal("missing argument should fail")
	}
}
