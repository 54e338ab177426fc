// Package diag implements the hhdiag command tree.
//
// Every subcommand loads configuration (defaults, --config file, HH_*
// environment, then flags), builds a logger, opens local state under
// --data-dir and runs one check through the shared checks service. Reports
// print as text or, with --json, as indented JSON on stdout.
//
// A check that runs and finds a problem returns ErrCheckFailed after
// printing its report; ExitCode maps that to status 1 and any other error
// to 2.
package diag
