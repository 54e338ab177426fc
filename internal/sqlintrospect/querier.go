package sqlintrospect

import (
	"context"
	"errors"
	"fmt"

	"github.com/delimatsuo/headhunter-sub005/internal/config"
	"github.com/delimatsuo/headhunter-sub005/internal/identity"
)

var (
	// ErrNoRows is returned by Row.Scan when the query matched nothing.
	ErrNoRows = errors.New("sqlintrospect: no rows")
	// ErrColumnNotFound means the table or column does not exist.
	ErrColumnNotFound = errors.New("sqlintrospect: column not found")
	// ErrNotVector means the column exists but its type is not a vector.
	ErrNotVector = errors.New("sqlintrospect: column is not a vector type")
)

// Dialects understood by Dimension.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Row is a single result row.
type Row interface {
	Scan(dest ...any) error
}

// RawRow is implemented by rows that keep the driver's unparsed output.
type RawRow interface {
	Row
	Raw() string
}

// Querier runs single-row queries against one database.
type Querier interface {
	QueryRow(ctx context.Context, query string, args ...any) (Row, error)
	Dialect() string
	Close() error
}

// Open builds the Querier selected by cfg.Driver. run is used by the cli
// driver and may be nil.
func Open(ctx context.Context, cfg config.SQLConfig, run identity.Runner) (Querier, error) {
	switch cfg.Driver {
	case "pgx":
		return OpenPgx(ctx, cfg.DSN, cfg.SimpleProtocol)
	case "sqlite":
		return OpenSQLite(ctx, cfg.DSN)
	case "cli", "":
		return NewCLI(CLIOptions{
			Path:     cfg.CLIPath,
			Instance: cfg.Instance,
			Database: cfg.Database,
			User:     cfg.User,
			DSN:      cfg.DSN,
			Runner:   run,
		})
	default:
		return nil, fmt.Errorf("sqlintrospect: unknown driver %q", cfg.Driver)
	}
}
