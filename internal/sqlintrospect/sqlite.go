package sqlintrospect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteQuerier reads a local SQLite vector store.
type SQLiteQuerier struct {
	db *sql.DB
}

// OpenSQLite opens the database file at path read-only.
func OpenSQLite(ctx context.Context, path string) (*SQLiteQuerier, error) {
	if path == "" {
		return nil, errors.New("sqlintrospect: sqlite driver needs a file path")
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("sqlintrospect: open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlintrospect: open sqlite: %w", err)
	}
	return &SQLiteQuerier{db: db}, nil
}

func (q *SQLiteQuerier) Dialect() string { return DialectSQLite }

func (q *SQLiteQuerier) QueryRow(ctx context.Context, query string, args ...any) (Row, error) {
	return sqliteRow{row: q.db.QueryRowContext(ctx, query, args...)}, nil
}

func (q *SQLiteQuerier) Close() error { return q.db.Close() }

type sqliteRow struct{ row *sql.Row }

func (r sqliteRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRows
	}
	return err
}
