package sqlintrospect

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ColumnInfo describes a vector column.
type ColumnInfo struct {
	Schema string `json:"schema,omitempty"`
	Table  string `json:"table"`
	Column string `json:"column"`
	Type   string `json:"type"`
	// Dimension is 0 for unconstrained columns.
	Dimension int `json:"dimension"`
	// Raw is the unparsed driver output, when the driver keeps one.
	Raw string `json:"raw,omitempty"`
}

// Matches reports whether the dimension equals want. A want of 0 always
// matches.
func (c ColumnInfo) Matches(want int) bool {
	return want == 0 || c.Dimension == want
}

const pgColumnQuery = `SELECT n.nspname, format_type(a.atttypid, a.atttypmod), a.atttypmod
FROM pg_attribute a
JOIN pg_class c ON c.oid = a.attrelid
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1 AND c.relname = $2 AND a.attname = $3
  AND a.attnum > 0 AND NOT a.attisdropped;`

// Dimension looks up the declared dimension of table.column. table may be
// schema-qualified; Postgres defaults to public.
func Dimension(ctx context.Context, q Querier, table, column string) (ColumnInfo, error) {
	if table == "" || column == "" {
		return ColumnInfo{}, errors.New("sqlintrospect: table and column are required")
	}
	if q.Dialect() == DialectSQLite {
		return sqliteDimension(ctx, q, table, column)
	}

	schema, name := "public", table
	if i := strings.IndexByte(table, '.'); i >= 0 {
		schema, name = table[:i], table[i+1:]
	}
	info := ColumnInfo{Schema: schema, Table: name, Column: column}
	row, err := q.QueryRow(ctx, pgColumnQuery, schema, name, column)
	if err != nil {
		return info, err
	}
	if rr, ok := row.(RawRow); ok {
		info.Raw = rr.Raw()
	}
	var typmod int
	if err := row.Scan(&info.Schema, &info.Type, &typmod); err != nil {
		if errors.Is(err, ErrNoRows) {
			return info, fmt.Errorf("%w: %s.%s.%s", ErrColumnNotFound, schema, name, column)
		}
		return info, err
	}
	dim, ok := ParseVectorType(info.Type)
	if !ok {
		return info, fmt.Errorf("%w: %s is %s", ErrNotVector, column, info.Type)
	}
	// pgvector stores the dimension as the type modifier.
	if typmod > 0 {
		dim = typmod
	}
	info.Dimension = dim
	return info, nil
}

func sqliteDimension(ctx context.Context, q Querier, table, column string) (ColumnInfo, error) {
	info := ColumnInfo{Table: table, Column: column}
	row, err := q.QueryRow(ctx, `SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
	if err != nil {
		return info, err
	}
	var ddl string
	if err := row.Scan(&ddl); err != nil {
		if errors.Is(err, ErrNoRows) {
			return info, fmt.Errorf("%w: table %s", ErrColumnNotFound, table)
		}
		return info, err
	}
	info.Raw = ddl
	typ, ok := ColumnType(ddl, column)
	if !ok {
		return info, fmt.Errorf("%w: %s.%s", ErrColumnNotFound, table, column)
	}
	info.Type = typ
	dim, ok := ParseVectorType(typ)
	if !ok {
		return info, fmt.Errorf("%w: %s is %s", ErrNotVector, column, typ)
	}
	info.Dimension = dim
	return info, nil
}

var (
	pgVectorType  = regexp.MustCompile(`(?i)^(?:(?:"[^"]+"|\w+)\.)?(vector|halfvec|sparsevec)(?:\((\d+)\))?$`)
	vecArrayType  = regexp.MustCompile(`(?i)^(float|int8|bit)\[(\d+)\]$`)
	libsqlBlobTyp = regexp.MustCompile(`(?i)^(F32|F64|F16|FB16|F8|F1)_BLOB\((\d+)\)$`)
)

// ParseVectorType returns the dimension encoded in a vector type name such
// as vector(768), halfvec(1536), float[384] or F32_BLOB(768). Unconstrained
// pgvector types yield (0, true). A schema qualifier, as format_type prints
// when the extension's schema is off the search_path, is ignored.
func ParseVectorType(typ string) (int, bool) {
	typ = strings.TrimSpace(typ)
	for _, re := range []*regexp.Regexp{pgVectorType, vecArrayType, libsqlBlobTyp} {
		m := re.FindStringSubmatch(typ)
		if m == nil {
			continue
		}
		if m[2] == "" {
			return 0, true
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// ColumnType finds column in a CREATE TABLE or CREATE VIRTUAL TABLE ... USING
// vec0(...) statement and returns its declared type.
func ColumnType(ddl, column string) (string, bool) {
	open := strings.IndexByte(ddl, '(')
	end := strings.LastIndexByte(ddl, ')')
	if open < 0 || end <= open {
		return "", false
	}
	for _, def := range splitTopLevel(ddl[open+1 : end]) {
		f := strings.Fields(def)
		if len(f) < 2 {
			continue
		}
		if strings.EqualFold(unquote(f[0]), column) {
			return f[1], true
		}
	}
	return "", false
}

func splitTopLevel(s string) []string {
	var (
		out   []string
		depth int
		last  int
	)
	for i, r := range s {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[last:i])
				last = i + 1
			}
		}
	}
	return append(out, s[last:])
}

func unquote(name string) string {
	if len(name) >= 2 {
		switch {
		case name[0] == '"' && name[len(name)-1] == '"',
			name[0] == '`' && name[len(name)-1] == '`',
			name[0] == '[' && name[len(name)-1] == ']':
			return name[1 : len(name)-1]
		}
	}
	return name
}
