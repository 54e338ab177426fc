// Package sqlintrospect reports the declared dimension of a vector column.
//
// Three drivers share the Querier interface: pgx connects to Postgres
// directly, cli feeds the query to `gcloud sql connect` or psql on stdin and
// parses the tabular output, and sqlite reads table DDL from a local
// database file. Dimension understands pgvector types (vector, halfvec,
// sparsevec) as well as sqlite-vec float[N] and libSQL F32_BLOB(N) columns.
package sqlintrospect
