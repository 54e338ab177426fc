// Package checksvc runs the diagnostics checks (health probes, candidate
// existence, vector dimension, document store smoke test and the batch
// demo) on behalf of both the CLI and the sidecar server. Every run is
// appended to the local history when a runtime is attached.
package checksvc
