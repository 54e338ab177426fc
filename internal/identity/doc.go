// Package identity obtains Google identity tokens for authenticated probes.
// Sources are chained in the configured order (static token, metadata
// server / service account, gcloud CLI) and the first one that works wins.
// Inspect decodes a token's claims for display only.
package identity
