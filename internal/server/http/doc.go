// Package httpserver exposes the diagnostics sidecar's JSON API: its own
// liveness and readiness, on-demand checks, and the run history.
//
// Routes:
//
//	GET  /v1/healthz             local store answers
//	GET  /v1/readyz              ready unless draining; last outcome per check
//	POST /v1/checks/health       body: checksvc.HealthRequest (optional)
//	POST /v1/checks/candidates   body: checksvc.CandidatesRequest (optional)
//	POST /v1/checks/dimension    body: checksvc.DimensionRequest (optional)
//	POST /v1/checks/docstore     body: {"collection","id"}
//	POST /v1/checks/batch        body: checksvc.DemoRequest
//	GET  /v1/history             ?check=&limit=&start=
package httpserver
