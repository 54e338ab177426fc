// Package healthcheck probes a deployed service's health and readiness
// endpoints with an identity token and reports status and body per path.
//
//	p := &healthcheck.Prober{Tokens: tokens}
//	rep, err := p.Probe(ctx, "https://svc-abc.a.run.app", nil) // /health, /ready
//	if err != nil { /* bad URL */ }
//	for _, r := range rep.Results {
//	    fmt.Println(r.Path, r.StatusCode, r.Body)
//	}
//
// GRPCProbe does the same over the standard grpc.health.v1 protocol.
package healthcheck
