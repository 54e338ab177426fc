package healthcheck

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/delimatsuo/headhunter-sub005/pkg/log"
)

// GRPCResult is the outcome of a grpc.health.v1 Check.
type GRPCResult struct {
	Target  string        `json:"target"`
	Service string        `json:"service,omitempty"`
	Status  string        `json:"status"`
	Raw     string        `json:"raw,omitempty"`
	Latency time.Duration `json:"latency"`
	Err     error         `json:"-"`
	Error   string        `json:"error,omitempty"`
}

// OK reports a SERVING response.
func (r GRPCResult) OK() bool {
	return r.Err == nil && r.Status == healthpb.HealthCheckResponse_SERVING.String()
}

// GRPCOptions tunes GRPCProbe.
type GRPCOptions struct {
	// Insecure disables TLS (local sidecars, emulators).
	Insecure bool
	// DialOptions are appended after the transport credentials.
	DialOptions []grpc.DialOption
}

// GRPCProbe calls grpc.health.v1.Health/Check on target. A bearer token is
// attached when the prober has a token source.
func (p *Prober) GRPCProbe(ctx context.Context, target, service string, opts GRPCOptions) GRPCResult {
	res := GRPCResult{Target: target, Service: service}
	start := time.Now()
	fail := func(err error) GRPCResult {
		res.Latency = time.Since(start)
		res.Err = err
		res.Error = err.Error()
		res.Status = "UNKNOWN"
		p.logger().Warn("grpc health probe failed", log.Str("target", target), log.Err(err))
		return res
	}
	if target == "" {
		return fail(errors.New("healthcheck: grpc target is required"))
	}

	creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	if opts.Insecure {
		creds = insecure.NewCredentials()
	}
	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(creds)}, opts.DialOptions...)
	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return fail(fmt.Errorf("dial %s: %w", target, err))
	}
	defer conn.Close()

	if p.Tokens != nil {
		audience := p.Audience
		if audience == "" {
			audience = grpcAudience(target)
		}
		if tok, err := p.Tokens.Token(ctx, audience); err == nil {
			ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+tok)
		} else {
			p.logger().Warn("identity token unavailable; probing unauthenticated", log.Err(err))
		}
	}

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	res.Latency = time.Since(start)
	if err != nil {
		return fail(err)
	}
	res.Status = resp.GetStatus().String()
	if raw, err := protojson.Marshal(resp); err == nil {
		res.Raw = string(raw)
	}
	return res
}

// grpcAudience maps host:port to the https://host audience Google front ends
// expect.
func grpcAudience(target string) string {
	host, _, err := net.SplitHostPort(target)
	if err != nil {
		host = target
	}
	return "https://" + host
}
