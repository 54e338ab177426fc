package diag

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/delimatsuo/headhunter-sub005/internal/healthcheck"
	checksvc "github.com/delimatsuo/headhunter-sub005/internal/services/checks"
)

// newHealthCommand constructs the `health` command group.
func newHealthCommand(a *app) *cobra.Command {
	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Service health probes",
	}
	healthCmd.AddCommand(newHealthProbeCommand(a))
	return healthCmd
}

// newHealthProbeCommand constructs the `health probe` subcommand.
func newHealthProbeCommand(a *app) *cobra.Command {
	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "GET the health endpoints of a service with an identity token",
		Long: `Fetches an identity token once (static, metadata server or gcloud, in the
configured order) and GETs each path under --url, printing status and body.
When the token cannot be obtained the requests still go out unauthenticated
so the service's 401/403 is visible.

--expect takes a CEL expression over status, body, json, path and headers,
for example: status == 200 && json.status == "ok"

--grpc additionally calls grpc.health.v1 Check on host:port.`,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			url, _ := cmd.Flags().GetString("url")
			paths, _ := cmd.Flags().GetStringArray("path")
			audience, _ := cmd.Flags().GetString("audience")
			expr, _ := cmd.Flags().GetString("expect")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			grpcTarget, _ := cmd.Flags().GetString("grpc")
			grpcService, _ := cmd.Flags().GetString("grpc-service")
			grpcInsecure, _ := cmd.Flags().GetBool("grpc-insecure")

			rep, err := a.svc.Health(cmd.Context(), checksvc.HealthRequest{
				BaseURL:      url,
				Paths:        paths,
				Audience:     audience,
				Expect:       expr,
				Timeout:      timeout,
				GRPCTarget:   grpcTarget,
				GRPCService:  grpcService,
				GRPCInsecure: grpcInsecure,
			})
			if err != nil {
				return err
			}
			return verdict(cmd, rep.OK(), rep, func(w io.Writer) { printHealth(w, rep) })
		}),
	}
	probeCmd.Flags().String("url", "", "Service base URL (default from config)")
	probeCmd.Flags().StringArray("path", nil, "Path to GET (repeat; default /health and /ready)")
	probeCmd.Flags().String("audience", "", "Token audience (default: the base URL)")
	probeCmd.Flags().String("expect", "", "CEL expectation evaluated per response")
	probeCmd.Flags().Duration("timeout", 0, "Per-request timeout (default from config, 10s)")
	probeCmd.Flags().String("grpc", "", "gRPC health target host:port")
	probeCmd.Flags().String("grpc-service", "", "Service name for grpc.health.v1 Check")
	probeCmd.Flags().Bool("grpc-insecure", false, "Use plaintext for the gRPC probe")
	return probeCmd
}

func printHealth(w io.Writer, rep healthcheck.Report) {
	switch {
	case rep.TokenClaims != nil:
		c := rep.TokenClaims
		_, _ = fmt.Fprintf(w, "token: email=%s aud=%s expires in %s\n",
			c.Email, strings.Join(c.Audience, ","), c.TTL(time.Now()).Round(time.Second))
	case rep.Authenticated:
		_, _ = fmt.Fprintln(w, "token: opaque")
	case rep.TokenErr != "":
		_, _ = fmt.Fprintf(w, "token: unavailable (%s)\n", rep.TokenErr)
	}
	for _, r := range rep.Results {
		if r.Err != nil {
			_, _ = fmt.Fprintf(w, "GET %s -> error: %s (%s)\n", r.URL, r.Error, ms(r.Latency))
			continue
		}
		_, _ = fmt.Fprintf(w, "GET %s -> %s (%s)\n", r.URL, r.Status, ms(r.Latency))
		if body := strings.TrimSpace(r.Body); body != "" {
			_, _ = fmt.Fprintln(w, body)
		}
		if r.Truncated {
			_, _ = fmt.Fprintln(w, "[body truncated]")
		}
		if r.Expect != nil {
			_, _ = fmt.Fprintf(w, "expect: %v\n", *r.Expect)
		} else if r.ExpectErr != "" {
			_, _ = fmt.Fprintf(w, "expect: error: %s\n", r.ExpectErr)
		}
	}
	if g := rep.GRPC; g != nil {
		if g.Err != nil {
			_, _ = fmt.Fprintf(w, "grpc %s -> error: %s\n", g.Target, g.Error)
		} else {
			_, _ = fmt.Fprintf(w, "grpc %s -> %s (%s)\n", g.Target, g.Status, ms(g.Latency))
		}
	}
}
