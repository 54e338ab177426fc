package checksvc

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/delimatsuo/headhunter-sub005/internal/config"
	"github.com/delimatsuo/headhunter-sub005/internal/expect"
	"github.com/delimatsuo/headhunter-sub005/internal/healthcheck"
	logpkg "github.com/delimatsuo/headhunter-sub005/pkg/log"
)

// HealthRequest overrides the configured health target. Zero fields fall
// back to the health section of the config.
type HealthRequest struct {
	BaseURL      string        `json:"baseURL,omitempty"`
	Paths        []string      `json:"paths,omitempty"`
	Audience     string        `json:"audience,omitempty"`
	Expect       string        `json:"expect,omitempty"`
	Timeout      time.Duration `json:"timeout,omitempty"`
	GRPCTarget   string        `json:"grpcTarget,omitempty"`
	GRPCService  string        `json:"grpcService,omitempty"`
	GRPCInsecure bool          `json:"grpcInsecure,omitempty"`
}

func (s *Service) healthDefaults(req HealthRequest) HealthRequest {
	hc := s.cfg.Health
	if req.BaseURL == "" {
		req.BaseURL = hc.BaseURL
	}
	if len(req.Paths) == 0 {
		req.Paths = hc.Paths
	}
	if req.Audience == "" {
		req.Audience = hc.Audience
	}
	if req.Expect == "" {
		req.Expect = hc.Expect
	}
	if req.Timeout <= 0 {
		req.Timeout = hc.Timeout.D()
	}
	if req.Timeout <= 0 {
		req.Timeout = config.DefaultHealthTimeout
	}
	if req.GRPCTarget == "" {
		req.GRPCTarget = hc.GRPCTarget
		req.GRPCInsecure = req.GRPCInsecure || hc.GRPCInsecure
	}
	if req.GRPCService == "" {
		req.GRPCService = hc.GRPCService
	}
	return req
}

// Health probes the HTTP paths and, when a gRPC target is set, the
// grpc.health.v1 service. The error covers invalid input only.
func (s *Service) Health(ctx context.Context, req HealthRequest) (healthcheck.Report, error) {
	req = s.healthDefaults(req)
	if req.BaseURL == "" && req.GRPCTarget == "" {
		return healthcheck.Report{}, errors.New("checks: health needs a base URL or a gRPC target")
	}
	exp, err := expect.Compile(req.Expect, expect.HTTPVars)
	if err != nil {
		return healthcheck.Report{}, err
	}
	tokens, err := s.tokenSource()
	if err != nil {
		return healthcheck.Report{}, err
	}

	client := s.httpClient
	if client == nil {
		client = &http.Client{Timeout: req.Timeout}
	}
	p := &healthcheck.Prober{
		Client:       client,
		Tokens:       tokens,
		Audience:     req.Audience,
		MaxBodyBytes: s.cfg.Health.MaxBodyBytes,
		Expect:       exp,
		Logger:       s.logger,
	}

	started := time.Now()
	var rep healthcheck.Report
	if req.BaseURL != "" {
		rep, err = p.Probe(ctx, req.BaseURL, req.Paths)
		if err != nil {
			return healthcheck.Report{}, err
		}
	} else {
		rep = healthcheck.Report{Target: req.GRPCTarget, CheckedAt: started.UTC()}
	}
	if req.GRPCTarget != "" {
		gctx, cancel := context.WithTimeout(ctx, req.Timeout)
		g := p.GRPCProbe(gctx, req.GRPCTarget, req.GRPCService, healthcheck.GRPCOptions{Insecure: req.GRPCInsecure})
		cancel()
		rep.GRPC = &g
	}

	ok := rep.OK()
	s.logger.Info("health check finished", logpkg.Str("target", rep.Target), logpkg.Bool("ok", ok), logpkg.Str("summary", rep.Summary()))
	s.record(ctx, CheckHealth, rep.Target, ok, rep.Summary(), started, rep)
	return rep, nil
}
