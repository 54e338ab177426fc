package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/delimatsuo/headhunter-sub005/internal/expect"
	"github.com/delimatsuo/headhunter-sub005/internal/identity"
	"github.com/delimatsuo/headhunter-sub005/pkg/log"
)

// DefaultPaths are probed when none are given.
var DefaultPaths = []string{"/health", "/ready"}

// DefaultMaxBodyBytes caps how much of each response body is kept.
const DefaultMaxBodyBytes = 64 << 10

// Result is the outcome of one GET.
type Result struct {
	Path       string        `json:"path"`
	URL        string        `json:"url"`
	StatusCode int           `json:"statusCode"`
	Status     string        `json:"status"`
	Body       string        `json:"body"`
	Truncated  bool          `json:"truncated,omitempty"`
	Latency    time.Duration `json:"latency"`
	// Expect is set when an expectation was evaluated.
	Expect    *bool  `json:"expect,omitempty"`
	ExpectErr string `json:"expectError,omitempty"`
	Err       error  `json:"-"`
	Error     string `json:"error,omitempty"`
}

// OK reports a 2xx response with no transport error and no failed expectation.
func (r Result) OK() bool {
	if r.Err != nil || r.StatusCode < 200 || r.StatusCode > 299 {
		return false
	}
	if r.ExpectErr != "" {
		return false
	}
	return r.Expect == nil || *r.Expect
}

// Report groups the results of one Probe call.
type Report struct {
	Target        string           `json:"target"`
	Results       []Result         `json:"results"`
	Authenticated bool             `json:"authenticated"`
	TokenClaims   *identity.Claims `json:"tokenClaims,omitempty"`
	TokenErr      string           `json:"tokenError,omitempty"`
	GRPC          *GRPCResult      `json:"grpc,omitempty"`
	CheckedAt     time.Time        `json:"checkedAt"`
}

// OK is true iff every HTTP result (and the gRPC result, if any) passed.
func (r Report) OK() bool {
	for _, res := range r.Results {
		if !res.OK() {
			return false
		}
	}
	if r.GRPC != nil && !r.GRPC.OK() {
		return false
	}
	return len(r.Results) > 0 || r.GRPC != nil
}

// Summary is a one-line description used for history entries.
func (r Report) Summary() string {
	parts := make([]string, 0, len(r.Results)+1)
	for _, res := range r.Results {
		if res.Err != nil {
			parts = append(parts, res.Path+"=error")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%d", res.Path, res.StatusCode))
	}
	if r.GRPC != nil {
		parts = append(parts, "grpc="+r.GRPC.Status)
	}
	return strings.Join(parts, " ")
}

// Prober issues authenticated GETs against a service's health endpoints.
type Prober struct {
	Client *http.Client
	// Tokens is optional; nil sends unauthenticated requests.
	Tokens identity.TokenSource
	// Audience defaults to the probed base URL.
	Audience     string
	MaxBodyBytes int64
	Expect       *expect.Expr
	Logger       log.Logger
}

func (p *Prober) logger() log.Logger {
	if p.Logger == nil {
		return log.NewLogger(log.WithOutput(log.NullOutput{}))
	}
	return p.Logger
}

// NormalizeBaseURL validates raw as an absolute http(s) URL and strips any
// trailing slash.
func NormalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("healthcheck: base URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("healthcheck: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("healthcheck: %q is not an absolute http(s) URL", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// token fetches one token for the run and decodes its claims. Failures are
// recorded on the report; the probe still goes out unauthenticated.
func (p *Prober) token(ctx context.Context, audience string, rep *Report) string {
	if p.Tokens == nil {
		return ""
	}
	tok, err := p.Tokens.Token(ctx, audience)
	if err != nil {
		rep.TokenErr = err.Error()
		p.logger().Warn("identity token unavailable; probing unauthenticated", log.Err(err))
		return ""
	}
	rep.Authenticated = true
	if c, err := identity.Inspect(tok); err == nil {
		rep.TokenClaims = &c
	}
	return tok
}

// Probe GETs each path under baseURL in order. The returned error covers
// invalid input only; per-request failures are recorded in the results.
func (p *Prober) Probe(ctx context.Context, baseURL string, paths []string) (Report, error) {
	base, err := NormalizeBaseURL(baseURL)
	if err != nil {
		return Report{}, err
	}
	if len(paths) == 0 {
		paths = DefaultPaths
	}
	rep := Report{Target: base, CheckedAt: time.Now().UTC()}

	audience := p.Audience
	if audience == "" {
		audience = base
	}
	tok := p.token(ctx, audience, &rep)

	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	maxBody := p.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	rep.Results = make([]Result, 0, len(paths))
	for _, path := range paths {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		res := p.get(ctx, client, base, path, tok, maxBody)
		rep.Results = append(rep.Results, res)
		fields := []log.Field{log.Str("url", res.URL), log.Int("status", res.StatusCode), log.Dur("latency", res.Latency)}
		if res.Err != nil {
			p.logger().Warn("probe failed", append(fields, log.Err(res.Err))...)
		} else {
			p.logger().Debug("probe finished", fields...)
		}
	}
	return rep, nil
}

func (p *Prober) get(ctx context.Context, client *http.Client, base, path, tok string, maxBody int64) (res Result) {
	res = Result{Path: path, URL: base + path}
	start := time.Now()
	defer func() {
		res.Latency = time.Since(start)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, res.URL, nil)
	if err != nil {
		return res.fail(err)
	}
	req.Header.Set("Accept", "application/json, text/plain;q=0.9, */*;q=0.1")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := client.Do(req)
	if err != nil {
		return res.fail(err)
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	res.Status = resp.Status
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return res.fail(fmt.Errorf("read body: %w", err))
	}
	if int64(len(body)) > maxBody {
		body = body[:maxBody]
		res.Truncated = true
	}
	res.Body = string(body)

	if p.Expect.Enabled() {
		headers := make(map[string]string, len(resp.Header))
		for k := range resp.Header {
			headers[strings.ToLower(k)] = resp.Header.Get(k)
		}
		var doc any
		_ = json.Unmarshal(body, &doc)
		ok, err := p.Expect.Eval(map[string]any{
			"status":  int64(res.StatusCode),
			"body":    res.Body,
			"json":    doc,
			"path":    path,
			"headers": headers,
		})
		if err != nil {
			res.ExpectErr = err.Error()
		} else {
			res.Expect = &ok
		}
	}
	return res
}

func (r Result) fail(err error) Result {
	r.Err = err
	r.Error = err.Error()
	return r
}
