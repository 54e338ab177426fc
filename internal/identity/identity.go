package identity

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"google.golang.org/api/idtoken"

	"github.com/delimatsuo/headhunter-sub005/internal/config"
)

// ErrNoToken is returned when no source could produce a token.
var ErrNoToken = errors.New("identity: no token source available")

// TokenSource yields identity tokens for an audience.
type TokenSource interface {
	Token(ctx context.Context, audience string) (string, error)
}

// Runner executes an external command and returns its stdout and stderr.
type Runner func(ctx context.Context, stdin []byte, name string, args ...string) (stdout, stderr []byte, err error)

// ExecRunner runs commands through os/exec.
func ExecRunner(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	err := cmd.Run()
	return out.Bytes(), errb.Bytes(), err
}

// GcloudTokenSource shells out to `gcloud auth print-identity-token`.
type GcloudTokenSource struct {
	// Path to the gcloud binary. Defaults to "gcloud".
	Path string
	// IncludeAudience passes --audiences, which gcloud only accepts for
	// service account credentials.
	IncludeAudience bool
	Runner          Runner
}

func (s GcloudTokenSource) Name() string { return "gcloud" }

// Token implements TokenSource.
func (s GcloudTokenSource) Token(ctx context.Context, audience string) (string, error) {
	path := s.Path
	if path == "" {
		path = "gcloud"
	}
	run := s.Runner
	if run == nil {
		run = ExecRunner
	}
	args := []string{"auth", "print-identity-token"}
	if s.IncludeAudience && audience != "" {
		args = append(args, "--audiences="+audience)
	}
	stdout, stderr, err := run(ctx, nil, path, args...)
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			return "", fmt.Errorf("identity: gcloud: %w", err)
		}
		return "", fmt.Errorf("identity: gcloud: %w: %s", err, msg)
	}
	tok := strings.TrimSpace(string(stdout))
	if tok == "" {
		return "", errors.New("identity: gcloud returned an empty token")
	}
	return tok, nil
}

// MetadataTokenSource mints tokens through Google's idtoken package, which
// uses service account credentials or the metadata server.
type MetadataTokenSource struct{}

func (MetadataTokenSource) Name() string { return "metadata" }

// Token implements TokenSource.
func (MetadataTokenSource) Token(ctx context.Context, audience string) (string, error) {
	if audience == "" {
		return "", errors.New("identity: metadata source requires an audience")
	}
	ts, err := idtoken.NewTokenSource(ctx, audience)
	if err != nil {
		return "", fmt.Errorf("identity: metadata: %w", err)
	}
	t, err := ts.Token()
	if err != nil {
		return "", fmt.Errorf("identity: metadata: %w", err)
	}
	return t.AccessToken, nil
}

// StaticTokenSource returns a fixed token.
type StaticTokenSource string

func (StaticTokenSource) Name() string { return "static" }

// Token implements TokenSource.
func (s StaticTokenSource) Token(context.Context, string) (string, error) {
	tok := strings.TrimSpace(string(s))
	if tok == "" {
		return "", errors.New("identity: static token is empty")
	}
	return tok, nil
}

// ChainTokenSource tries each source in order.
type ChainTokenSource []TokenSource

// Token returns the first token produced by the chain, or every source's
// error joined together.
func (c ChainTokenSource) Token(ctx context.Context, audience string) (string, error) {
	if len(c) == 0 {
		return "", ErrNoToken
	}
	var errs []error
	for _, src := range c {
		tok, err := src.Token(ctx, audience)
		if err == nil {
			return tok, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		errs = append(errs, err)
	}
	return "", errors.Join(append([]error{ErrNoToken}, errs...)...)
}

// Options mirrors the identity configuration section.
type Options struct {
	Strategy        []string
	GcloudPath      string
	StaticToken     string
	IncludeAudience bool
	Runner          Runner
}

// New builds a chain from opts.Strategy. The static source is skipped when
// no token is configured.
func New(opts Options) (ChainTokenSource, error) {
	var chain ChainTokenSource
	for _, name := range opts.Strategy {
		switch strings.TrimSpace(name) {
		case "static":
			if opts.StaticToken != "" {
				chain = append(chain, StaticTokenSource(opts.StaticToken))
			}
		case "metadata":
			chain = append(chain, MetadataTokenSource{})
		case "gcloud":
			chain = append(chain, GcloudTokenSource{Path: opts.GcloudPath, IncludeAudience: opts.IncludeAudience, Runner: opts.Runner})
		default:
			return nil, fmt.Errorf("identity: unknown strategy %q", name)
		}
	}
	return chain, nil
}

// NewFromConfig builds the chain described by the identity config section.
func NewFromConfig(cfg config.IdentityConfig) (ChainTokenSource, error) {
	return New(Options{
		Strategy:        cfg.Strategy,
		GcloudPath:      cfg.GcloudPath,
		StaticToken:     cfg.StaticToken,
		IncludeAudience: cfg.IncludeAudience,
	})
}
