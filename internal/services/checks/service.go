package checksvc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/delimatsuo/headhunter-sub005/internal/config"
	"github.com/delimatsuo/headhunter-sub005/internal/docstore"
	"github.com/delimatsuo/headhunter-sub005/internal/history"
	"github.com/delimatsuo/headhunter-sub005/internal/identity"
	"github.com/delimatsuo/headhunter-sub005/internal/runtime"
	"github.com/delimatsuo/headhunter-sub005/internal/sqlintrospect"
	pebblestore "github.com/delimatsuo/headhunter-sub005/internal/storage/pebble"
	logpkg "github.com/delimatsuo/headhunter-sub005/pkg/log"
)

// Check names recorded in history.
const (
	CheckHealth     = "health"
	CheckCandidates = "candidates"
	CheckDimension  = "dimension"
	CheckDocstore   = "docstore"
	CheckBatch      = "batch"
)

// ErrNoRuntime is returned by operations that need local state when the
// service was built without a runtime.
var ErrNoRuntime = errors.New("checks: local state unavailable")

// StoreOpener opens the configured document store.
type StoreOpener func(ctx context.Context, cfg config.Config, db *pebblestore.DB, logger logpkg.Logger) (docstore.Store, error)

// QuerierOpener opens the configured SQL querier.
type QuerierOpener func(ctx context.Context, cfg config.SQLConfig, run identity.Runner) (sqlintrospect.Querier, error)

// Service runs the diagnostics checks shared by the CLI and the sidecar
// server and records every run in history.
type Service struct {
	rt     *runtime.Runtime
	cfg    config.Config
	logger logpkg.Logger

	httpClient  *http.Client
	runner      identity.Runner
	openStore   StoreOpener
	openQuerier QuerierOpener

	tokensOnce sync.Once
	tokens     identity.TokenSource
	tokensErr  error
}

// Option customizes a Service.
type Option func(*Service)

// WithTokenSource replaces the identity chain built from config.
func WithTokenSource(ts identity.TokenSource) Option {
	return func(s *Service) {
		s.tokensOnce.Do(func() { s.tokens = ts })
	}
}

// WithHTTPClient sets the client used by health probes.
func WithHTTPClient(c *http.Client) Option { return func(s *Service) { s.httpClient = c } }

// WithRunner sets the command runner used for gcloud and psql.
func WithRunner(r identity.Runner) Option { return func(s *Service) { s.runner = r } }

// WithStoreOpener overrides how the document store is opened.
func WithStoreOpener(fn StoreOpener) Option { return func(s *Service) { s.openStore = fn } }

// WithQuerierOpener overrides how the SQL querier is opened.
func WithQuerierOpener(fn QuerierOpener) Option { return func(s *Service) { s.openQuerier = fn } }

// New returns a Service. rt may be nil, in which case nothing is recorded and
// the local document backend is unavailable.
func New(rt *runtime.Runtime, cfg config.Config, logger logpkg.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	s := &Service{
		rt:          rt,
		cfg:         cfg,
		logger:      logger.With(logpkg.Component("checks")),
		runner:      identity.ExecRunner,
		openStore:   docstore.Open,
		openQuerier: sqlintrospect.Open,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the configuration the service was built with.
func (s *Service) Config() config.Config { return s.cfg }

func (s *Service) tokenSource() (identity.TokenSource, error) {
	s.tokensOnce.Do(func() {
		chain, err := identity.New(identity.Options{
			Strategy:        s.cfg.Identity.Strategy,
			GcloudPath:      s.cfg.Identity.GcloudPath,
			StaticToken:     s.cfg.Identity.StaticToken,
			IncludeAudience: s.cfg.Identity.IncludeAudience,
			Runner:          s.runner,
		})
		if err != nil {
			s.tokensErr = err
			return
		}
		s.tokens = chain
	})
	return s.tokens, s.tokensErr
}

func (s *Service) db() *pebblestore.DB {
	if s.rt == nil {
		return nil
	}
	return s.rt.DB()
}

// record appends a run to history. Failures are logged by the runtime.
func (s *Service) record(ctx context.Context, check, target string, ok bool, summary string, started time.Time, payload any) {
	if s.rt == nil {
		return
	}
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			s.logger.Warn("history payload encode failed", logpkg.Check(check), logpkg.Err(err))
		} else {
			raw = b
		}
	}
	s.rt.Record(ctx, history.Entry{
		Check:     check,
		Target:    target,
		OK:        ok,
		Summary:   summary,
		StartedAt: started,
		Duration:  time.Since(started),
		Payload:   raw,
	})
}

// History reads recorded runs, newest first.
func (s *Service) History(check string, limit int, start history.Token) ([]history.Entry, history.Token, error) {
	if s.rt == nil {
		return nil, history.Token{}, ErrNoRuntime
	}
	if limit <= 0 {
		limit = 20
	}
	return s.rt.History().Read(history.ReadOptions{Start: start, Limit: limit, Reverse: true, Check: check})
}

// Prune applies retention by age and reports how many runs were removed.
func (s *Service) Prune(ctx context.Context, olderThan time.Duration) (int, error) {
	if s.rt == nil {
		return 0, ErrNoRuntime
	}
	if olderThan <= 0 {
		return 0, errors.New("checks: prune needs a positive age")
	}
	return s.rt.History().TrimOlderThan(ctx, time.Now().Add(-olderThan))
}
