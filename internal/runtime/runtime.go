package runtime

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	cfgpkg "github.com/delimatsuo/headhunter-sub005/internal/config"
	"github.com/delimatsuo/headhunter-sub005/internal/docstore"
	"github.com/delimatsuo/headhunter-sub005/internal/history"
	pebblestore "github.com/delimatsuo/headhunter-sub005/internal/storage/pebble"
	"github.com/delimatsuo/headhunter-sub005/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	DataDir string
	Fsync   pebblestore.FsyncMode
	Config  cfgpkg.Config
	Logger  log.Logger
}

// StoreDir is where the pebble store lives under a data directory.
func StoreDir(dataDir string) string { return filepath.Join(dataDir, "store") }

// Runtime owns the local pebble store and the facades built on it.
type Runtime struct {
	db      *pebblestore.DB
	config  cfgpkg.Config
	history *history.Log
	docs    *docstore.LocalStore
	logger  log.Logger
}

// Open initializes the underlying storage and returns a Runtime. When history
// is enabled, retention is applied once at open.
func Open(opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewLogger(log.WithOutput(log.NullOutput{}))
	}
	logger = logger.WithComponent("runtime")

	db, err := pebblestore.Open(pebblestore.Options{DataDir: opts.DataDir, Fsync: opts.Fsync, Logger: logger})
	if err != nil {
		return nil, err
	}
	hist, err := history.Open(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	rt := &Runtime{
		db:      db,
		config:  opts.Config,
		history: hist,
		docs:    docstore.NewLocal(db),
		logger:  logger,
	}
	if opts.Config.History.Enabled {
		rt.applyRetention(context.Background())
	}
	return rt, nil
}

func (r *Runtime) applyRetention(ctx context.Context) {
	hc := r.config.History
	if d := hc.Retention.D(); d > 0 {
		n, err := r.history.TrimOlderThan(ctx, time.Now().Add(-d))
		if err != nil {
			r.logger.Warn("history retention failed", log.Err(err))
		} else if n > 0 {
			r.logger.Debug("history trimmed", log.Int("removed", n), log.Dur("olderThan", d))
		}
	}
	if hc.MaxEntries > 0 {
		if _, err := r.history.TrimToMaxEntries(ctx, hc.MaxEntries); err != nil {
			r.logger.Warn("history cap failed", log.Err(err))
		}
	}
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	_ = r.docs.Close()
	err := r.db.Close()
	r.db = nil
	return err
}

// CheckHealth verifies the store still answers reads.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("runtime: store not open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Ping()
}

// Record appends a finished check to history. It never fails the caller:
// errors are logged at warn. It is a no-op when history is disabled.
func (r *Runtime) Record(ctx context.Context, e history.Entry) {
	if !r.config.History.Enabled || r.db == nil {
		return
	}
	out, err := r.history.Append(ctx, []history.Entry{e})
	if err != nil {
		r.logger.WithContext(ctx).Warn("history append failed", log.Check(e.Check), log.Err(err))
		return
	}
	r.logger.Debug("history recorded", log.Check(e.Check), log.Str("id", out[0].ID.Short()))
}

// History returns the run history log.
func (r *Runtime) History() *history.Log { return r.history }

// LocalDocs returns the pebble-backed document store.
func (r *Runtime) LocalDocs() *docstore.LocalStore { return r.docs }

// DB exposes the underlying DB for advanced operations (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
