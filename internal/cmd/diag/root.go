package diag

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/delimatsuo/headhunter-sub005/internal/config"
	"github.com/delimatsuo/headhunter-sub005/internal/runtime"
	checksvc "github.com/delimatsuo/headhunter-sub005/internal/services/checks"
	pebblestore "github.com/delimatsuo/headhunter-sub005/internal/storage/pebble"
	logpkg "github.com/delimatsuo/headhunter-sub005/pkg/log"
)

// ErrCheckFailed is returned when a check ran and found a problem. The
// report has already been printed.
var ErrCheckFailed = errors.New("check failed")

// ExitCode maps a command error to the process exit status: 0 on success,
// 1 for a failed check, 2 for anything else.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrCheckFailed):
		return 1
	default:
		return 2
	}
}

// app carries the state built once per invocation.
type app struct {
	opts   []checksvc.Option
	cfg    config.Config
	logger logpkg.Logger
	rt     *runtime.Runtime
	svc    *checksvc.Service
}

// NewRoot constructs the hhdiag root command. opts are passed to the checks
// service, which lets tests and embedders replace token sources, command
// runners and backends.
func NewRoot(opts ...checksvc.Option) *cobra.Command {
	a := &app{opts: opts}
	root := &cobra.Command{
		Use:   "hhdiag",
		Short: "Operational diagnostics for the headhunter services",
		Long: `hhdiag runs the one-off checks operators reach for while troubleshooting:

  batch demo          exercise the bounded-concurrency batch runner
  health probe        authenticated GETs against /health and /ready, plus gRPC health
  candidates check    confirm known candidate records exist in the document store
  docstore            smoke-test the document store; seed the local fixture store
  sql dimension       report the dimension of a vector column
  history             list and prune recorded runs
  serve               run the checks behind an HTTP/gRPC sidecar

Configuration precedence: flags > HH_* environment > --config file > defaults.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.String("config", os.Getenv("HH_CONFIG"), "Config file (JSON or YAML)")
	pf.String("log-level", "", "Log level: debug|info|warn|error")
	pf.String("log-format", "", "Log format: text|json")
	pf.String("data-dir", "", "Local state directory (default: OS-specific application state directory)")
	pf.Bool("json", false, "Print reports as JSON")
	pf.Bool("no-history", false, "Do not record this run in history")

	root.AddCommand(
		newBatchCommand(a),
		newHealthCommand(a),
		newCandidatesCommand(a),
		newDocstoreCommand(a),
		newSQLCommand(a),
		newHistoryCommand(a),
		newServeCommand(a),
	)
	return root
}

// loadConfig resolves defaults, file, environment and flags in that order.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	config.FromEnv(&cfg)
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetBool("no-history"); v {
		cfg.History.Enabled = false
	}
	return cfg, cfg.Validate()
}

func (a *app) setup(cmd *cobra.Command, withRuntime bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := logpkg.ApplyConfig(&cfg.Log)
	if err != nil {
		return err
	}
	logpkg.RedirectStdLog(logger)
	a.cfg, a.logger = cfg, logger

	if withRuntime {
		rt, err := runtime.Open(runtime.Options{
			DataDir: runtime.StoreDir(cfg.DataDir),
			Fsync:   pebblestore.ParseFsyncMode(cfg.Fsync),
			Config:  cfg,
			Logger:  logger,
		})
		switch {
		case err == nil:
			a.rt = rt
		case cfg.Docstore.Backend == "local":
			return err
		default:
			logger.Warn("local state unavailable; history disabled", logpkg.Str("data_dir", cfg.DataDir), logpkg.Err(err))
		}
	}
	a.svc = checksvc.New(a.rt, cfg, logger, a.opts...)
	return nil
}

func (a *app) close() {
	if a.rt != nil {
		_ = a.rt.Close()
		a.rt = nil
	}
	if c, ok := a.logger.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}

// run wraps a RunE so that configuration, logging and local state are set
// up before fn and released after it, whatever fn returns.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.setup(cmd, true); err != nil {
			return err
		}
		defer a.close()
		return fn(cmd, args)
	}
}

// runNoState is run without opening local state.
func (a *app) runNoState(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.setup(cmd, false); err != nil {
			return err
		}
		defer a.close()
		return fn(cmd, args)
	}
}
