package serverrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	cfgpkg "github.com/delimatsuo/headhunter-sub005/internal/config"
	"github.com/delimatsuo/headhunter-sub005/internal/runtime"
	grpcserver "github.com/delimatsuo/headhunter-sub005/internal/server/grpc"
	httpserver "github.com/delimatsuo/headhunter-sub005/internal/server/http"
	checksvc "github.com/delimatsuo/headhunter-sub005/internal/services/checks"
	pebblestore "github.com/delimatsuo/headhunter-sub005/internal/storage/pebble"
	logpkg "github.com/delimatsuo/headhunter-sub005/pkg/log"
)

// Options configures Run.
type Options struct {
	DataDir  string
	GRPCAddr string
	HTTPAddr string
	Fsync    pebblestore.FsyncMode
	Config   cfgpkg.Config
	// Logger defaults to one built from Config.Log.
	Logger         logpkg.Logger
	ServiceOptions []checksvc.Option
}

// Run starts the gRPC and HTTP servers and blocks until ctx is cancelled or
// SIGINT/SIGTERM arrives. A server that fails to start stops the other and
// its error is returned.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}

	procLogger := opts.Logger
	if procLogger == nil {
		l, err := logpkg.ApplyConfig(&opts.Config.Log)
		if err != nil {
			return err
		}
		procLogger = l
		logpkg.RedirectStdLog(procLogger)
	}

	rt, err := runtime.Open(runtime.Options{
		DataDir: runtime.StoreDir(opts.DataDir),
		Fsync:   opts.Fsync,
		Config:  opts.Config,
		Logger:  procLogger,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	procLogger.Info("starting hhdiag sidecar",
		logpkg.Str("grpc", opts.GRPCAddr),
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("data_dir", opts.DataDir),
		logpkg.Str("level", opts.Config.Log.Level),
		logpkg.Str("format", opts.Config.Log.Format),
	)

	svc := checksvc.New(rt, opts.Config, procLogger, opts.ServiceOptions...)
	gsrv := grpcserver.New(rt, procLogger)
	hsrv := httpserver.New(rt, svc, procLogger)

	rctx, cancel := context.WithCancel(sctx)
	defer cancel()
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(name string, err error) {
		errOnce.Do(func() { firstErr = fmt.Errorf("%s server: %w", name, err) })
		cancel()
	}

	if opts.GRPCAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := gsrv.ListenAndServe(rctx, opts.GRPCAddr); err != nil && rctx.Err() == nil {
				procLogger.Error("grpc server failed", logpkg.Err(err))
				fail("grpc", err)
			}
		}()
	}
	if opts.HTTPAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := hsrv.ListenAndServe(rctx, opts.HTTPAddr); err != nil && rctx.Err() == nil {
				procLogger.Error("http server failed", logpkg.Err(err))
				fail("http", err)
			}
		}()
	}

	<-rctx.Done()
	// Stop serving before the runtime closes underneath the handlers.
	gsrv.Close()
	hsrv.Close()
	wg.Wait()
	procLogger.Info("hhdiag sidecar stopped")
	return firstErr
}
