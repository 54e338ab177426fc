package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/delimatsuo/headhunter-sub005/internal/runtime"
	checksvc "github.com/delimatsuo/headhunter-sub005/internal/services/checks"
	"github.com/delimatsuo/headhunter-sub005/internal/server/http/controllers"
	logpkg "github.com/delimatsuo/headhunter-sub005/pkg/log"
)

// Server is the sidecar's JSON API.
type Server struct {
	rt       *runtime.Runtime
	srv      *http.Server
	lis      net.Listener
	logger   logpkg.Logger
	registry *controllers.ControllerRegistry
}

// New builds the server and registers every controller.
func New(rt *runtime.Runtime, svc *checksvc.Service, logger logpkg.Logger) *Server {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	logger = logger.With(logpkg.Component("http"))
	mux := http.NewServeMux()
	reg := controllers.NewControllerRegistry(rt, svc)
	reg.RegisterAllRoutes(mux)
	s := &Server{
		rt:       rt,
		logger:   logger,
		registry: reg,
		srv: &http.Server{
			Handler:           accessLog(logger, cors(mux)),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	return s
}

// Handler exposes the root handler for tests and embedding.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// ListenAndServe binds addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("http listening", logpkg.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		s.registry.SetDraining()
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Close stops accepting connections.
func (s *Server) Close() {
	s.registry.SetDraining()
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func accessLog(logger logpkg.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("request",
			logpkg.Str("method", r.Method),
			logpkg.Str("path", r.URL.Path),
			logpkg.Int("status", rec.status),
			logpkg.Dur("elapsed", time.Since(start)))
	})
}
