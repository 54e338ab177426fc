package checksvc

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/delimatsuo/headhunter-sub005/internal/config"
	"github.com/delimatsuo/headhunter-sub005/internal/docstore"
	"github.com/delimatsuo/headhunter-sub005/internal/history"
	"github.com/delimatsuo/headhunter-sub005/internal/identity"
	"github.com/delimatsuo/headhunter-sub005/internal/runtime"
	"github.com/delimatsuo/headhunter-sub005/internal/sqlintrospect"
	pebblestore "github.com/delimatsuo/headhunter-sub005/internal/storage/pebble"
	logpkg "github.com/delimatsuo/headhunter-sub005/pkg/log"
)

func newTestService(t *testing.T, mutate func(*config.Config), opts ...Option) (*Service, *runtime.Runtime) {
	t.Helper()
	cfg := config.Default()
	cfg.Docstore.Backend = "local"
	if mutate != nil {
		mutate(&cfg)
	}
	rt, err := runtime.Open(runtime.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways, Config: cfg})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return New(rt, cfg, nil, opts...), rt
}

func TestHealthRecordsHistory(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path == "/ready" {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"warming"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	svc, rt := newTestService(t, func(c *config.Config) { c.Health.BaseURL = srv.URL },
		WithTokenSource(identity.StaticTokenSource("tok")))

	rep, err := svc.Health(context.Background(), HealthRequest{})
	require.NoError(t, err)
	require.Len(t, rep.Results, 2)
	assert.False(t, rep.OK())
	assert.Equal(t, "/health=200 /ready=503", rep.Summary())
	assert.Equal(t, "Bearer tok", gotAuth)

	last, err := rt.History().Last(CheckHealth)
	require.NoError(t, err)
	assert.False(t, last.OK)
	assert.Equal(t, "/health=200 /ready=503", last.Summary)
	assert.NotEmpty(t, last.Payload)

	rep, err = svc.Health(context.Background(), HealthRequest{Paths: []string{"/health"}, Expect: `json.status == "ok"`})
	require.NoError(t, err)
	assert.True(t, rep.OK())
}

func TestHealthNeedsTarget(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.Health(context.Background(), HealthRequest{})
	assert.Error(t, err)
	_, err = svc.Health(context.Background(), HealthRequest{BaseURL: "http://x", Expect: "status +"})
	assert.Error(t, err)
}

func TestCandidatesAgainstLocalStore(t *testing.T) {
	svc, rt := newTestService(t, nil)
	ctx := context.Background()
	local, err := svc.LocalStore()
	require.NoError(t, err)
	_, err = local.Put(ctx, "candidates", "c1", map[string]any{"name": "Ada"})
	require.NoError(t, err)

	rep, err := svc.Candidates(ctx, CandidatesRequest{IDs: []string{"c1", "c2"}})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Found)
	assert.Equal(t, 1, rep.Missing)
	assert.Equal(t, "local", rep.Backend)

	last, err := rt.History().Last(CheckCandidates)
	require.NoError(t, err)
	assert.Equal(t, "local/candidates", last.Target)
	assert.False(t, last.OK)
}

func TestCandidatesStoreOpenFailureIsReported(t *testing.T) {
	noStore := func(context.Context, config.Config, *pebblestore.DB, logpkg.Logger) (docstore.Store, error) {
		return nil, errors.New("no credential strategy worked")
	}
	svc, rt := newTestService(t, func(c *config.Config) { c.Docstore.Backend = "firestore" }, WithStoreOpener(noStore))

	rep, err := svc.Candidates(context.Background(), CandidatesRequest{IDs: []string{"c1", "c2"}})
	require.NoError(t, err)
	assert.False(t, rep.OK())
	assert.Equal(t, 2, rep.Failed)
	require.Len(t, rep.Items, 2)
	assert.Equal(t, "error", rep.Items[1].State())
	assert.Contains(t, rep.Items[0].Error, "no credential strategy worked")

	last, err := rt.History().Last(CheckCandidates)
	require.NoError(t, err)
	assert.False(t, last.OK)
	assert.Equal(t, "firestore/candidates", last.Target)

	_, err = svc.Candidates(context.Background(), CandidatesRequest{})
	assert.Error(t, err, "no ids is still a bad request")
}

func TestSmokeLocal(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	local, _ := svc.LocalStore()
	_, err := local.Put(ctx, "candidates", "c1", map[string]any{"b": 1, "a": 2})
	require.NoError(t, err)

	rep, err := svc.Smoke(ctx, "candidates", "c1")
	require.NoError(t, err)
	assert.True(t, rep.OK())
	assert.Equal(t, []string{"a", "b"}, rep.Keys)

	_, err = svc.Smoke(ctx, "candidates", "")
	assert.Error(t, err)
}

type stubQuerier struct{ typ string }

type stubRow struct{ typ string }

func (r stubRow) Scan(dest ...any) error {
	*dest[0].(*string) = "public"
	*dest[1].(*string) = r.typ
	*dest[2].(*int) = -1
	return nil
}

func (q stubQuerier) QueryRow(context.Context, string, ...any) (sqlintrospect.Row, error) {
	return stubRow(q), nil
}
func (stubQuerier) Dialect() string { return sqlintrospect.DialectPostgres }
func (stubQuerier) Close() error    { return nil }

func TestDimension(t *testing.T) {
	opener := func(_ context.Context, cfg config.SQLConfig, _ identity.Runner) (sqlintrospect.Querier, error) {
		return stubQuerier{typ: "vector(768)"}, nil
	}
	svc, _ := newTestService(t, func(c *config.Config) { c.SQL.Table = "embeddings" }, WithQuerierOpener(opener))

	rep, err := svc.Dimension(context.Background(), DimensionRequest{ExpectDim: 768})
	require.NoError(t, err)
	assert.True(t, rep.OK())
	assert.Equal(t, 768, rep.Dimension)

	rep, err = svc.Dimension(context.Background(), DimensionRequest{ExpectDim: 1536})
	require.NoError(t, err)
	assert.False(t, rep.OK())
	assert.Equal(t, "vector(768) dimension 768, want 1536", rep.Summary())

	entries, _, err := svc.History(CheckDimension, 10, history.Token{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.False(t, entries[0].OK, "newest first")
}

func TestDimensionConnectFailureIsReported(t *testing.T) {
	opener := func(context.Context, config.SQLConfig, identity.Runner) (sqlintrospect.Querier, error) {
		return nil, errors.New("connection refused")
	}
	svc, rt := newTestService(t, func(c *config.Config) { c.SQL.Table = "embeddings" }, WithQuerierOpener(opener))

	rep, err := svc.Dimension(context.Background(), DimensionRequest{})
	require.NoError(t, err)
	assert.False(t, rep.OK())
	assert.Equal(t, "embeddings", rep.Table)
	assert.Equal(t, "error: connection refused", rep.Summary())

	last, err := rt.History().Last(CheckDimension)
	require.NoError(t, err)
	assert.False(t, last.OK)
}

func TestBatchDemo(t *testing.T) {
	svc, _ := newTestService(t, nil)
	res := svc.BatchDemo(context.Background(), DemoRequest{Items: 6, FailEvery: 3, Sleep: time.Millisecond})
	assert.Equal(t, 4, res.ProcessedCount)
	assert.Equal(t, 2, res.FailedCount)
	assert.Equal(t, 8, res.Results[4].Value)
	assert.Error(t, res.Results[2].Err)
	assert.Error(t, res.Results[5].Err)
}

func TestPruneAndNoRuntime(t *testing.T) {
	svc, _ := newTestService(t, nil)
	n, err := svc.Prune(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	bare := New(nil, config.Default(), nil)
	_, _, err = bare.History("", 0, history.Token{})
	assert.ErrorIs(t, err, ErrNoRuntime)
	_, err = bare.LocalStore()
	assert.ErrorIs(t, err, ErrNoRuntime)
}

func TestHealthZeroTimeoutFallsBackToDefault(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	svc, _ := newTestService(t, func(c *config.Config) { c.Health.Timeout = 0 },
		WithTokenSource(identity.StaticTokenSource("tok")))

	rep, err := svc.Health(context.Background(), HealthRequest{GRPCTarget: lis.Addr().String(), GRPCInsecure: true})
	require.NoError(t, err)
	require.NotNil(t, rep.GRPC)
	assert.Equal(t, "SERVING", rep.GRPC.Status)
	assert.True(t, rep.OK())
}
