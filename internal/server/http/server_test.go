package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	cfgpkg "github.com/delimatsuo/headhunter-sub005/internal/config"
	"github.com/delimatsuo/headhunter-sub005/internal/docstore"
	"github.com/delimatsuo/headhunter-sub005/internal/runtime"
	checksvc "github.com/delimatsuo/headhunter-sub005/internal/services/checks"
	pebblestore "github.com/delimatsuo/headhunter-sub005/internal/storage/pebble"
	logpkg "github.com/delimatsuo/headhunter-sub005/pkg/log"
)

func newTestServer(t *testing.T, cfg cfgpkg.Config) (*Server, *runtime.Runtime) {
	t.Helper()
	rt, err := runtime.Open(runtime.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways, Config: cfg})
	if err != nil {
		t.Fatalf("rt open: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	logger, _ := logpkg.ApplyConfig(&logpkg.Config{Level: "error", Format: "text"})
	return New(rt, checksvc.New(rt, cfg, logger), logger), rt
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthHandler(t *testing.T) {
	s, _ := newTestServer(t, cfgpkg.Default())
	w := do(t, s, http.MethodGet, "/v1/healthz", "")
	if w.Code != 200 {
		t.Fatalf("status: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("body: %s", w.Body.String())
	}
}

func TestReadyAndDraining(t *testing.T) {
	s, _ := newTestServer(t, cfgpkg.Default())
	if w := do(t, s, http.MethodGet, "/v1/readyz", ""); w.Code != http.StatusOK {
		t.Fatalf("ready status: %d", w.Code)
	}
	s.Close()
	if w := do(t, s, http.MethodGet, "/v1/readyz", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("draining status: %d", w.Code)
	}
}

func TestHealthCheckEndpoint(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer target.Close()

	cfg := cfgpkg.Default()
	cfg.Identity.Strategy = nil
	s, _ := newTestServer(t, cfg)

	body := `{"baseURL":"` + target.URL + `","paths":["/health"]}`
	w := do(t, s, http.MethodPost, "/v1/checks/health", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d body %s", w.Code, w.Body.String())
	}
	var resp struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.OK {
		t.Fatalf("expected ok report: %s", w.Body.String())
	}

	w = do(t, s, http.MethodGet, "/v1/history?check=health", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"check":"health"`) {
		t.Fatalf("history: %d %s", w.Code, w.Body.String())
	}
	w = do(t, s, http.MethodGet, "/v1/readyz", "")
	if !strings.Contains(w.Body.String(), `"health"`) {
		t.Fatalf("ready should list last health run: %s", w.Body.String())
	}
}

func TestChecksRejectBadInput(t *testing.T) {
	s, _ := newTestServer(t, cfgpkg.Default())
	if w := do(t, s, http.MethodGet, "/v1/checks/health", ""); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status: %d", w.Code)
	}
	if w := do(t, s, http.MethodPost, "/v1/checks/health", `{"bogus":1}`); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown field status: %d", w.Code)
	}
	if w := do(t, s, http.MethodPost, "/v1/checks/health", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("no target status: %d", w.Code)
	}
	if w := do(t, s, http.MethodGet, "/v1/history?start=???", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad token status: %d", w.Code)
	}
}

func TestBatchEndpoint(t *testing.T) {
	s, _ := newTestServer(t, cfgpkg.Default())
	w := do(t, s, http.MethodPost, "/v1/checks/batch", `{"items":4,"failEvery":2}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	var resp struct {
		OK     bool `json:"ok"`
		Report struct {
			ProcessedCount int `json:"processedCount"`
			FailedCount    int `json:"failedCount"`
		} `json:"report"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.OK || resp.Report.ProcessedCount != 2 || resp.Report.FailedCount != 2 {
		t.Fatalf("unexpected: %s", w.Body.String())
	}
}

func TestCandidatesStoreFailureIsAReport(t *testing.T) {
	cfg := cfgpkg.Default()
	rt, err := runtime.Open(runtime.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways, Config: cfg})
	if err != nil {
		t.Fatalf("rt open: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	logger, _ := logpkg.ApplyConfig(&logpkg.Config{Level: "error", Format: "text"})
	noStore := func(context.Context, cfgpkg.Config, *pebblestore.DB, logpkg.Logger) (docstore.Store, error) {
		return nil, errors.New("no credential strategy worked")
	}
	s := New(rt, checksvc.New(rt, cfg, logger, checksvc.WithStoreOpener(noStore)), logger)

	w := do(t, s, http.MethodPost, "/v1/checks/candidates", `{"ids":["c1"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", w.Code, w.Body.String())
	}
	var resp struct {
		OK     bool `json:"ok"`
		Report struct {
			Failed int `json:"failed"`
		} `json:"report"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.OK || resp.Report.Failed != 1 {
		t.Fatalf("unexpected response: %s", w.Body.String())
	}

	w = do(t, s, http.MethodGet, "/v1/history?check=candidates", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "open failed") {
		t.Fatalf("history: %d %s", w.Code, w.Body.String())
	}
}
