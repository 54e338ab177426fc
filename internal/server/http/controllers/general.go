package controllers

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/delimatsuo/headhunter-sub005/internal/history"
	"github.com/delimatsuo/headhunter-sub005/internal/runtime"
	checksvc "github.com/delimatsuo/headhunter-sub005/internal/services/checks"
)

var reportedChecks = []string{
	checksvc.CheckHealth,
	checksvc.CheckCandidates,
	checksvc.CheckDimension,
	checksvc.CheckDocstore,
	checksvc.CheckBatch,
}

// GeneralController serves the sidecar's own liveness and readiness.
type GeneralController struct {
	rt       *runtime.Runtime
	svc      *checksvc.Service
	draining atomic.Bool
}

// NewGeneralController creates a new general controller.
func NewGeneralController(rt *runtime.Runtime, svc *checksvc.Service) *GeneralController {
	return &GeneralController{rt: rt, svc: svc}
}

// RegisterRoutes registers /v1/healthz and /v1/readyz.
func (c *GeneralController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/healthz", c.handleHealth)
	mux.HandleFunc("/v1/readyz", c.handleReady)
}

// handleHealth returns 200 with {"status":"ok"} while the local store answers.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := c.rt.CheckHealth(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_serving")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleReady reports readiness plus the last recorded outcome of each check.
func (c *GeneralController) handleReady(w http.ResponseWriter, r *http.Request) {
	if c.draining.Load() {
		writeError(w, http.StatusServiceUnavailable, "draining")
		return
	}
	if err := c.rt.CheckHealth(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_serving")
		return
	}
	last := map[string]lastRun{}
	for _, name := range reportedChecks {
		e, err := c.rt.History().Last(name)
		if errors.Is(err, history.ErrNotFound) {
			continue
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to read history")
			return
		}
		last[name] = lastRun{OK: e.OK, Summary: e.Summary, At: e.StartedAt}
	}
	writeJSON(w, readyResp{Status: "ready", Last: last})
}
