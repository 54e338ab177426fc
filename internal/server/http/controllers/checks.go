package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	checksvc "github.com/delimatsuo/headhunter-sub005/internal/services/checks"
)

// ChecksController runs checks on demand. Each POST body may override the
// configured targets; an empty body uses the configuration as is.
type ChecksController struct {
	svc *checksvc.Service
}

// NewChecksController creates a new checks controller.
func NewChecksController(svc *checksvc.Service) *ChecksController {
	return &ChecksController{svc: svc}
}

// RegisterRoutes registers POST /v1/checks/{health,candidates,dimension,docstore,batch}.
func (c *ChecksController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/checks/health", c.handleHealth)
	mux.HandleFunc("/v1/checks/candidates", c.handleCandidates)
	mux.HandleFunc("/v1/checks/dimension", c.handleDimension)
	mux.HandleFunc("/v1/checks/docstore", c.handleDocstore)
	mux.HandleFunc("/v1/checks/batch", c.handleBatch)
}

// decodeOptional decodes a JSON body into dst, accepting an empty body.
func decodeOptional(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *ChecksController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req checksvc.HealthRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	rep, err := c.svc.Health(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeReport(w, rep.OK(), rep)
}

func (c *ChecksController) handleCandidates(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req checksvc.CandidatesRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	rep, err := c.svc.Candidates(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeReport(w, rep.OK(), rep)
}

func (c *ChecksController) handleDimension(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req checksvc.DimensionRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	rep, err := c.svc.Dimension(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeReport(w, rep.OK(), rep)
}

func (c *ChecksController) handleDocstore(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req smokeReq
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	rep, err := c.svc.Smoke(r.Context(), req.Collection, req.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeReport(w, rep.OK(), rep)
}

func (c *ChecksController) handleBatch(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	req := checksvc.DemoRequest{Items: 10}
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Items < 0 || req.Items > maxDemoItems {
		writeError(w, http.StatusBadRequest, "items out of range")
		return
	}
	res := c.svc.BatchDemo(r.Context(), req)
	writeReport(w, res.Success, res)
}
