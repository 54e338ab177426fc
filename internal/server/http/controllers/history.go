package controllers

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/delimatsuo/headhunter-sub005/internal/history"
	checksvc "github.com/delimatsuo/headhunter-sub005/internal/services/checks"
)

// HistoryController lists recorded runs.
type HistoryController struct {
	svc *checksvc.Service
}

// NewHistoryController creates a new history controller.
func NewHistoryController(svc *checksvc.Service) *HistoryController {
	return &HistoryController{svc: svc}
}

// RegisterRoutes registers GET /v1/history.
func (c *HistoryController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/history", c.handleList)
}

// handleList returns runs newest first. Query: check, limit, start (opaque
// token from a previous response).
func (c *HistoryController) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	q := r.URL.Query()
	var start history.Token
	if s := q.Get("start"); s != "" {
		b, err := base64.RawURLEncoding.DecodeString(s)
		if err != nil || len(b) != len(start) {
			writeError(w, http.StatusBadRequest, "Invalid start token")
			return
		}
		copy(start[:], b)
	}
	entries, next, err := c.svc.History(q.Get("check"), parseLimit(q.Get("limit")), start)
	if errors.Is(err, checksvc.ErrNoRuntime) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read history")
		return
	}
	resp := historyResp{Entries: entries}
	if next != (history.Token{}) {
		resp.Next = base64.RawURLEncoding.EncodeToString(next[:])
	}
	writeJSON(w, resp)
}
