package controllers

import (
	"time"

	"github.com/delimatsuo/headhunter-sub005/internal/history"
)

// maxDemoItems bounds POST /v1/checks/batch.
const maxDemoItems = 10000

// smokeReq selects the document for the docstore smoke test.
type smokeReq struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

// checkResp wraps every check report.
type checkResp struct {
	OK     bool `json:"ok"`
	Report any  `json:"report"`
}

type lastRun struct {
	OK      bool      `json:"ok"`
	Summary string    `json:"summary"`
	At      time.Time `json:"at"`
}

type readyResp struct {
	Status string             `json:"status"`
	Last   map[string]lastRun `json:"last"`
}

type historyResp struct {
	Entries []history.Entry `json:"entries"`
	Next    string          `json:"next,omitempty"`
}
