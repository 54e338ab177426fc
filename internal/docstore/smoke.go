package docstore

import (
	"context"
	"time"
)

// SmokeReport is the outcome of a single-document connectivity check.
type SmokeReport struct {
	Backend    string        `json:"backend"`
	Collection string        `json:"collection"`
	ID         string        `json:"id"`
	Exists     bool          `json:"exists"`
	Keys       []string      `json:"keys"`
	UpdateTime time.Time     `json:"updateTime,omitempty"`
	Latency    time.Duration `json:"latency"`
	Err        error         `json:"-"`
	Error      string        `json:"error,omitempty"`
}

// OK reports a successful read of an existing document.
func (r SmokeReport) OK() bool { return r.Err == nil && r.Exists }

// Smoke fetches one document and reports whether it exists and which fields
// it has.
func Smoke(ctx context.Context, store Store, collection, id string) SmokeReport {
	rep := SmokeReport{Backend: store.Backend(), Collection: collection, ID: id, Keys: []string{}}
	start := time.Now()
	doc, err := store.Get(ctx, collection, id)
	rep.Latency = time.Since(start)
	if err != nil {
		rep.Err = err
		rep.Error = err.Error()
		return rep
	}
	rep.Exists = doc.Exists
	rep.Keys = doc.Keys()
	rep.UpdateTime = doc.UpdateTime
	return rep
}
