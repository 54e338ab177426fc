package candidates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/delimatsuo/headhunter-sub005/internal/batch"
	"github.com/delimatsuo/headhunter-sub005/internal/docstore"
	"github.com/delimatsuo/headhunter-sub005/internal/expect"
	"github.com/delimatsuo/headhunter-sub005/pkg/log"
)

// ErrNoIDs is returned when there is nothing to check.
var ErrNoIDs = errors.New("candidates: no ids to check")

// Item is the outcome for one id.
type Item struct {
	ID      string        `json:"id"`
	Exists  bool          `json:"exists"`
	Keys    []string      `json:"keys,omitempty"`
	Expect  *bool         `json:"expect,omitempty"`
	Latency time.Duration `json:"latency"`
	Err     error         `json:"-"`
	Error   string        `json:"error,omitempty"`
}

// State is "exists", "missing", "expectation failed" or "error".
func (i Item) State() string {
	switch {
	case i.Err != nil:
		return "error"
	case !i.Exists:
		return "missing"
	case i.Expect != nil && !*i.Expect:
		return "expectation failed"
	default:
		return "exists"
	}
}

// Report aggregates a Check run.
type Report struct {
	Collection string `json:"collection"`
	Backend    string `json:"backend"`
	Items      []Item `json:"items"`
	Found      int    `json:"found"`
	Missing    int    `json:"missing"`
	Failed     int    `json:"failed"`
	// Unmet counts existing documents whose expectation was false.
	Unmet   int           `json:"unmet"`
	Elapsed time.Duration `json:"elapsed"`
}

// Unreachable reports every id as failed with err, for when the store could
// not be opened.
func Unreachable(collection, backend string, ids []string, err error) Report {
	rep := Report{Collection: collection, Backend: backend, Items: make([]Item, len(ids)), Failed: len(ids)}
	for i, id := range ids {
		rep.Items[i] = Item{ID: id, Err: err, Error: err.Error()}
	}
	return rep
}

// OK is true iff every id exists, none failed and all expectations held.
func (r Report) OK() bool {
	return r.Missing == 0 && r.Failed == 0 && r.Unmet == 0 && len(r.Items) > 0
}

// Summary is a one-line description used for history entries.
func (r Report) Summary() string {
	return fmt.Sprintf("%d found, %d missing, %d failed, %d unmet", r.Found, r.Missing, r.Failed, r.Unmet)
}

// Checker verifies that known documents exist.
type Checker struct {
	Store      docstore.Store
	Collection string
	// Expect is evaluated for every existing document with doc, id, exists.
	Expect        *expect.Expr
	MaxConcurrent int
	Logger        log.Logger
}

// Dedupe trims ids, drops duplicates keeping first-seen order, and rejects
// blanks.
func Dedupe(ids []string) ([]string, error) {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for i, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("candidates: id #%d is blank", i+1)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, ErrNoIDs
	}
	return out, nil
}

// Check fetches every id with bounded concurrency and reports, in input
// order, which exist. The returned error covers invalid input only.
func (c *Checker) Check(ctx context.Context, ids []string) (Report, error) {
	if c.Store == nil {
		return Report{}, errors.New("candidates: no document store")
	}
	if err := docstore.ValidateName("collection", c.Collection); err != nil {
		return Report{}, err
	}
	unique, err := Dedupe(ids)
	if err != nil {
		return Report{}, err
	}

	p := batch.NewFromOptions[string, Item](batch.Options{MaxConcurrent: c.MaxConcurrent, Logger: c.Logger})
	res := p.ProcessBatch(ctx, unique, c.checkOne)

	rep := Report{Collection: c.Collection, Backend: c.Store.Backend(), Items: make([]Item, len(unique)), Elapsed: res.Elapsed}
	for i, r := range res.Results {
		it := r.Value
		if r.Err != nil {
			it = Item{ID: unique[i], Err: r.Err, Error: r.Err.Error(), Latency: r.Duration}
		}
		rep.Items[i] = it
		switch it.State() {
		case "error":
			rep.Failed++
		case "missing":
			rep.Missing++
		case "expectation failed":
			rep.Found++
			rep.Unmet++
		default:
			rep.Found++
		}
	}
	return rep, nil
}

func (c *Checker) checkOne(ctx context.Context, id string) (Item, error) {
	start := time.Now()
	doc, err := c.Store.Get(ctx, c.Collection, id)
	if err != nil {
		return Item{}, err
	}
	it := Item{ID: id, Exists: doc.Exists, Keys: doc.Keys(), Latency: time.Since(start)}
	if doc.Exists && c.Expect.Enabled() {
		ok, err := c.Expect.Eval(map[string]any{
			"doc":    expect.Normalize(doc.Data),
			"id":     id,
			"exists": doc.Exists,
		})
		if err != nil {
			return Item{}, err
		}
		it.Expect = &ok
	}
	return it, nil
}
