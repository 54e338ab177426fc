package checksvc

import (
	"context"
	"time"

	"github.com/delimatsuo/headhunter-sub005/internal/candidates"
	"github.com/delimatsuo/headhunter-sub005/internal/docstore"
	"github.com/delimatsuo/headhunter-sub005/internal/expect"
	logpkg "github.com/delimatsuo/headhunter-sub005/pkg/log"
)

// CandidatesRequest overrides the configured candidate check.
type CandidatesRequest struct {
	Collection string   `json:"collection,omitempty"`
	IDs        []string `json:"ids,omitempty"`
	Expect     string   `json:"expect,omitempty"`
}

// Candidates checks that every id exists in the configured document store.
func (s *Service) Candidates(ctx context.Context, req CandidatesRequest) (candidates.Report, error) {
	cc := s.cfg.Candidates
	if req.Collection == "" {
		req.Collection = cc.Collection
	}
	if len(req.IDs) == 0 {
		req.IDs = cc.IDs
	}
	if req.Expect == "" {
		req.Expect = cc.Expect
	}
	exp, err := expect.Compile(req.Expect, expect.DocumentVars)
	if err != nil {
		return candidates.Report{}, err
	}
	ids, err := candidates.Dedupe(req.IDs)
	if err != nil {
		return candidates.Report{}, err
	}
	started := time.Now()
	store, err := s.store(ctx)
	if err != nil {
		rep := candidates.Unreachable(req.Collection, s.cfg.Docstore.Backend, ids, err)
		rep.Elapsed = time.Since(started)
		s.logger.Warn("candidate check could not open the store", logpkg.Str("backend", rep.Backend), logpkg.Err(err))
		s.record(ctx, CheckCandidates, rep.Backend+"/"+rep.Collection, false, "open failed: "+err.Error(), started, rep)
		return rep, nil
	}
	defer store.Close()

	c := &candidates.Checker{
		Store:         store,
		Collection:    req.Collection,
		Expect:        exp,
		MaxConcurrent: cc.MaxConcurrent,
		Logger:        s.logger,
	}
	rep, err := c.Check(ctx, ids)
	if err != nil {
		return rep, err
	}
	s.logger.Info("candidate check finished",
		logpkg.Str("collection", rep.Collection),
		logpkg.Int("found", rep.Found),
		logpkg.Int("missing", rep.Missing),
		logpkg.Int("failed", rep.Failed))
	s.record(ctx, CheckCandidates, rep.Backend+"/"+rep.Collection, rep.OK(), rep.Summary(), started, rep)
	return rep, nil
}

func (s *Service) store(ctx context.Context) (docstore.Store, error) {
	return s.openStore(ctx, s.cfg, s.db(), s.logger)
}
