package checksvc

import (
	"context"
	"fmt"
	"time"

	"github.com/delimatsuo/headhunter-sub005/internal/docstore"
)

// Smoke fetches one document from the configured store and records the
// outcome.
func (s *Service) Smoke(ctx context.Context, collection, id string) (docstore.SmokeReport, error) {
	if collection == "" {
		collection = s.cfg.Docstore.Collection
	}
	if id == "" {
		id = s.cfg.Docstore.DocumentID
	}
	if err := docstore.ValidateName("collection", collection); err != nil {
		return docstore.SmokeReport{}, err
	}
	if err := docstore.ValidateName("document id", id); err != nil {
		return docstore.SmokeReport{}, err
	}
	started := time.Now()
	store, err := s.store(ctx)
	if err != nil {
		rep := docstore.SmokeReport{Backend: s.cfg.Docstore.Backend, Collection: collection, ID: id, Err: err, Error: err.Error()}
		s.record(ctx, CheckDocstore, collection+"/"+id, false, "open failed: "+err.Error(), started, rep)
		return rep, nil
	}
	defer store.Close()

	rep := docstore.Smoke(ctx, store, collection, id)
	summary := "missing"
	switch {
	case rep.Err != nil:
		summary = "error: " + rep.Error
	case rep.Exists:
		summary = fmt.Sprintf("exists (%d fields)", len(rep.Keys))
	}
	s.record(ctx, CheckDocstore, rep.Backend+"/"+collection+"/"+id, rep.OK(), summary, started, rep)
	return rep, nil
}

// LocalStore returns the pebble-backed store used for fixtures.
func (s *Service) LocalStore() (*docstore.LocalStore, error) {
	if s.rt == nil {
		return nil, ErrNoRuntime
	}
	return s.rt.LocalDocs(), nil
}
