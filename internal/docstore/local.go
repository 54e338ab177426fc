package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	pebblestore "github.com/delimatsuo/headhunter-sub005/internal/storage/pebble"
)

// Keyspace:
//   - docmeta/{collection}       collection metadata
//   - doc/{collection}/{id}      JSON-encoded document

var (
	docPrefix  = []byte("doc/")
	metaPrefix = []byte("docmeta/")
)

func docKey(collection, id string) []byte {
	k := make([]byte, 0, len(docPrefix)+len(collection)+len(id)+1)
	k = append(k, docPrefix...)
	k = append(k, collection...)
	k = append(k, '/')
	return append(k, id...)
}

func collectionPrefix(collection string) []byte {
	return docKey(collection, "")
}

func metaKey(collection string) []byte {
	k := make([]byte, 0, len(metaPrefix)+len(collection))
	k = append(k, metaPrefix...)
	return append(k, collection...)
}

// CollectionMeta describes a local collection.
type CollectionMeta struct {
	Name        string `json:"name"`
	CreatedAtMs int64  `json:"createdAtMs"`
}

type storedDoc struct {
	Data         map[string]any `json:"data"`
	UpdateTimeMs int64          `json:"updateTimeMs"`
}

// LocalStore keeps documents in the process's pebble database, for seeding
// fixtures and running checks offline. The database is owned by the caller.
type LocalStore struct {
	db *pebblestore.DB

	mu     sync.RWMutex
	closed bool
}

// NewLocal wraps db.
func NewLocal(db *pebblestore.DB) *LocalStore { return &LocalStore{db: db} }

// Backend implements Store.
func (s *LocalStore) Backend() string { return "local" }

func (s *LocalStore) check() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed || s.db == nil {
		return ErrClosed
	}
	return nil
}

// EnsureCollection creates collection metadata if absent and returns it.
// Idempotent; unreadable metadata is rewritten.
func (s *LocalStore) EnsureCollection(name string) (CollectionMeta, error) {
	if err := s.check(); err != nil {
		return CollectionMeta{}, err
	}
	if err := ValidateName("collection", name); err != nil {
		return CollectionMeta{}, err
	}
	key := metaKey(name)
	if b, err := s.db.Get(key); err == nil && len(b) > 0 {
		var m CollectionMeta
		if err := json.Unmarshal(b, &m); err == nil {
			return m, nil
		}
	}
	m := CollectionMeta{Name: name, CreatedAtMs: time.Now().UnixMilli()}
	b, err := json.Marshal(m)
	if err != nil {
		return CollectionMeta{}, err
	}
	if err := s.db.Set(key, b); err != nil {
		return CollectionMeta{}, err
	}
	return m, nil
}

// Collections lists local collections in name order.
func (s *LocalStore) Collections() ([]CollectionMeta, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	var out []CollectionMeta
	err := s.db.ScanPrefix(metaPrefix, nil, 0, func(_, v []byte) bool {
		var m CollectionMeta
		if json.Unmarshal(v, &m) == nil {
			out = append(out, m)
		}
		return true
	})
	return out, err
}

// Put stores data under collection/id, creating the collection if needed.
func (s *LocalStore) Put(ctx context.Context, collection, id string, data map[string]any) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if err := ValidateName("document id", id); err != nil {
		return Document{}, err
	}
	if _, err := s.EnsureCollection(collection); err != nil {
		return Document{}, err
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	b, err := json.Marshal(storedDoc{Data: data, UpdateTimeMs: now.UnixMilli()})
	if err != nil {
		return Document{}, fmt.Errorf("docstore: encode %s/%s: %w", collection, id, err)
	}
	if err := s.db.Set(docKey(collection, id), b); err != nil {
		return Document{}, err
	}
	return Document{ID: id, Collection: collection, Exists: true, Data: data, UpdateTime: now}, nil
}

// Delete removes collection/id. Deleting a missing document is not an error.
func (s *LocalStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.check(); err != nil {
		return err
	}
	if err := ValidateName("collection", collection); err != nil {
		return err
	}
	if err := ValidateName("document id", id); err != nil {
		return err
	}
	return s.db.Delete(docKey(collection, id))
}

// Get implements Store.
func (s *LocalStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if err := s.check(); err != nil {
		return Document{}, err
	}
	if err := ValidateName("collection", collection); err != nil {
		return Document{}, err
	}
	if err := ValidateName("document id", id); err != nil {
		return Document{}, err
	}
	b, err := s.db.Get(docKey(collection, id))
	if err != nil {
		if errors.Is(err, pebblestore.ErrNotFound) {
			return Document{ID: id, Collection: collection}, nil
		}
		return Document{}, err
	}
	return decodeLocal(collection, id, b)
}

// GetAll implements Store.
func (s *LocalStore) GetAll(ctx context.Context, collection string, ids []string) ([]Document, error) {
	out := make([]Document, len(ids))
	for i, id := range ids {
		d, err := s.Get(ctx, collection, id)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

// List returns up to limit documents (0 = all) from collection in id order.
// ErrNotFound is returned for an unknown collection.
func (s *LocalStore) List(ctx context.Context, collection string, limit int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.check(); err != nil {
		return nil, err
	}
	if err := ValidateName("collection", collection); err != nil {
		return nil, err
	}
	if _, err := s.db.Get(metaKey(collection)); err != nil {
		if errors.Is(err, pebblestore.ErrNotFound) {
			return nil, fmt.Errorf("%w: collection %q", ErrNotFound, collection)
		}
		return nil, err
	}
	prefix := collectionPrefix(collection)
	var (
		out     []Document
		scanErr error
	)
	err := s.db.ScanPrefix(prefix, nil, limit, func(k, v []byte) bool {
		d, err := decodeLocal(collection, string(k[len(prefix):]), v)
		if err != nil {
			scanErr = err
			return false
		}
		out = append(out, d)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, scanErr
}

func decodeLocal(collection, id string, b []byte) (Document, error) {
	var sd storedDoc
	if err := json.Unmarshal(b, &sd); err != nil {
		return Document{}, fmt.Errorf("docstore: decode %s/%s: %w", collection, id, err)
	}
	return Document{
		ID:         id,
		Collection: collection,
		Exists:     true,
		Data:       sd.Data,
		UpdateTime: time.UnixMilli(sd.UpdateTimeMs).UTC(),
	}, nil
}

// Close marks the store closed. The underlying database stays open.
func (s *LocalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
