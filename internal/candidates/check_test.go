package candidates

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delimatsuo/headhunter-sub005/internal/docstore"
	"github.com/delimatsuo/headhunter-sub005/internal/expect"
)

type memStore struct {
	mu    sync.Mutex
	docs  map[string]map[string]any
	fail  map[string]error
	calls map[string]int
}

func (m *memStore) Get(_ context.Context, collection, id string) (docstore.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[id]++
	if err := m.fail[id]; err != nil {
		return docstore.Document{}, err
	}
	data, ok := m.docs[id]
	return docstore.Document{ID: id, Collection: collection, Exists: ok, Data: data}, nil
}

func (m *memStore) GetAll(ctx context.Context, collection string, ids []string) ([]docstore.Document, error) {
	out := make([]docstore.Document, len(ids))
	for i, id := range ids {
		d, err := m.Get(ctx, collection, id)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

func (m *memStore) Backend() string { return "mem" }
func (m *memStore) Close() error    { return nil }

func TestCheckReportsInInputOrder(t *testing.T) {
	store := &memStore{docs: map[string]map[string]any{
		"a": {"name": "Ada"},
		"c": {"name": "Cy"},
	}}
	c := &Checker{Store: store, Collection: "candidates", MaxConcurrent: 2}
	rep, err := c.Check(context.Background(), []string{"c", "b", "a", "c"})
	require.NoError(t, err)

	require.Len(t, rep.Items, 3)
	assert.Equal(t, "c", rep.Items[0].ID)
	assert.Equal(t, "b", rep.Items[1].ID)
	assert.Equal(t, "a", rep.Items[2].ID)
	assert.Equal(t, "exists", rep.Items[0].State())
	assert.Equal(t, "missing", rep.Items[1].State())
	assert.Equal(t, 2, rep.Found)
	assert.Equal(t, 1, rep.Missing)
	assert.False(t, rep.OK())
	assert.Equal(t, 1, store.calls["c"], "duplicates are checked once")
	assert.Equal(t, "mem", rep.Backend)
}

func TestCheckAllFound(t *testing.T) {
	store := &memStore{docs: map[string]map[string]any{"a": {}, "b": {}}}
	rep, err := (&Checker{Store: store, Collection: "candidates"}).Check(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.True(t, rep.OK())
	assert.Equal(t, "2 found, 0 missing, 0 failed, 0 unmet", rep.Summary())
}

func TestCheckStoreErrors(t *testing.T) {
	store := &memStore{docs: map[string]map[string]any{"a": {}}, fail: map[string]error{"b": errors.New("deadline")}}
	rep, err := (&Checker{Store: store, Collection: "candidates"}).Check(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, "error", rep.Items[1].State())
	assert.Equal(t, "deadline", rep.Items[1].Error)
	assert.False(t, rep.OK())
}

func TestCheckExpectation(t *testing.T) {
	store := &memStore{docs: map[string]map[string]any{
		"a": {"embedding": []any{0.1, 0.2}},
		"b": {"name": "no vector"},
	}}
	e, err := expect.Compile(`has(doc.embedding) && size(doc.embedding) == 2`, expect.DocumentVars)
	require.NoError(t, err)
	rep, err := (&Checker{Store: store, Collection: "candidates", Expect: e}).Check(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.NotNil(t, rep.Items[0].Expect)
	assert.True(t, *rep.Items[0].Expect)
	require.NotNil(t, rep.Items[1].Expect)
	assert.False(t, *rep.Items[1].Expect)
	assert.Equal(t, "expectation failed", rep.Items[1].State())
	assert.Equal(t, 2, rep.Found)
	assert.Equal(t, 1, rep.Unmet)
	assert.False(t, rep.OK())
}

func TestCheckRejectsBadInput(t *testing.T) {
	store := &memStore{}
	c := &Checker{Store: store, Collection: "candidates"}
	_, err := c.Check(context.Background(), []string{"a", "  "})
	assert.Error(t, err)
	_, err = c.Check(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoIDs)
	_, err = (&Checker{Store: store}).Check(context.Background(), []string{"a"})
	assert.Error(t, err)
	_, err = (&Checker{Collection: "c"}).Check(context.Background(), []string{"a"})
	assert.Error(t, err)
}

func TestDedupe(t *testing.T) {
	got, err := Dedupe([]string{" x ", "y", "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, got)
}
