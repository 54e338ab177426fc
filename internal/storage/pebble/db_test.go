package pebblestore

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

type testMetrics struct {
	wrote        int
	read         int
	batchCommits int
	batchOps     int
}

func (m *testMetrics) ObserveWrite(d time.Duration, bytes int) { m.wrote += bytes }
func (m *testMetrics) ObserveRead(d time.Duration, bytes int)  { m.read += bytes }
func (m *testMetrics) ObserveBatchCommit(d time.Duration, numOps int, bytes int) {
	m.batchCommits++
	m.batchOps += numOps
}

func newTestDB(t *testing.T) (*DB, *testMetrics) {
	t.Helper()
	metrics := &testMetrics{}
	db, err := Open(Options{
		DataDir:       t.TempDir(),
		Fsync:         FsyncModeInterval,
		FsyncInterval: 2 * time.Millisecond,
		Metrics:       metrics,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, metrics
}

func TestCRUD(t *testing.T) {
	db, metrics := newTestDB(t)

	if err := db.Set([]byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := db.Get([]byte("k1"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "v1" {
		t.Fatalf("got %q want v1", got)
	}
	if metrics.read == 0 || metrics.wrote == 0 {
		t.Fatalf("expected read/write metrics, got %+v", metrics)
	}
	if err := db.Delete([]byte("k1")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.Get([]byte("k1")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound after delete, got %v", err)
	}
}

func TestBatchCommitMetrics(t *testing.T) {
	db, metrics := newTestDB(t)

	b := db.NewBatch()
	_ = b.Set([]byte("a"), []byte("1"), nil)
	_ = b.Set([]byte("b"), []byte("2"), nil)
	if err := db.CommitBatch(b); err != nil {
		t.Fatalf("commit: %v", err)
	}
	b.Close()

	if metrics.batchCommits != 1 || metrics.batchOps != 2 {
		t.Fatalf("want 1 commit with 2 ops, got %+v", metrics)
	}
}

func TestScanPrefix(t *testing.T) {
	db, _ := newTestDB(t)
	for i := 0; i < 5; i++ {
		if err := db.Set([]byte(fmt.Sprintf("doc/c/%d", i)), []byte{byte(i)}); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	_ = db.Set([]byte("doc/d/0"), []byte("other"))

	var keys []string
	err := db.ScanPrefix([]byte("doc/c/"), nil, 0, func(k, _ []byte) bool {
		keys = append(keys, string(k))
		return true
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(keys) != 5 || keys[0] != "doc/c/0" || keys[4] != "doc/c/4" {
		t.Fatalf("unexpected keys %v", keys)
	}

	keys = nil
	_ = db.ScanPrefix([]byte("doc/c/"), []byte("doc/c/2"), 2, func(k, _ []byte) bool {
		keys = append(keys, string(k))
		return true
	})
	if len(keys) != 2 || keys[0] != "doc/c/2" || keys[1] != "doc/c/3" {
		t.Fatalf("seek+limit: %v", keys)
	}
}

func TestDeletePrefix(t *testing.T) {
	db, _ := newTestDB(t)
	_ = db.Set([]byte("doc/c/1"), []byte("x"))
	_ = db.Set([]byte("doc/c/2"), []byte("y"))
	_ = db.Set([]byte("doc/cc"), []byte("keep"))
	if err := db.DeletePrefix([]byte("doc/c/")); err != nil {
		t.Fatalf("delete prefix: %v", err)
	}
	if _, err := db.Get([]byte("doc/c/1")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected doc/c/1 gone, got %v", err)
	}
	if _, err := db.Get([]byte("doc/cc")); err != nil {
		t.Fatalf("doc/cc should survive: %v", err)
	}
}

func TestSnapshotConsistency(t *testing.T) {
	db, _ := newTestDB(t)

	key := []byte("k2")
	_ = db.Set(key, []byte("old"))
	snap := db.NewSnapshot()
	defer snap.Close()
	_ = db.Set(key, []byte("new"))

	valOld, closer, err := snap.Get(key)
	if err != nil {
		t.Fatalf("snap get: %v", err)
	}
	if string(valOld) != "old" {
		t.Fatalf("snapshot saw %q want old", valOld)
	}
	closer.Close()
}

func TestPrefixUpperBound(t *testing.T) {
	if got := PrefixUpperBound([]byte("ab")); string(got) != "ac" {
		t.Fatalf("got %q", got)
	}
	if got := PrefixUpperBound([]byte{'a', 0xff}); string(got) != "b" {
		t.Fatalf("got %q", got)
	}
	if got := PrefixUpperBound([]byte{0xff, 0xff}); got != nil {
		t.Fatalf("want nil, got %v", got)
	}
}

func TestPing(t *testing.T) {
	db, _ := newTestDB(t)
	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	var nilDB *DB
	if err := nilDB.Ping(); err == nil {
		t.Fatalf("nil db should fail ping")
	}
}

func TestParseFsyncMode(t *testing.T) {
	if ParseFsyncMode("always") != FsyncModeAlways || ParseFsyncMode("bogus") != FsyncModeUnspecified {
		t.Fatalf("unexpected parse")
	}
}
