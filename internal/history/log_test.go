package history

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pebblestore "github.com/delimatsuo/headhunter-sub005/internal/storage/pebble"
)

func openDB(t *testing.T, dir string) *pebblestore.DB {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	return db
}

func newTestLog(t *testing.T) *Log {
	t.Helper()
	db := openDB(t, t.TempDir())
	t.Cleanup(func() { _ = db.Close() })
	l, err := Open(db)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	return l
}

func TestAppendAssignsSequenceAndID(t *testing.T) {
	l := newTestLog(t)
	got, err := l.Append(context.Background(), []Entry{
		{Check: "health", Target: "https://svc", OK: true, Payload: json.RawMessage(`{"status":200}`)},
		{Check: "candidates", OK: false, Summary: "1 missing"},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if got[0].Seq != 1 || got[1].Seq != 2 {
		t.Fatalf("want seqs 1,2 got %d,%d", got[0].Seq, got[1].Seq)
	}
	if got[0].ID.IsZero() || got[0].ID.Compare(got[1].ID) >= 0 {
		t.Fatalf("expected increasing non-zero ids")
	}
	if got[0].StartedAt.IsZero() {
		t.Fatalf("expected StartedAt to be filled")
	}

	e, err := l.Get(1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e.Check != "health" || !e.OK || string(e.Payload) != `{"status":200}` || e.ID != got[0].ID {
		t.Fatalf("unexpected entry %+v", e)
	}
}

func TestAppendRejectsUnnamedCheck(t *testing.T) {
	l := newTestLog(t)
	if _, err := l.Append(context.Background(), []Entry{{OK: true}}); err == nil {
		t.Fatalf("expected error for missing check name")
	}
}

func TestAppendDurableAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	db := openDB(t, dir)
	l, err := Open(db)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	first, err := l.Append(context.Background(), []Entry{{Check: "sql"}})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db2 := openDB(t, dir)
	t.Cleanup(func() { _ = db2.Close() })
	l2, err := Open(db2)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	second, err := l2.Append(context.Background(), []Entry{{Check: "sql"}})
	if err != nil {
		t.Fatalf("append2: %v", err)
	}
	if second[0].Seq <= first[0].Seq {
		t.Fatalf("expected seq to continue: %d then %d", first[0].Seq, second[0].Seq)
	}
}

func TestLast(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()
	if _, err := l.Last("health"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	_, _ = l.Append(ctx, []Entry{{Check: "health", Summary: "first"}})
	_, _ = l.Append(ctx, []Entry{{Check: "sql", Summary: "other"}})
	_, _ = l.Append(ctx, []Entry{{Check: "health", Summary: "second"}})
	e, err := l.Last("health")
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if e.Summary != "second" {
		t.Fatalf("want newest health entry, got %+v", e)
	}
}

func TestAppendHonorsCancelledContext(t *testing.T) {
	l := newTestLog(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Append(ctx, []Entry{{Check: "x"}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestDecodeRejectsCorruption(t *testing.T) {
	rec := encodeRecord([]byte("hdr"), []byte("payload"))
	rec[len(rec)-1] ^= 0xff
	if _, _, err := decodeRecord(rec); err == nil {
		t.Fatalf("expected crc mismatch")
	}
	if _, _, err := decodeRecord([]byte{1}); err == nil {
		t.Fatalf("expected short record error")
	}
}

func TestTrimOlderThan(t *testing.T) {
	l := newTestLog(t)
	now := time.Now()
	_, err := l.Append(context.Background(), []Entry{
		{Check: "a", StartedAt: now.Add(-48 * time.Hour)},
		{Check: "a", StartedAt: now.Add(-25 * time.Hour)},
		{Check: "a", StartedAt: now},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	n, err := l.TrimOlderThan(context.Background(), now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if n != 2 {
		t.Fatalf("want 2 trimmed, got %d", n)
	}
	items, _, _ := l.Read(ReadOptions{})
	if len(items) != 1 || items[0].Seq != 3 {
		t.Fatalf("unexpected survivors %+v", items)
	}
}

func TestTrimToMaxEntries(t *testing.T) {
	l := newTestLog(t)
	for i := 0; i < 5; i++ {
		if _, err := l.Append(context.Background(), []Entry{{Check: "b"}}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	n, err := l.TrimToMaxEntries(context.Background(), 2)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if n != 3 {
		t.Fatalf("want 3 trimmed, got %d", n)
	}
	items, _, _ := l.Read(ReadOptions{})
	if len(items) != 2 || items[0].Seq != 4 {
		t.Fatalf("unexpected survivors %+v", items)
	}
}
