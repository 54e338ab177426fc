package history

import (
	"context"
	"testing"
)

func seedLog(t *testing.T, checks ...string) *Log {
	t.Helper()
	l := newTestLog(t)
	entries := make([]Entry, len(checks))
	for i, c := range checks {
		entries[i] = Entry{Check: c}
	}
	if _, err := l.Append(context.Background(), entries); err != nil {
		t.Fatalf("append: %v", err)
	}
	return l
}

func seqs(items []Entry) []uint64 {
	out := make([]uint64, len(items))
	for i, e := range items {
		out[i] = e.Seq
	}
	return out
}

func TestReadForwardPaging(t *testing.T) {
	l := seedLog(t, "a", "a", "a", "a", "a")
	items, next, err := l.Read(ReadOptions{Limit: 2})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := seqs(items); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("page1 = %v", got)
	}
	if next.Seq() != 3 {
		t.Fatalf("next token = %d", next.Seq())
	}
	items, next, _ = l.Read(ReadOptions{Start: next, Limit: 10})
	if got := seqs(items); len(got) != 3 || got[0] != 3 {
		t.Fatalf("page2 = %v", got)
	}
	if next.Seq() != 0 {
		t.Fatalf("expected exhausted token, got %d", next.Seq())
	}
}

func TestReadReversePaging(t *testing.T) {
	l := seedLog(t, "a", "a", "a", "a")
	items, next, _ := l.Read(ReadOptions{Limit: 2, Reverse: true})
	if got := seqs(items); len(got) != 2 || got[0] != 4 || got[1] != 3 {
		t.Fatalf("page1 = %v", got)
	}
	items, _, _ = l.Read(ReadOptions{Start: next, Limit: 5, Reverse: true})
	if got := seqs(items); len(got) != 2 || got[0] != 2 || got[1] != 1 {
		t.Fatalf("page2 = %v", got)
	}
}

func TestReadFiltersByCheck(t *testing.T) {
	l := seedLog(t, "health", "sql", "health", "batch")
	items, _, _ := l.Read(ReadOptions{Check: "health"})
	if got := seqs(items); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("filtered = %v", got)
	}
}

func TestReadEmpty(t *testing.T) {
	l := newTestLog(t)
	items, next, err := l.Read(ReadOptions{Limit: 3, Reverse: true})
	if err != nil || len(items) != 0 || next.Seq() != 0 {
		t.Fatalf("unexpected: %v %v %v", items, next, err)
	}
}

func TestTokenFromSeq(t *testing.T) {
	tok := TokenFromSeq(0x0102030405060708)
	if tok != (Token{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Fatalf("token bytes = %v", tok)
	}
	if tok.Seq() != 0x0102030405060708 {
		t.Fatalf("seq = %x", tok.Seq())
	}
	if TokenFromSeq(1) == (Token{}) {
		t.Fatalf("non-zero seq encoded as the zero token")
	}
}
