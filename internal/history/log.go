package history

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	pebblestore "github.com/delimatsuo/headhunter-sub005/internal/storage/pebble"
	"github.com/delimatsuo/headhunter-sub005/pkg/id"
)

// ErrNotFound is returned by Last when no entry exists for a check.
var ErrNotFound = errors.New("history: not found")

// Entry is one recorded check run.
type Entry struct {
	Seq       uint64          `json:"seq"`
	ID        id.ID           `json:"id"`
	Check     string          `json:"check"`
	Target    string          `json:"target,omitempty"`
	OK        bool            `json:"ok"`
	Summary   string          `json:"summary,omitempty"`
	StartedAt time.Time       `json:"startedAt"`
	Duration  time.Duration   `json:"duration"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Log is the append-only run history stored in pebble.
type Log struct {
	db  *pebblestore.DB
	gen *id.Generator

	mu      sync.Mutex
	lastSeq uint64
}

// Open loads the last sequence from metadata, if any.
func Open(db *pebblestore.DB) (*Log, error) {
	if db == nil {
		return nil, errors.New("history: nil db")
	}
	l := &Log{db: db, gen: id.NewGenerator()}
	meta, err := db.Get(metaKey)
	switch {
	case err == nil && len(meta) >= 8:
		l.lastSeq = binary.BigEndian.Uint64(meta[:8])
	case err != nil && !errors.Is(err, pebblestore.ErrNotFound):
		return nil, fmt.Errorf("history: load meta: %w", err)
	}
	return l, nil
}

// Append writes entries as one atomic batch. Missing IDs and start times are
// filled in; the stored entries are returned with their sequence numbers.
func (l *Log) Append(ctx context.Context, entries []Entry) ([]Entry, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.db.NewBatch()
	defer b.Close()

	out := make([]Entry, len(entries))
	seq := l.lastSeq
	for i, e := range entries {
		if e.Check == "" {
			return nil, fmt.Errorf("history: entry %d has no check name", i)
		}
		if e.ID.IsZero() {
			e.ID = l.gen.Next()
		}
		if e.StartedAt.IsZero() {
			e.StartedAt = time.Now()
		}
		seq++
		e.Seq = seq
		h, err := encodeHeader(e)
		if err != nil {
			return nil, err
		}
		if err := b.Set(keyEntry(seq), encodeRecord(h, e.Payload), nil); err != nil {
			return nil, err
		}
		if err := b.Set(keyLast(e.Check), binary.BigEndian.AppendUint64(nil, seq), nil); err != nil {
			return nil, err
		}
		out[i] = e
	}

	if err := b.Set(metaKey, binary.BigEndian.AppendUint64(nil, seq), nil); err != nil {
		return nil, err
	}
	if err := l.db.CommitBatch(b); err != nil {
		return nil, err
	}
	l.lastSeq = seq
	return out, nil
}

// Get loads the entry with the given sequence.
func (l *Log) Get(seq uint64) (Entry, error) {
	v, err := l.db.Get(keyEntry(seq))
	if err != nil {
		if errors.Is(err, pebblestore.ErrNotFound) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	return decodeEntry(seq, v)
}

// Last returns the newest entry recorded for check.
func (l *Log) Last(check string) (Entry, error) {
	v, err := l.db.Get(keyLast(check))
	if err != nil {
		if errors.Is(err, pebblestore.ErrNotFound) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	if len(v) < 8 {
		return Entry{}, errCorrupt
	}
	return l.Get(binary.BigEndian.Uint64(v))
}

func decodeEntry(seq uint64, raw []byte) (Entry, error) {
	h, payload, err := decodeRecord(raw)
	if err != nil {
		return Entry{}, err
	}
	ms, ok := startedMs(h)
	if !ok {
		return Entry{}, errCorrupt
	}
	var hdr header
	if err := json.Unmarshal(h[8:], &hdr); err != nil {
		return Entry{}, fmt.Errorf("history: decode header: %w", err)
	}
	runID, err := id.Parse(hdr.ID)
	if err != nil {
		return Entry{}, err
	}
	e := Entry{
		Seq:       seq,
		ID:        runID,
		Check:     hdr.Check,
		Target:    hdr.Target,
		OK:        hdr.OK,
		Summary:   hdr.Summary,
		StartedAt: time.UnixMilli(ms),
		Duration:  time.Duration(hdr.DurationMs) * time.Millisecond,
	}
	if len(payload) > 0 {
		e.Payload = json.RawMessage(payload)
	}
	return e, nil
}
