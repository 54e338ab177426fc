package history

import (
	"encoding/binary"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/delimatsuo/headhunter-sub005/internal/storage/pebble"
)

// Token is a resume position (sequence, 8 bytes big-endian).
type Token [8]byte

// TokenFromSeq builds a Token for seq.
func TokenFromSeq(seq uint64) Token {
	var t Token
	binary.BigEndian.PutUint64(t[:], seq)
	return t
}

// Seq returns the sequence encoded in t.
func (t Token) Seq() uint64 { return binary.BigEndian.Uint64(t[:]) }

// ReadOptions controls Read.
type ReadOptions struct {
	// Start is inclusive for forward reads and exclusive for reverse reads.
	// Zero starts at the oldest (or newest, when Reverse) entry.
	Start   Token
	Limit   int
	Reverse bool
	// Check keeps only entries for this check when set.
	Check string
}

// Read returns up to Limit entries and the token to resume from. The returned
// token is zero once the log is exhausted. Corrupt records are skipped.
func (l *Log) Read(opts ReadOptions) ([]Entry, Token, error) {
	var next Token
	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: entryPfx,
		UpperBound: pebblestore.PrefixUpperBound(entryPfx),
	})
	if err != nil {
		return nil, next, err
	}
	defer iter.Close()

	startSeq := opts.Start.Seq()
	var valid bool
	switch {
	case opts.Reverse && startSeq == 0:
		valid = iter.Last()
	case opts.Reverse:
		valid = iter.SeekLT(keyEntry(startSeq))
	case startSeq == 0:
		valid = iter.First()
	default:
		valid = iter.SeekGE(keyEntry(startSeq))
	}

	step := iter.Next
	if opts.Reverse {
		step = iter.Prev
	}

	items := make([]Entry, 0, max(1, opts.Limit))
	for ; valid; valid = step() {
		seq, ok := seqFromKey(iter.Key())
		if !ok {
			continue
		}
		if opts.Limit > 0 && len(items) >= opts.Limit {
			if opts.Reverse {
				// reverse tokens are exclusive
				seq++
			}
			next = TokenFromSeq(seq)
			break
		}
		e, err := decodeEntry(seq, iter.Value())
		if err != nil {
			continue
		}
		if opts.Check != "" && e.Check != opts.Check {
			continue
		}
		items = append(items, e)
	}
	return items, next, iter.Error()
}
