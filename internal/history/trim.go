package history

import (
	"context"
	"time"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/delimatsuo/headhunter-sub005/internal/storage/pebble"
)

const trimBatchLimit = 1024

// TrimOlderThan deletes entries that started before cutoff. Entries are
// ordered by sequence, so the scan stops at the first newer entry. Deletes
// are committed in batches. It returns the number of removed entries.
func (l *Log) TrimOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	cutoffMs := cutoff.UnixMilli()
	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: entryPfx,
		UpperBound: pebblestore.PrefixUpperBound(entryPfx),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	deleted := 0
	for ok := iter.First(); ok; {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		b := l.db.NewBatch()
		n := 0
		for ok && n < trimBatchLimit {
			h, _, err := decodeRecord(iter.Value())
			if err == nil {
				ms, okTs := startedMs(h)
				if !okTs || ms >= cutoffMs {
					ok = false
					break
				}
			}
			// corrupt records are dropped along with old ones
			if err := b.Delete(iter.Key(), nil); err != nil {
				b.Close()
				return deleted, err
			}
			n++
			ok = iter.Next()
		}
		if n > 0 {
			if err := l.db.CommitBatch(b); err != nil {
				b.Close()
				return deleted, err
			}
			deleted += n
		}
		b.Close()
	}
	return deleted, nil
}

// TrimToMaxEntries keeps at most maxEntries of the newest entries.
func (l *Log) TrimToMaxEntries(ctx context.Context, maxEntries int) (int, error) {
	if maxEntries < 0 {
		return 0, nil
	}
	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: entryPfx,
		UpperBound: pebblestore.PrefixUpperBound(entryPfx),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	total := 0
	for ok := iter.First(); ok; ok = iter.Next() {
		total++
	}
	excess := total - maxEntries
	if excess <= 0 {
		return 0, nil
	}

	deleted := 0
	for ok := iter.First(); ok && deleted < excess; {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		b := l.db.NewBatch()
		n := 0
		for ok && n < trimBatchLimit && deleted+n < excess {
			if err := b.Delete(iter.Key(), nil); err != nil {
				b.Close()
				return deleted, err
			}
			n++
			ok = iter.Next()
		}
		if err := l.db.CommitBatch(b); err != nil {
			b.Close()
			return deleted, err
		}
		b.Close()
		deleted += n
	}
	return deleted, nil
}
