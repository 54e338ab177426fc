// Package history keeps hhdiag's local run history: one record per check
// invocation, appended to a Pebble-backed log.
//
// Keys are lexicographically ordered for range scans:
//   - hist/m                (metadata: last sequence)
//   - hist/e/{seq_be8}      (entries)
//   - hist/last/{check}     (newest sequence per check)
//
// Records are stored as: varint headerLen | header | payload | crc32c(header|payload),
// where the header leads with the run's start time in milliseconds.
//
//	l, _ := history.Open(db)
//	stored, _ := l.Append(ctx, []history.Entry{{Check: "health", Target: url, OK: true}})
//	items, next, _ := l.Read(history.ReadOptions{Limit: 20, Reverse: true})
//	_, _ = l.TrimOlderThan(ctx, time.Now().Add(-30*24*time.Hour))
package history
