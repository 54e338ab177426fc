// Package pebblestore wraps Pebble for hhdiag's local state: the run history
// log and the offline document store both live in one database opened per
// process.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: dataDir,
//	    Fsync:   pebblestore.FsyncModeInterval,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	_ = db.Set([]byte("doc/candidates/abc"), payload)
//	_ = db.ScanPrefix([]byte("doc/candidates/"), nil, 10, func(k, v []byte) bool {
//	    return true
//	})
package pebblestore
