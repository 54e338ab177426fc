// Package runtime opens the local pebble store once per process and hands
// out the facades built on it: run history and the local document store.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: dir, Fsync: pebblestore.FsyncModeInterval, Config: cfg})
//	defer rt.Close()
//	_ = rt.CheckHealth(ctx)
//	rt.Record(ctx, history.Entry{Check: "health", OK: true, Summary: "/health=200"})
package runtime
