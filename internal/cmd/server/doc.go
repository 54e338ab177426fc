// Package serverrun exposes the Run entrypoint behind `hhdiag serve`: it
// opens the local runtime and runs the HTTP and gRPC sidecar servers until
// the context ends or a termination signal arrives.
//
// Example:
//
//	opts := serverrun.Options{DataDir: dir, GRPCAddr: ":50051", HTTPAddr: ":8080", Fsync: pebblestore.FsyncModeInterval, Config: cfg}
//	_ = serverrun.Run(ctx, opts)
package serverrun
