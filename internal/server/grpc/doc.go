// Package grpcserver serves the standard grpc.health.v1 service for the
// diagnostics sidecar, reporting SERVING while the local runtime is healthy.
//
// Example:
//
//	s := grpcserver.New(rt, logger)
//	_ = s.ListenAndServe(ctx, ":50051")
package grpcserver
