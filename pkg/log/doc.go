// Package log provides hhdiag's structured logging facade and utilities.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Internally it is backed by Go's
// standard library slog via a custom handler that feeds a formatter and a set
// of outputs. Loggers derived with With/WithComponent share the level,
// formatter and outputs of their parent.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("healthcheck"), log.Str("target", url))
//	l.Info("probe finished", log.Int("status", 200))
//
// # Configuration
//
// Use ApplyConfig to build a logger from a declarative Config, supporting JSON
// or text formatting and console, rotating file (lumberjack) and null outputs.
// Keys listed in DefaultRedactKeys (tokens, DSNs, passwords) are always
// replaced with [REDACTED].
//
// # Interop
//
// To integrate with libraries expecting *log.Logger, use ToStdLogger or
// RedirectStdLog.
package log
