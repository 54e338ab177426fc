// Package config loads hhdiag configuration. It exposes a Default() baseline,
// Load for JSON or YAML files and FromEnv to overlay HH_* variables. Command
// flags are applied last by the commands themselves.
//
// Example:
//
//	cfg, err := config.Load(os.Getenv("HH_CONFIG"))
//	if err != nil { /* handle */ }
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil { /* handle */ }
//	rt, _ := runtime.Open(runtime.Options{DataDir: cfg.DataDir, Config: cfg})
//	defer rt.Close()
package config
