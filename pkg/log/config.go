package log

import (
	"fmt"
	"strings"
)

// Config declares how a process-wide logger is built.
type Config struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // text|json
	// Outputs lists sinks: console, file, null. Empty means console.
	Outputs []string    `json:"outputs" yaml:"outputs"`
	File    FileOptions `json:"file" yaml:"file"`

	RedactKeys       []string `json:"redactKeys" yaml:"redactKeys"`
	SampleInitial    int      `json:"sampleInitial" yaml:"sampleInitial"`
	SampleThereafter int      `json:"sampleThereafter" yaml:"sampleThereafter"`
}

// DefaultRedactKeys are never printed verbatim.
var DefaultRedactKeys = []string{"token", "id_token", "dsn", "password", "authorization"}

// ParseLevel maps a level name to a Level. Empty input is an error.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// ApplyConfig builds a Logger from cfg.
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	level := InfoLevel
	if cfg.Level != "" {
		l, err := ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		level = l
	}

	var formatter Formatter
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		formatter = &TextFormatter{}
	case "json":
		formatter = &JSONFormatter{}
	default:
		return nil, fmt.Errorf("unknown log format %q (want text|json)", cfg.Format)
	}

	opts := []LoggerOption{WithLevel(level), WithFormatter(formatter)}
	outputs := cfg.Outputs
	if len(outputs) == 0 {
		outputs = []string{"console"}
		if cfg.File.Path != "" {
			outputs = append(outputs, "file")
		}
	}
	for _, name := range outputs {
		switch strings.ToLower(name) {
		case "console", "stderr":
			opts = append(opts, WithOutput(NewConsoleOutput()))
		case "file":
			if cfg.File.Path == "" {
				return nil, fmt.Errorf("file output requires file.path")
			}
			opts = append(opts, WithOutput(NewFileOutput(cfg.File)))
		case "null", "none":
			opts = append(opts, WithOutput(NullOutput{}))
		default:
			return nil, fmt.Errorf("unknown log output %q", name)
		}
	}

	redact := append(append([]string{}, DefaultRedactKeys...), cfg.RedactKeys...)
	opts = append(opts, WithRedactedKeys(redact...))
	if cfg.SampleThereafter > 0 {
		opts = append(opts, WithSampling(cfg.SampleInitial, cfg.SampleThereafter))
	}
	return NewLogger(opts...), nil
}
