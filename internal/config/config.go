package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/delimatsuo/headhunter-sub005/pkg/log"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// Project is the cloud project the checks run against.
	Project string `json:"project" yaml:"project"`
	// Database is the Firestore database id ("(default)" when empty).
	Database string `json:"database" yaml:"database"`
	DataDir  string `json:"dataDir" yaml:"dataDir"`
	// Fsync is the local store durability mode: always|interval|never.
	Fsync string `json:"fsync" yaml:"fsync"`

	Log        log.Config       `json:"log" yaml:"log"`
	Health     HealthConfig     `json:"health" yaml:"health"`
	Identity   IdentityConfig   `json:"identity" yaml:"identity"`
	Docstore   DocstoreConfig   `json:"docstore" yaml:"docstore"`
	Candidates CandidatesConfig `json:"candidates" yaml:"candidates"`
	SQL        SQLConfig        `json:"sql" yaml:"sql"`
	Batch      BatchConfig      `json:"batch" yaml:"batch"`
	History    HistoryConfig    `json:"history" yaml:"history"`
	Server     ServerConfig     `json:"server" yaml:"server"`
}

// HealthConfig targets the HTTP/gRPC health probe.
type HealthConfig struct {
	BaseURL      string   `json:"baseURL" yaml:"baseURL"`
	Paths        []string `json:"paths" yaml:"paths"`
	Audience     string   `json:"audience" yaml:"audience"`
	Timeout      Duration `json:"timeout" yaml:"timeout"`
	MaxBodyBytes int64    `json:"maxBodyBytes" yaml:"maxBodyBytes"`
	Expect       string   `json:"expect" yaml:"expect"`
	GRPCTarget   string   `json:"grpcTarget" yaml:"grpcTarget"`
	GRPCService  string   `json:"grpcService" yaml:"grpcService"`
	GRPCInsecure bool     `json:"grpcInsecure" yaml:"grpcInsecure"`
}

// IdentityConfig selects how identity tokens are obtained.
type IdentityConfig struct {
	// Strategy is tried in order: static, metadata, gcloud.
	Strategy        []string `json:"strategy" yaml:"strategy"`
	GcloudPath      string   `json:"gcloudPath" yaml:"gcloudPath"`
	StaticToken     string   `json:"staticToken" yaml:"staticToken"`
	IncludeAudience bool     `json:"includeAudience" yaml:"includeAudience"`
}

// DocstoreConfig selects the document store backend.
type DocstoreConfig struct {
	Backend         string `json:"backend" yaml:"backend"` // firestore|local
	CredentialsFile string `json:"credentialsFile" yaml:"credentialsFile"`
	EmulatorHost    string `json:"emulatorHost" yaml:"emulatorHost"`
	Collection      string `json:"collection" yaml:"collection"`
	DocumentID      string `json:"documentID" yaml:"documentID"`
}

// CandidatesConfig holds the known-record existence check inputs.
type CandidatesConfig struct {
	Collection    string   `json:"collection" yaml:"collection"`
	IDs           []string `json:"ids" yaml:"ids"`
	Expect        string   `json:"expect" yaml:"expect"`
	MaxConcurrent int      `json:"maxConcurrent" yaml:"maxConcurrent"`
}

// SQLConfig targets the vector column introspection.
type SQLConfig struct {
	Driver         string `json:"driver" yaml:"driver"` // pgx|cli|sqlite
	DSN            string `json:"dsn" yaml:"dsn"`
	SimpleProtocol bool   `json:"simpleProtocol" yaml:"simpleProtocol"`
	Instance       string `json:"instance" yaml:"instance"`
	Database       string `json:"database" yaml:"database"`
	User           string `json:"user" yaml:"user"`
	CLIPath        string `json:"cliPath" yaml:"cliPath"`
	Table          string `json:"table" yaml:"table"`
	Column         string `json:"column" yaml:"column"`
	ExpectDim      int    `json:"expectDim" yaml:"expectDim"`
}

// BatchConfig tunes the batch runner.
type BatchConfig struct {
	MaxConcurrent int      `json:"maxConcurrent" yaml:"maxConcurrent"`
	RatePerSecond float64  `json:"ratePerSecond" yaml:"ratePerSecond"`
	ItemTimeout   Duration `json:"itemTimeout" yaml:"itemTimeout"`
}

// HistoryConfig controls the local run history.
type HistoryConfig struct {
	Enabled    bool     `json:"enabled" yaml:"enabled"`
	Retention  Duration `json:"retention" yaml:"retention"`
	MaxEntries int      `json:"maxEntries" yaml:"maxEntries"`
}

// ServerConfig holds listen addresses for `hhdiag serve`.
type ServerConfig struct {
	HTTPAddr string `json:"httpAddr" yaml:"httpAddr"`
	GRPCAddr string `json:"grpcAddr" yaml:"grpcAddr"`
}

// DefaultHealthTimeout bounds each health request when none is configured.
const DefaultHealthTimeout = 10 * time.Second

// Default returns built-in defaults.
func Default() Config {
	return Config{
		DataDir: DefaultDataDir(),
		Fsync:   "interval",
		Log:     log.Config{Level: "info", Format: "text"},
		Health: HealthConfig{
			Paths:        []string{"/health", "/ready"},
			Timeout:      Duration(DefaultHealthTimeout),
			MaxBodyBytes: 64 << 10,
		},
		Identity: IdentityConfig{
			Strategy:   []string{"static", "gcloud"},
			GcloudPath: "gcloud",
		},
		Docstore: DocstoreConfig{
			Backend:    "firestore",
			Collection: "candidates",
		},
		Candidates: CandidatesConfig{
			Collection:    "candidates",
			MaxConcurrent: 5,
		},
		SQL: SQLConfig{
			Driver:  "cli",
			CLIPath: "gcloud",
			Column:  "embedding",
		},
		Batch: BatchConfig{MaxConcurrent: 5},
		History: HistoryConfig{
			Enabled:    true,
			Retention:  Duration(30 * 24 * time.Hour),
			MaxEntries: 10000,
		},
		Server: ServerConfig{HTTPAddr: ":8080", GRPCAddr: ":50051"},
	}
}

// Load reads configuration from a JSON or YAML file (by extension) on top of
// Default(). Unknown keys are rejected. If path is empty, returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	return cfg, nil
}

var validBackends = map[string]bool{"firestore": true, "local": true}
var validDrivers = map[string]bool{"pgx": true, "cli": true, "sqlite": true}
var validStrategies = map[string]bool{"static": true, "metadata": true, "gcloud": true}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if !validBackends[c.Docstore.Backend] {
		return fmt.Errorf("config: docstore.backend %q (want firestore|local)", c.Docstore.Backend)
	}
	if !validDrivers[c.SQL.Driver] {
		return fmt.Errorf("config: sql.driver %q (want pgx|cli|sqlite)", c.SQL.Driver)
	}
	for _, s := range c.Identity.Strategy {
		if !validStrategies[s] {
			return fmt.Errorf("config: identity.strategy %q (want static|metadata|gcloud)", s)
		}
	}
	if c.Batch.MaxConcurrent < 0 || c.Candidates.MaxConcurrent < 0 {
		return errors.New("config: maxConcurrent must not be negative")
	}
	if c.Batch.RatePerSecond < 0 {
		return errors.New("config: batch.ratePerSecond must not be negative")
	}
	if c.Health.Timeout <= 0 {
		return errors.New("config: health.timeout must be positive")
	}
	if c.Health.MaxBodyBytes < 0 {
		return errors.New("config: health.maxBodyBytes must not be negative")
	}
	return nil
}
