package config

import (
	"os"
	"strconv"
	"strings"
)

// FromEnv overlays HH_* environment variables onto cfg. Malformed numeric
// values are ignored and keep the previous setting.
func FromEnv(cfg *Config) {
	envString("HH_PROJECT", &cfg.Project)
	if cfg.Project == "" {
		envString("GOOGLE_CLOUD_PROJECT", &cfg.Project)
	}
	envString("HH_DATABASE", &cfg.Database)
	envString("HH_DATA_DIR", &cfg.DataDir)
	envString("HH_FSYNC", &cfg.Fsync)

	envString("HH_LOG_LEVEL", &cfg.Log.Level)
	envString("HH_LOG_FORMAT", &cfg.Log.Format)
	envString("HH_LOG_FILE", &cfg.Log.File.Path)

	envString("HH_HEALTH_URL", &cfg.Health.BaseURL)
	envList("HH_HEALTH_PATHS", &cfg.Health.Paths)
	envString("HH_HEALTH_AUDIENCE", &cfg.Health.Audience)
	envDuration("HH_HEALTH_TIMEOUT", &cfg.Health.Timeout)
	envString("HH_HEALTH_EXPECT", &cfg.Health.Expect)
	envString("HH_GRPC_TARGET", &cfg.Health.GRPCTarget)
	envBool("HH_GRPC_INSECURE", &cfg.Health.GRPCInsecure)

	envList("HH_IDENTITY_STRATEGY", &cfg.Identity.Strategy)
	envString("HH_GCLOUD_PATH", &cfg.Identity.GcloudPath)
	envString("HH_ID_TOKEN", &cfg.Identity.StaticToken)

	envString("HH_DOCSTORE_BACKEND", &cfg.Docstore.Backend)
	envString("HH_CREDENTIALS_FILE", &cfg.Docstore.CredentialsFile)
	if cfg.Docstore.CredentialsFile == "" {
		envString("GOOGLE_APPLICATION_CREDENTIALS", &cfg.Docstore.CredentialsFile)
	}
	envString("FIRESTORE_EMULATOR_HOST", &cfg.Docstore.EmulatorHost)
	envString("HH_COLLECTION", &cfg.Docstore.Collection)

	envString("HH_CANDIDATES_COLLECTION", &cfg.Candidates.Collection)
	envList("HH_CANDIDATE_IDS", &cfg.Candidates.IDs)
	envString("HH_CANDIDATES_EXPECT", &cfg.Candidates.Expect)

	envString("HH_SQL_DRIVER", &cfg.SQL.Driver)
	envString("HH_SQL_DSN", &cfg.SQL.DSN)
	if cfg.SQL.DSN == "" {
		envString("DATABASE_URL", &cfg.SQL.DSN)
	}
	envString("HH_SQL_INSTANCE", &cfg.SQL.Instance)
	envString("HH_SQL_DATABASE", &cfg.SQL.Database)
	envString("HH_SQL_USER", &cfg.SQL.User)
	envString("HH_SQL_CLI", &cfg.SQL.CLIPath)
	envString("HH_SQL_TABLE", &cfg.SQL.Table)
	envString("HH_SQL_COLUMN", &cfg.SQL.Column)
	envInt("HH_SQL_EXPECT_DIM", &cfg.SQL.ExpectDim)

	envInt("HH_BATCH_MAX_CONCURRENT", &cfg.Batch.MaxConcurrent)
	if v := os.Getenv("HH_BATCH_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Batch.RatePerSecond = f
		}
	}
	envDuration("HH_BATCH_ITEM_TIMEOUT", &cfg.Batch.ItemTimeout)

	envBool("HH_HISTORY_ENABLED", &cfg.History.Enabled)
	envDuration("HH_HISTORY_RETENTION", &cfg.History.Retention)

	envString("HH_HTTP_ADDR", &cfg.Server.HTTPAddr)
	envString("HH_GRPC_ADDR", &cfg.Server.GRPCAddr)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}

func envList(key string, dst *[]string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	*dst = nil
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			*dst = append(*dst, p)
		}
	}
}
