package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env       string
	HttpPort  string
	DBPath    string // used when DBDriver=sqlite
	DBDriver  string // sqlite|postgres
	DBDsn     string // used when DBDriver=postgres (e.g., DATABASE_URL)
	StaticDir string
	// MaxUploadBytes caps object uploads through the API; 0 disables the cap.
	MaxUploadBytes int64
	// UpstreamTimeout bounds each call to a LocalStack instance.
	UpstreamTimeout time.Duration
}

func Load() *Config {
	cfg := &Config{
		Env:            getEnv("APP_ENV", "dev"),
		HttpPort:       getEnv("HTTP_PORT", "8080"),
		DBPath:         getEnv("DB_PATH", "data/stackdeck.db"),
		DBDriver:       getEnv("DB_DRIVER", "sqlite"),
		DBDsn:          getEnv("DATABASE_URL", getEnv("DB_DSN", "")),
		StaticDir:      getEnv("STATIC_DIR", "web/dist"),
		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 64<<20),
	}
	cfg.UpstreamTimeout = time.Duration(getEnvInt64("UPSTREAM_TIMEOUT_SECONDS", 30)) * time.Second
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return def
	}
	return n
}
