package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds server configuration, populated from the environment
type Config struct {
	// HTTPAddr is the listen address for the HTTP server
	// Optional. Defaults to ":8080"
	HTTPAddr string

	// UploadDir is the directory holding uploaded inputs
	// Optional. Defaults to "./uploads"
	UploadDir string

	// ConvertedDir is the directory holding produced artifacts
	// Optional. Defaults to "./converted"
	ConvertedDir string

	// RedisURL is the Redis connection string for the result cache and
	// the durable conversion counter
	// Optional. When empty, caching is disabled and the service recomputes
	// every conversion
	RedisURL string

	// DatabaseURL is the PostgreSQL connection string for the usage ledger
	// Optional. When empty, the ledger is disabled
	DatabaseURL string

	// GotenbergURL is the base URL of a Gotenberg instance backing the
	// high_quality engine
	// Optional. When empty, the high_quality engine is unavailable
	GotenbergURL string

	// SofficePath is the LibreOffice binary backing the standard engine
	// Optional. Defaults to "soffice" (resolved via PATH)
	SofficePath string

	// CacheTTL is the lifetime of a cached conversion result
	// Optional. Defaults to 1 hour; keep consistent with RetentionWindow
	CacheTTL time.Duration

	// RetentionWindow is how long uploads and artifacts are kept on disk
	// Optional. Defaults to 1 hour
	RetentionWindow time.Duration

	// SweepInterval is how often the retention sweeper runs
	// Optional. Defaults to 10 minutes
	SweepInterval time.Duration

	// MaxUploadBytes caps the size of a single request body
	// Optional. Defaults to 32 MiB
	MaxUploadBytes int64

	// ReshapePolicy controls Arabic post-processing: "reshape" rewrites
	// run text into presentation form, "align-only" only forces paragraph
	// alignment
	// Optional. Defaults to "reshape"
	ReshapePolicy string
}

// Load reads configuration from the environment
func Load() Config {
	cfg := Config{
		HTTPAddr:      os.Getenv("HTTP_ADDR"),
		UploadDir:     os.Getenv("UPLOAD_DIR"),
		ConvertedDir:  os.Getenv("CONVERTED_DIR"),
		RedisURL:      os.Getenv("REDIS_URL"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		GotenbergURL:  os.Getenv("GOTENBERG_URL"),
		SofficePath:   os.Getenv("SOFFICE_PATH"),
		ReshapePolicy: os.Getenv("RESHAPE_POLICY"),
	}
	cfg.CacheTTL = durationEnv("CACHE_TTL", 0)
	cfg.RetentionWindow = durationEnv("RETENTION_WINDOW", 0)
	cfg.SweepInterval = durationEnv("SWEEP_INTERVAL", 0)
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxUploadBytes = n
		}
	}
	cfg.WithDefaults()
	return cfg
}

// WithDefaults fills in default values for optional fields
func (c *Config) WithDefaults() {
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	if c.UploadDir == "" {
		c.UploadDir = "./uploads"
	}
	if c.ConvertedDir == "" {
		c.ConvertedDir = "./converted"
	}
	if c.SofficePath == "" {
		c.SofficePath = "soffice"
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = time.Hour
	}
	if c.RetentionWindow == 0 {
		c.RetentionWindow = time.Hour
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = 10 * time.Minute
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = 32 << 20
	}
	if c.ReshapePolicy == "" {
		c.ReshapePolicy = "reshape"
	}
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
