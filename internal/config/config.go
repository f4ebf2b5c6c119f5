// Package config reads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BlobBackendSQLite = "sqlite"
	BlobBackendGCS    = "gcs"

	CatalogBackendSQLite   = "sqlite"
	CatalogBackendPostgres = "postgres"
)

// Config holds every setting the server and CLI commands need.
type Config struct {
	Port          string
	DatabasePath  string
	JWTSecret     string
	BcryptCost    int
	CookieSecure  bool
	PublicBaseURL string
	LocalImageDir string

	BlobBackend        string
	GCSBucket          string
	GCSCredentialsFile string

	CatalogBackend     string
	CatalogDatabaseURL string

	UploadTimeout     time.Duration
	UploadRate        float64
	UploadBurst       float64
	OrphanBlobCleanup bool

	LogLevel slog.Level
}

// Load reads the environment, applies defaults and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               envOrDefault("PORT", "8080"),
		DatabasePath:       envOrDefault("DATABASE_PATH", "travelupa.db"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		LocalImageDir:      envOrDefault("LOCAL_IMAGE_DIR", "images"),
		BlobBackend:        envOrDefault("BLOB_BACKEND", BlobBackendSQLite),
		GCSBucket:          os.Getenv("GCS_BUCKET"),
		GCSCredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),
		CatalogBackend:     envOrDefault("CATALOG_BACKEND", CatalogBackendSQLite),
		CatalogDatabaseURL: os.Getenv("CATALOG_DATABASE_URL"),
		// Default to secure cookies; disable only for local development.
		CookieSecure:      os.Getenv("COOKIE_SECURE") != "false",
		OrphanBlobCleanup: os.Getenv("ORPHAN_BLOB_CLEANUP") == "true",
	}
	cfg.PublicBaseURL = strings.TrimRight(envOrDefault("PUBLIC_BASE_URL", "http://localhost:"+cfg.Port), "/")

	var errs []error
	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if len(cfg.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters for HMAC-SHA256 security"))
	}

	var err error
	if cfg.BcryptCost, err = intEnv("BCRYPT_COST", 12); err != nil {
		errs = append(errs, err)
	} else if cfg.BcryptCost < 4 || cfg.BcryptCost > 14 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 14, got %d", cfg.BcryptCost))
	}
	if cfg.UploadTimeout, err = durationEnv("UPLOAD_TIMEOUT", 60*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.UploadRate, err = floatEnv("UPLOAD_RATE", 0.2); err != nil {
		errs = append(errs, err)
	}
	if cfg.UploadBurst, err = floatEnv("UPLOAD_BURST", 5); err != nil {
		errs = append(errs, err)
	} else if cfg.UploadBurst < 1 {
		errs = append(errs, fmt.Errorf("UPLOAD_BURST must be at least 1, got %v", cfg.UploadBurst))
	}
	if cfg.LogLevel, err = levelEnv("LOG_LEVEL"); err != nil {
		errs = append(errs, err)
	}

	switch cfg.BlobBackend {
	case BlobBackendSQLite:
	case BlobBackendGCS:
		if cfg.GCSBucket == "" {
			errs = append(errs, errors.New("GCS_BUCKET is required when BLOB_BACKEND=gcs"))
		}
	default:
		errs = append(errs, fmt.Errorf("BLOB_BACKEND must be %q or %q, got %q", BlobBackendSQLite, BlobBackendGCS, cfg.BlobBackend))
	}

	switch cfg.CatalogBackend {
	case CatalogBackendSQLite:
	case CatalogBackendPostgres:
		if cfg.CatalogDatabaseURL == "" {
			errs = append(errs, errors.New("CATALOG_DATABASE_URL is required when CATALOG_BACKEND=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("CATALOG_BACKEND must be %q or %q, got %q", CatalogBackendSQLite, CatalogBackendPostgres, cfg.CatalogBackend))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func intEnv(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func floatEnv(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if f < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return f, nil
}

func durationEnv(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func levelEnv(key string) (slog.Level, error) {
	var level slog.Level
	v := os.Getenv(key)
	if v == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return level, nil
}
