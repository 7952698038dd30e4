package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	DatabasePath   string
	MigrationsPath string
	LogLevel       string

	// S3
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3BucketName      string
	S3UseSSL          bool

	// Upload limits
	MaxFileSize int64
	MaxFiles    int

	// Extraction
	PreviewLimit   int
	ExtractWorkers int
}

// Load reads the configuration from the environment. Values from a .env
// file in the working directory fill in variables that are not already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	maxFileSizeMB, err := getEnvInt("MAX_FILE_SIZE_MB", 20)
	if err != nil {
		return nil, err
	}
	maxFiles, err := getEnvInt("MAX_FILES", 20)
	if err != nil {
		return nil, err
	}
	previewLimit, err := getEnvInt("PREVIEW_LIMIT", 200)
	if err != nil {
		return nil, err
	}
	workers, err := getEnvInt("EXTRACT_WORKERS", 4)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DatabasePath:      getEnv("DATABASE_PATH", "data/extractions.db"),
		MigrationsPath:    getEnv("MIGRATIONS_PATH", "internal/db/migrations"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		S3Endpoint:        getEnv("S3_ENDPOINT", "localhost:9000"),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", "minioadmin"),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", "minioadmin"),
		S3BucketName:      getEnv("S3_BUCKET_NAME", "extractions"),
		S3UseSSL:          getEnv("S3_USE_SSL", "false") == "true",
		MaxFileSize:       int64(maxFileSizeMB) << 20,
		MaxFiles:          maxFiles,
		PreviewLimit:      previewLimit,
		ExtractWorkers:    workers,
	}

	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("MAX_FILE_SIZE_MB must be positive")
	}
	if cfg.MaxFiles <= 0 {
		return nil, fmt.Errorf("MAX_FILES must be positive")
	}
	if cfg.PreviewLimit < 0 {
		return nil, fmt.Errorf("PREVIEW_LIMIT must not be negative")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
