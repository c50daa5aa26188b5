package main

import (
	"os"
	"strconv"
)

// Config holds all environment variables for the importer service.
type Config struct {
	Port              string // HTTP port (default: 8082)
	UploadStorageDir  string // Where uploaded CSVs are staged on disk
	WorkerConcurrency int    // Number of queue consumer goroutines
	Env               string // "production" switches zap to JSON output
}

// LoadConfig loads environment variables into a Config struct, applying
// defaults for everything optional.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:             os.Getenv("PORT"),
		UploadStorageDir: os.Getenv("UPLOAD_STORAGE_DIR"),
		Env:              os.Getenv("APP_ENV"),
	}

	if cfg.Port == "" {
		cfg.Port = "8082"
	}
	if cfg.UploadStorageDir == "" {
		cfg.UploadStorageDir = "./data/uploads"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}

	cfg.WorkerConcurrency = 4
	if v := os.Getenv("WORKER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WorkerConcurrency = n
		}
	}

	return cfg, nil
}
