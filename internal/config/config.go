package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds the configuration for the application.
type Config struct {
	DatabasePath string
	HTTPAddr     string
	LogMode      string
}

// NewFromEnv creates a Config from environment variables. A .env file in
// the working directory is loaded first if present; real environment
// variables take precedence over it.
func NewFromEnv() (*Config, error) {
	_ = godotenv.Load()

	dbPath := os.Getenv("RECIPE_VAULT_DB_PATH")
	if dbPath == "" {
		return nil, fmt.Errorf("RECIPE_VAULT_DB_PATH environment variable not set")
	}

	httpAddr := os.Getenv("RECIPE_VAULT_HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	logMode := os.Getenv("RECIPE_VAULT_LOG_MODE")
	if logMode == "" {
		logMode = "dev"
	}

	return &Config{
		DatabasePath: dbPath,
		HTTPAddr:     httpAddr,
		LogMode:      logMode,
	}, nil
}
