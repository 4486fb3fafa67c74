package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the bookkeeper services. Values
// are read from the environment, optionally seeded from a .env file.
type Config struct {
	Port     string
	LogLevel string

	// GCS-backed persistence
	Bucket               string
	DocumentLinksObject  string
	ProcessedFilesObject string

	// BigQuery archive
	ProjectID string
	Dataset   string

	// AI recommendation / extraction model
	ModelName string

	// Notion export
	NotionToken      string
	NotionDatabaseID string

	// Worker pool
	WorkerCount int
	QueueBuffer int
	JobMaxRetry int
}

// Load reads configuration from the environment. A missing .env file is not
// an error; production relies on real environment variables.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:                 getEnv("PORT", "8080"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		Bucket:               getEnv("GCS_BUCKET", ""),
		DocumentLinksObject:  getEnv("DOC_LINKS_OBJECT", "state/document_links.json"),
		ProcessedFilesObject: getEnv("PROCESSED_FILES_OBJECT", "state/processed_files.json"),
		ProjectID:            getEnv("BQ_PROJECT", ""),
		Dataset:              getEnv("BQ_DATASET", "bookkeeping"),
		ModelName:            getEnv("MODEL_NAME", "gemini-2.5-flash"),
		NotionToken:          getEnv("NOTION_TOKEN", ""),
		NotionDatabaseID:     getEnv("NOTION_DATABASE_ID", ""),
		WorkerCount:          getEnvInt("WORKER_COUNT", 5),
		QueueBuffer:          getEnvInt("QUEUE_BUFFER", 100),
		JobMaxRetry:          getEnvInt("JOB_MAX_RETRY", 3),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
