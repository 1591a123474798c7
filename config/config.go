package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	VancouverBaseURL string `envconfig:"VANCOUVER_BASE_URL" default:"https://opendata.vancouver.ca/api/explore/v2.1"`
	VancouverDataset string `envconfig:"VANCOUVER_DATASET" default:"public-art"`
	VancouverLimit   int    `envconfig:"VANCOUVER_PAGE_LIMIT" default:"100"`

	BurnabyBaseURL string `envconfig:"BURNABY_BASE_URL" default:"https://burnabyartgallery.ca"`
	BurnabyExport  string `envconfig:"BURNABY_EXPORT_PATH" default:"/api/collection/export"`

	// Quellen-Konfiguration
	EnabledSources string `envconfig:"ENABLED_SOURCES" default:"vancouver,burnaby"`

	CronSchedule string `envconfig:"CRON_SCHEDULE" default:"0 3 * * *"`

	// Media-Cache Limits
	CacheNamespace      string `envconfig:"CACHE_NAMESPACE" default:"photos"`
	MediaFetchTimeout   int    `envconfig:"MEDIA_FETCH_TIMEOUT_SECONDS" default:"30"`
	MediaMaxRedirects   int    `envconfig:"MEDIA_MAX_REDIRECTS" default:"5"`
	MediaMaxBytes       int64  `envconfig:"MEDIA_MAX_BYTES" default:"26214400"`
	MediaMaxConcurrent  int    `envconfig:"MEDIA_MAX_CONCURRENT" default:"5"`
	BatchTimeoutMinutes int    `envconfig:"BATCH_TIMEOUT_MINUTES" default:"60"`

	S3Key    string `envconfig:"S3_KEY" required:"true"`
	S3Secret string `envconfig:"S3_SECRET" required:"true"`
	S3URL    string `envconfig:"S3_URL" required:"true"`
	S3Region string `envconfig:"S3_REGION" required:"true"`
	S3Bucket string `envconfig:"S3_BUCKET" required:"true"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
