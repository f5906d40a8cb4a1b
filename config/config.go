package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"broker_inbox/extract"
)

type Config struct {
	DatabaseURL string
	DBPath      string
	ListenAddr  string
	LogLevel    string

	Webhook    WebhookConfig
	Enrichment EnrichmentConfig
	Archive    ArchiveConfig
	Export     ExportConfig

	Vocab extract.Vocabulary
}

type WebhookConfig struct {
	// ChannelPrefix is the transport prefix From/To must carry ("whatsapp:")
	ChannelPrefix string
}

type EnrichmentConfig struct {
	URL      string
	APIKey   string
	Timeout  time.Duration
	Interval time.Duration
	Batch    int
}

type ArchiveConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type ExportConfig struct {
	Cron string
	Path string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBPath:      getEnv("DB_PATH", "broker_inbox.db"),
		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Webhook: WebhookConfig{
			ChannelPrefix: getEnv("CHANNEL_PREFIX", "whatsapp:"),
		},
		Enrichment: EnrichmentConfig{
			URL:      os.Getenv("ENRICHMENT_URL"),
			APIKey:   os.Getenv("ENRICHMENT_API_KEY"),
			Timeout:  getEnvDuration("ENRICHMENT_TIMEOUT", 20*time.Second),
			Interval: getEnvDuration("ENRICHMENT_INTERVAL", 5*time.Minute),
			Batch:    getEnvInt("ENRICHMENT_BATCH", 10),
		},
		Archive: ArchiveConfig{
			Bucket:          os.Getenv("ARCHIVE_BUCKET"),
			Region:          getEnv("ARCHIVE_REGION", "us-east-1"),
			Endpoint:        os.Getenv("ARCHIVE_ENDPOINT"),
			AccessKeyID:     os.Getenv("ARCHIVE_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("ARCHIVE_SECRET_ACCESS_KEY"),
		},
		Export: ExportConfig{
			Cron: os.Getenv("EXPORT_CRON"),
			Path: getEnv("EXPORT_PATH", "exports/listings.csv"),
		},
		Vocab: extract.DefaultVocabulary(),
	}

	if err := cfg.loadVocab(getEnv("VOCAB_PATH", "config/vocab.yaml")); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadVocab overlays the YAML keyword tables over the built-in defaults.
// A missing file is fine; a malformed one is a startup error.
func (c *Config) loadVocab(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var vocab extract.Vocabulary
	if err := yaml.Unmarshal(data, &vocab); err != nil {
		return fmt.Errorf("parse vocab %s: %w", path, err)
	}

	if len(vocab.Amenities) > 0 {
		c.Vocab.Amenities = vocab.Amenities
	}
	if len(vocab.Conditions) > 0 {
		c.Vocab.Conditions = vocab.Conditions
	}
	if len(vocab.Localities) > 0 {
		c.Vocab.Localities = vocab.Localities
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
