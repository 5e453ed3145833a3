package models

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	ServerAddr     string        `yaml:"server_addr"`
	DatabaseURL    string        `yaml:"database_url"`
	KafkaBroker    string        `yaml:"kafka_broker"`
	KafkaTopic     string        `yaml:"kafka_topic"`
	KafkaGroup     string        `yaml:"kafka_group"`
	QueueBackend   string        `yaml:"queue_backend"` // kafka, memory
	StoragePath    string        `yaml:"storage_path"`
	ThumbnailSize  int           `yaml:"thumbnail_size"`
	PreviewSize    int           `yaml:"preview_size"`
	WebSize        int           `yaml:"web_size"`
	Quality        int           `yaml:"quality"`
	Workers        int           `yaml:"workers"`
	QueueSize      int           `yaml:"queue_size"`
	ProcessTimeout time.Duration `yaml:"process_timeout"`
	ShutdownGrace  time.Duration `yaml:"shutdown_grace"` // how long running jobs may finish after a stop signal
	LogLevel       string        `yaml:"log_level"`
	Environment    string        `yaml:"environment"`
}

const (
	QueueBackendKafka  = "kafka"
	QueueBackendMemory = "memory"
)

func LoadConfig(path string) (*Config, error) {
	const op = "models.LoadConfig"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		ServerAddr:     ":8080",
		KafkaTopic:     "photo-processing",
		KafkaGroup:     "photo-processor-group",
		QueueBackend:   QueueBackendKafka,
		StoragePath:    "./uploads",
		ThumbnailSize:  400,
		PreviewSize:    1920,
		WebSize:        2048,
		Quality:        85,
		Workers:        runtime.NumCPU(),
		QueueSize:      64,
		ProcessTimeout: 2 * time.Minute,
		ShutdownGrace:  30 * time.Second,
		LogLevel:       "info",
		Environment:    "production",
	}
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv("DATABASE_URL"); ok {
		c.DatabaseURL = v
	}
	if v, ok := os.LookupEnv("KAFKA_BROKER"); ok {
		c.KafkaBroker = v
	}
	if v, ok := os.LookupEnv("STORAGE_PATH"); ok {
		c.StoragePath = v
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.StoragePath == "" {
		errs = append(errs, errors.New("storage_path is required"))
	}
	if c.ThumbnailSize <= 0 || c.PreviewSize <= 0 || c.WebSize <= 0 {
		errs = append(errs, fmt.Errorf("tier sizes must be positive: thumbnail=%d preview=%d web=%d",
			c.ThumbnailSize, c.PreviewSize, c.WebSize))
	}
	if c.Quality < 1 || c.Quality > 100 {
		errs = append(errs, fmt.Errorf("quality must be within 1..100, got %d", c.Quality))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("queue_size must not be negative, got %d", c.QueueSize))
	}
	if c.ShutdownGrace < 0 {
		errs = append(errs, fmt.Errorf("shutdown_grace must not be negative, got %s", c.ShutdownGrace))
	}
	switch c.QueueBackend {
	case QueueBackendMemory:
	case QueueBackendKafka:
		if c.KafkaBroker == "" || c.KafkaTopic == "" {
			errs = append(errs, errors.New("kafka_broker and kafka_topic are required for the kafka queue"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown queue_backend %q", c.QueueBackend))
	}
	return errors.Join(errs...)
}
