// Package config loads service settings from the environment, reading a local
// .env file first when present.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/ByLCY/certify/mailer"
	"github.com/ByLCY/certify/objectstore"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the full service configuration.
type Config struct {
	Env       string `env:"APP_ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT"`
	Addr      string `env:"HTTP_ADDR" envDefault:":8080"`

	Templates       string        `env:"TEMPLATES_PATH" envDefault:"examples/templates.cert"`
	Dataset         string        `env:"DATASET_SOURCE" envDefault:"examples/records.json"`
	OutputDir       string        `env:"OUTPUT_DIR" envDefault:"output"`
	ExportFormat    string        `env:"EXPORT_FORMAT" envDefault:"png"`
	Storage         string        `env:"EXPORT_STORAGE" envDefault:"local"`
	StoragePrefix   string        `env:"EXPORT_PREFIX" envDefault:"certificates"`
	Debounce        time.Duration `env:"LOOKUP_DEBOUNCE" envDefault:"300ms"`
	MaxUploadBytes  int64         `env:"MAX_UPLOAD_BYTES" envDefault:"5242880"`
	DeliveryTimeout time.Duration `env:"DELIVERY_TIMEOUT" envDefault:"30s"`

	S3   objectstore.Config
	Mail mailer.Config
}

// Load reads .env (if any) and parses the environment into a Config.
func Load() (Config, error) {
	// .env 文件可选，不存在时忽略
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Storage {
	case "local":
	case "s3":
		if c.S3.Bucket == "" {
			return fmt.Errorf("%w: EXPORT_STORAGE=s3 requires S3_BUCKET", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown EXPORT_STORAGE %q", ErrInvalidConfig, c.Storage)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("%w: MAX_UPLOAD_BYTES must be positive", ErrInvalidConfig)
	}
	return nil
}
