package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Storage drivers for persisted settings
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type Config struct {
	StorageDriver  string `koanf:"storage_driver"`
	DatabaseURI    string `koanf:"database_uri"`
	MongoURI       string `koanf:"mongo_uri"`
	MongoDatabase  string `koanf:"mongo_database"`
	RedisURL       string `koanf:"redis_url"`
	TelegramToken  string `koanf:"telegram_token"`
	TelegramChatID int64  `koanf:"telegram_chat_id"`
	AIAPIKey       string `koanf:"ai_api_key"`
	AIBaseURL      string `koanf:"ai_base_url"`
	AIModel        string `koanf:"ai_model"`
	RabbitMQURI    string `koanf:"rabbitmq_uri"`
	HTTPAddr       string `koanf:"http_addr"`
	FrontendURL    string `koanf:"frontend_url"`
	PublicURL      string `koanf:"public_url"`
	AllowedOrigins string `koanf:"allowed_origins"`
	Timezone       string `koanf:"timezone"`
}

func defaults() map[string]any {
	return map[string]any{
		"storage_driver":   "",
		"database_uri":     "",
		"mongo_uri":        "",
		"mongo_database":   "athena",
		"redis_url":        "",
		"telegram_token":   "",
		"telegram_chat_id": 0,
		"ai_api_key":       "",
		"ai_base_url":      "https://openrouter.ai/api/v1",
		"ai_model":         "openai/gpt-4o-mini",
		"rabbitmq_uri":     "",
		"http_addr":        ":8080",
		"frontend_url":     "http://localhost:3000",
		"public_url":       "",
		"allowed_origins":  "http://localhost:3000",
		"timezone":         "Asia/Taipei",
	}
}

// Load reads .env, then the optional YAML file at path, then the environment.
// Later sources win.
func Load(path string) (*Config, error) {
	// .env file is optional in production
	_ = godotenv.Load()

	k := koanf.New(".")
	known := defaults()
	if err := k.Load(confmap.Provider(known, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	// Only known keys, and empty variables do not override earlier sources
	if err := k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, any) {
		key = strings.ToLower(key)
		if _, ok := known[key]; !ok || value == "" {
			return "", nil
		}
		return key, value
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.StorageDriver == "" {
		cfg.StorageDriver = cfg.defaultDriver()
	}
	return &cfg, cfg.Validate()
}

func (c *Config) defaultDriver() string {
	switch {
	case c.DatabaseURI != "":
		return DriverPostgres
	case c.MongoURI != "":
		return DriverMongo
	}
	return DriverMemory
}

// Validate reports every missing or malformed value at once
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case DriverPostgres:
		if c.DatabaseURI == "" {
			errs = append(errs, errors.New("DATABASE_URI is required for the postgres driver"))
		}
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}

	if c.TelegramToken != "" && c.TelegramChatID == 0 {
		errs = append(errs, errors.New("TELEGRAM_CHAT_ID is required with TELEGRAM_TOKEN"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE: %w", err))
	}
	for name, v := range map[string]string{"FRONTEND_URL": c.FrontendURL, "PUBLIC_URL": c.PublicURL} {
		if v == "" {
			continue
		}
		if u, err := url.Parse(v); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s must be an absolute URL, got %q", name, v))
		}
	}
	return errors.Join(errs...)
}

// Location returns the configured time zone
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Origins splits ALLOWED_ORIGINS on commas
func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return slices.Compact(origins)
}
