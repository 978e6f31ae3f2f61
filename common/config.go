package common

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/spf13/viper"
)

// Config is shared by every binary in this repository; each one reads only
// the fields it needs.
type Config struct {
	NatsURL    string `mapstructure:"nats_url"`
	OtlpURL    string `mapstructure:"otlp_url"`
	DbURL      string `mapstructure:"db_url"`
	ListenPort int    `mapstructure:"listen_port"`
	ApiURL     string `mapstructure:"api_url"`
}

// LoadConfig reads an optional .env file and an optional config.yaml from
// the working directory, then lets environment variables override both.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetDefault("nats_url", nats.DefaultURL)
	v.SetDefault("listen_port", 8080)
	v.SetDefault("api_url", "http://localhost:8080")

	v.AutomaticEnv()
	for key, env := range map[string]string{
		"nats_url":    "NATS_URL",
		"otlp_url":    "OTLP_URL",
		"db_url":      "DB_URL",
		"listen_port": "LISTEN_PORT",
		"api_url":     "API_URL",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
