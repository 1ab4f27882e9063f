package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service and its
// lifecycle event consumer.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	EventsSubject    string
	EventsQueueGroup string
	GradingSubject   string
	JWTSecret        string
	ServiceAPIKey    string
	ReviewCacheTTL   time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CODEGRADE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "CodeGrade API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("events.subject", "codegrade.lifecycle.events")
	v.SetDefault("events.queue_group", "codegrade-lifecycle")
	v.SetDefault("grading.subject", "codegrade.grading.submissions")
	v.SetDefault("review.cache_ttl", "2m")

	ttlString := v.GetString("review.cache_ttl")
	if ttlString == "" {
		ttlString = "2m"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid review cache ttl: %w", err)
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		EventsSubject:    v.GetString("events.subject"),
		EventsQueueGroup: v.GetString("events.queue_group"),
		GradingSubject:   v.GetString("grading.subject"),
		JWTSecret:        v.GetString("jwt.secret"),
		ServiceAPIKey:    v.GetString("service.api_key"),
		ReviewCacheTTL:   ttl,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.ServiceAPIKey == "" {
		return Config{}, fmt.Errorf("service api key must be provided")
	}

	return cfg, nil
}
