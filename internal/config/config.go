package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName        = "LedgerBus"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultBroker         = BrokerRedis
	defaultConsumerGroup  = "ledgerbus"
	defaultNumberAttempts = 5
)

const (
	// BrokerRedis selects the Redis Streams event log backend.
	BrokerRedis = "redis"
	// BrokerRabbitMQ selects the RabbitMQ event log backend.
	BrokerRabbitMQ = "rabbitmq"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	Broker         string
	BrokerURL      string
	ConsumerGroup  string
	ProfileBaseURL string
	NumberAttempts int
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		Broker:         strings.ToLower(getEnv("EVENT_BROKER", defaultBroker)),
		BrokerURL:      os.Getenv("BROKER_URL"),
		ConsumerGroup:  getEnv("CONSUMER_GROUP", defaultConsumerGroup),
		ProfileBaseURL: os.Getenv("PROFILE_BASE_URL"),
		NumberAttempts: defaultNumberAttempts,
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,
	}

	if v := os.Getenv("ACCOUNT_NUMBER_ATTEMPTS"); v != "" {
		attempts, err := strconv.Atoi(v)
		if err != nil || attempts <= 0 {
			return Config{}, fmt.Errorf("invalid ACCOUNT_NUMBER_ATTEMPTS: %q", v)
		}
		cfg.NumberAttempts = attempts
	}

	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownPeriod = d
	}

	if v := os.Getenv("IDEMPOTENCY_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid IDEMPOTENCY_TTL: %w", err)
		}
		cfg.IdempotencyTTL = d
	}

	switch cfg.Broker {
	case BrokerRedis, BrokerRabbitMQ:
	default:
		return Config{}, fmt.Errorf("unsupported EVENT_BROKER %q", cfg.Broker)
	}

	// The Redis Streams backend reuses the idempotency cache connection when
	// BROKER_URL is not set explicitly.
	if cfg.Broker == BrokerRedis && cfg.BrokerURL == "" {
		cfg.BrokerURL = cfg.RedisURL
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}

	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}

	if cfg.Broker == BrokerRabbitMQ && cfg.BrokerURL == "" {
		return Config{}, fmt.Errorf("BROKER_URL must be set when EVENT_BROKER=rabbitmq")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
