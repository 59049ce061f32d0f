package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures everything the engine reads from the environment. Optional
// backends (Postgres, Redis, Kafka) fall back to in-memory implementations
// when their settings are empty.
type Config struct {
	Addr          string   `env:"VERZA_ADDR" envDefault:":8080"`
	PostgresDSN   string   `env:"POSTGRES_DSN"`
	RedisURL      string   `env:"REDIS_URL"`
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic    string   `env:"KAFKA_ACTIVITY_TOPIC" envDefault:"verza.job.activity"`
	JWTSigningKey string   `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`

	ClaimTTL      time.Duration `env:"CLAIM_TTL" envDefault:"30m"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	DisputeWindow time.Duration `env:"DISPUTE_WINDOW" envDefault:"72h"`
	SLAWindow     time.Duration `env:"SLA_WINDOW" envDefault:"48h"`
	CASMaxRetries int           `env:"CAS_MAX_RETRIES" envDefault:"3"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}
