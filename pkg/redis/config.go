package redis

import "time"

// Config holds connection settings for the verdict cache backend. Populated
// from environment variables via the config package. The URL format is
// "redis://:password@localhost:6379/0".
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`

	// VerdictTTL bounds how stale a cached dashboard verdict map may be.
	VerdictTTL time.Duration `env:"REDIS_VERDICT_TTL" envDefault:"1m"`
}
