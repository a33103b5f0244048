package redis

import "time"

// Config holds Redis connection settings.
//
// ConnectionURL is deliberately not required: an empty REDIS_URL switches the
// whole process into single-instance in-memory mode, and Connect reports
// ErrEmptyConnectionURL so the caller can make that decision explicitly.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL"`                              // e.g. "redis://:password@localhost:6379/0"
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`    // connection attempts before giving up
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`   // delay between attempts
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"` // overall budget for establishing the connection
}

// Enabled reports whether a distributed backend is configured at all.
func (c Config) Enabled() bool {
	return c.ConnectionURL != ""
}
