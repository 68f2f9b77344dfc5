package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the process configuration read from the environment
type Config struct {
	Environment string `env:"ENVIRONMENT"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Profile store
	DBDriver       string        `env:"DB_DRIVER" envDefault:"memory"`
	SQLiteFile     string        `env:"SQLITE_FILE" envDefault:"dev.sqlite"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	StorageTimeout time.Duration `env:"STORAGE_TIMEOUT" envDefault:"5s"`

	// Event bus
	EventBus    string `env:"EVENT_BUS"`
	NATSURL     string `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	NATSSubject string `env:"NATS_SUBJECT" envDefault:"xpulse.events"`

	// Analytics
	ClickHouseAddr     string `env:"CLICKHOUSE_ADDR"`
	ClickHouseDB       string `env:"CLICKHOUSE_DB" envDefault:"default"`
	ClickHouseUser     string `env:"CLICKHOUSE_USER" envDefault:"default"`
	ClickHousePassword string `env:"CLICKHOUSE_PASSWORD"`

	// Per-user locking
	LockBackend string        `env:"LOCK_BACKEND" envDefault:"memory"`
	RedisAddr   string        `env:"REDIS_ADDR"`
	LockTTL     time.Duration `env:"LOCK_TTL" envDefault:"10s"`
	LockRetries int           `env:"LOCK_RETRIES" envDefault:"20"`
	LockBackoff time.Duration `env:"LOCK_BACKOFF" envDefault:"50ms"`

	// Transports
	Port          string   `env:"PORT" envDefault:"3000"`
	GRPCPort      string   `env:"GRPC_PORT" envDefault:"50051"`
	DiscordToken  string   `env:"DISCORD_TOKEN"`
	CommandPrefix string   `env:"COMMAND_PREFIX" envDefault:";"`
	AdminUserIDs  []string `env:"ADMIN_USER_IDS" envSeparator:","`

	// Discord OAuth2 login for the HTTP and gRPC APIs
	DiscordClientID     string        `env:"DISCORD_CLIENT_ID"`
	DiscordClientSecret string        `env:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURL  string        `env:"DISCORD_REDIRECT_URL" envDefault:"http://localhost:3000/auth/callback"`
	SessionTTL          time.Duration `env:"SESSION_TTL" envDefault:"24h"`
}

// Load reads .env when present and then the process environment
func Load() (*Config, error) {
	_ = godotenv.Load()
	return parse(nil)
}

// parse reads environ, or the process environment when environ is nil
func parse(environ map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.EventBus == "" {
		cfg.EventBus = "nats"
		if cfg.IsDevelopment() {
			cfg.EventBus = "embedded"
		}
	}
	for i, id := range cfg.AdminUserIDs {
		cfg.AdminUserIDs[i] = strings.TrimSpace(id)
	}
	return &cfg, nil
}

// IsDevelopment reports whether the process runs without production services
func (c *Config) IsDevelopment() bool {
	return c.Environment == "" || c.Environment == "development"
}

// Validate reports every misconfiguration at once
func (c *Config) Validate() error {
	var errs []error

	switch c.DBDriver {
	case "memory", "sqlite":
	case "postgres":
		if c.DatabaseURL == "" && !c.IsDevelopment() {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q (valid: memory, sqlite, postgres)", c.DBDriver))
	}

	switch c.EventBus {
	case "memory", "embedded", "nats":
	default:
		errs = append(errs, fmt.Errorf("unknown EVENT_BUS %q (valid: memory, embedded, nats)", c.EventBus))
	}

	switch c.LockBackend {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis lock backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LOCK_BACKEND %q (valid: memory, redis)", c.LockBackend))
	}

	if c.StorageTimeout <= 0 {
		errs = append(errs, errors.New("STORAGE_TIMEOUT must be positive"))
	}
	if c.LockRetries < 0 {
		errs = append(errs, errors.New("LOCK_RETRIES must not be negative"))
	}
	if c.SessionTTL < 0 {
		errs = append(errs, errors.New("SESSION_TTL must not be negative"))
	}
	if strings.TrimSpace(c.CommandPrefix) == "" {
		errs = append(errs, errors.New("COMMAND_PREFIX must not be blank"))
	}
	if !c.IsDevelopment() {
		if c.DiscordToken == "" {
			errs = append(errs, errors.New("DISCORD_TOKEN is required outside development"))
		}
		if c.ClickHouseAddr == "" {
			errs = append(errs, errors.New("CLICKHOUSE_ADDR is required outside development"))
		}
		if c.DiscordClientID == "" || c.DiscordClientSecret == "" {
			errs = append(errs, errors.New("DISCORD_CLIENT_ID and DISCORD_CLIENT_SECRET are required outside development"))
		}
	}

	return errors.Join(errs...)
}
