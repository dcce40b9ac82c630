package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

type DBConfig struct {
	Host     string `env:"DB_HOST,default=localhost"`
	Port     string `env:"DB_PORT,default=5432"`
	User     string `env:"DB_USER,default=app_user"`
	Password string `env:"DB_PASSWORD,default=postgres_password"`
	Name     string `env:"DB_NAME,default=coderr"`
	SSLMode  string `env:"DB_SSLMODE,default=disable"`
	MaxConns int32  `env:"DB_MAX_CONNS,default=10"`
}

// DSN renders the keyword/value connection string understood by pgx.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}

// URL renders the same connection as a pgx5:// URL for the migrator.
func (c DBConfig) URL() string {
	return fmt.Sprintf("pgx5://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	URL      string        `env:"REDIS_URL"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB,default=0"`
	TTL      time.Duration `env:"REDIS_TTL,default=5m"`
}

// Enabled reports whether a redis address was configured.
func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

type HTTPConfig struct {
	Addr            string        `env:"HTTP_ADDR,default=:8000"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT,default=15s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	RateLimitRPS    int           `env:"RATE_LIMIT_RPS,default=5"`
	RateLimitBurst  int           `env:"RATE_LIMIT_BURST,default=10"`
}

type AuthConfig struct {
	TokenSecret string `env:"TOKEN_SECRET,default=change-me"`
}

type CatalogConfig struct {
	PageSize             int  `env:"PAGE_SIZE,default=6"`
	MaxPageSize          int  `env:"MAX_PAGE_SIZE,default=100"`
	EnforceTiersOnUpdate bool `env:"ENFORCE_TIERS_ON_UPDATE,default=false"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL,default=info"`
	Format string `env:"LOG_FORMAT,default=json"`
}

type Config struct {
	DB      DBConfig
	Redis   RedisConfig
	HTTP    HTTPConfig
	Auth    AuthConfig
	Catalog CatalogConfig
	Log     LogConfig
}

// LoadConfig reads an optional .env file and decodes the environment.
func LoadConfig(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Catalog.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive, got %d", c.Catalog.PageSize)
	}
	if c.Catalog.MaxPageSize < c.Catalog.PageSize {
		return fmt.Errorf("MAX_PAGE_SIZE (%d) must not be below PAGE_SIZE (%d)", c.Catalog.MaxPageSize, c.Catalog.PageSize)
	}
	if c.Auth.TokenSecret == "" {
		return errors.New("TOKEN_SECRET must not be empty")
	}
	if c.HTTP.RateLimitRPS <= 0 || c.HTTP.RateLimitBurst <= 0 {
		return errors.New("rate limit settings must be positive")
	}
	return nil
}
