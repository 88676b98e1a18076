package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MigrationsPath  string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether an SMTP relay is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

type Config struct {
	App struct {
		Port           string
		LogLevel       string
		MaxUploadBytes int64
	}
	Postgres   PostgresConfig
	Auth       AuthConfig
	SMTP       SMTPConfig
	Cloudinary CloudinaryConfig
	Scheduler  struct {
		OverdueSweepInterval time.Duration
	}
	Pricing struct {
		// DefaultAirCargoCost is used for premium campaigns created without one.
		DefaultAirCargoCost decimal.Decimal
	}
}

// NewConfig reads configuration from the environment, after loading a .env
// file from the working directory or ENV_FILE when present.
func NewConfig() (*Config, error) {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	cfg := &Config{}
	var err error

	cfg.App.Port = getEnv("APP_PORT", "8080")
	cfg.App.LogLevel = getEnv("LOG_LEVEL", "info")
	if cfg.App.MaxUploadBytes, err = getInt64("MAX_UPLOAD_BYTES", 5<<20); err != nil {
		return nil, err
	}

	cfg.Postgres.Host = os.Getenv("DB_HOST")
	cfg.Postgres.Port = getEnv("DB_PORT", "5432")
	cfg.Postgres.User = os.Getenv("DB_USER")
	cfg.Postgres.Password = os.Getenv("DB_PASSWORD")
	cfg.Postgres.DBName = os.Getenv("DB_NAME")
	cfg.Postgres.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Postgres.MigrationsPath = getEnv("DB_MIGRATIONS_PATH", "migrations")
	maxConns, err := getInt64("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}
	minConns, err := getInt64("DB_MIN_CONNS", 2)
	if err != nil {
		return nil, err
	}
	cfg.Postgres.MaxConns = int32(maxConns)
	cfg.Postgres.MinConns = int32(minConns)
	if cfg.Postgres.MaxConnLifetime, err = getDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute); err != nil {
		return nil, err
	}

	cfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.Auth.TokenTTL, err = getDuration("JWT_TTL", 72*time.Hour); err != nil {
		return nil, err
	}

	cfg.SMTP.Host = os.Getenv("SMTP_HOST")
	smtpPort, err := getInt64("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}
	cfg.SMTP.Port = int(smtpPort)
	cfg.SMTP.Username = os.Getenv("SMTP_USERNAME")
	cfg.SMTP.Password = os.Getenv("SMTP_PASSWORD")
	cfg.SMTP.From = os.Getenv("SMTP_FROM")

	cfg.Cloudinary.CloudName = os.Getenv("CLOUDINARY_CLOUD_NAME")
	cfg.Cloudinary.APIKey = os.Getenv("CLOUDINARY_API_KEY")
	cfg.Cloudinary.APISecret = os.Getenv("CLOUDINARY_API_SECRET")
	cfg.Cloudinary.Folder = getEnv("CLOUDINARY_FOLDER", "groupbuy")

	if cfg.Scheduler.OverdueSweepInterval, err = getDuration("OVERDUE_SWEEP_INTERVAL", time.Hour); err != nil {
		return nil, err
	}

	cargo, err := decimal.NewFromString(getEnv("DEFAULT_AIR_CARGO_COST", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_AIR_CARGO_COST: %w", err)
	}
	cfg.Pricing.DefaultAirCargoCost = cargo

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	required := map[string]string{
		"DB_HOST":     c.Postgres.Host,
		"DB_USER":     c.Postgres.User,
		"DB_PASSWORD": c.Postgres.Password,
		"DB_NAME":     c.Postgres.DBName,
		"JWT_SECRET":  c.Auth.JWTSecret,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}
	if c.Postgres.MinConns > c.Postgres.MaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.Postgres.MinConns, c.Postgres.MaxConns)
	}
	if c.Scheduler.OverdueSweepInterval <= 0 {
		return fmt.Errorf("OVERDUE_SWEEP_INTERVAL must be positive")
	}
	if c.App.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
