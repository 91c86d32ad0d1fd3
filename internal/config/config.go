package config

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port string `envconfig:"PORT" default:"3000"`
	Env  string `envconfig:"ENV" default:"dev"`

	// DB
	DBDriver    string `envconfig:"DB_DRIVER" default:"postgres"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// JWT
	JWTSecret      string `envconfig:"JWT_SECRET" required:"true"`
	JWTExpireHours int    `envconfig:"JWT_EXPIRE_HOURS" default:"24"`

	// HTTP
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`
	SignupEnabled  bool     `envconfig:"SIGNUP_ENABLED" default:"false"`

	// Seed admin, created on startup when both are set
	SeedAdminEmail    string `envconfig:"SEED_ADMIN_EMAIL"`
	SeedAdminPassword string `envconfig:"SEED_ADMIN_PASSWORD"`
	SeedAdminName     string `envconfig:"SEED_ADMIN_NAME" default:"Administrator"`

	// Events
	RabbitURL      string `envconfig:"RABBIT_URL"`
	RabbitExchange string `envconfig:"RABBIT_EXCHANGE" default:"crm.events"`

	// Tracing
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// Backups
	BackupBucket        string `envconfig:"BACKUP_BUCKET_NAME"`
	BackupEndpointURL   string `envconfig:"BACKUP_ENDPOINT_URL"`
	BackupAccessKeyID   string `envconfig:"BACKUP_ACCESS_KEY_ID"`
	BackupSecretKey     string `envconfig:"BACKUP_SECRET_ACCESS_KEY"`
	BackupRegion        string `envconfig:"BACKUP_REGION" default:"auto"`
	BackupRetentionDays int    `envconfig:"BACKUP_RETENTION_DAYS" default:"30"`
}

// LoadDotEnv loads a .env file from the working directory if one exists.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Error loading .env file: %v", err)
	}
}

// Load reads the environment (and .env) into a Config
func Load() (Config, error) {
	LoadDotEnv()

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return c, err
	}

	// required only checks presence; an empty value is just as unusable
	if strings.TrimSpace(c.JWTSecret) == "" {
		return c, errors.New("JWT_SECRET must not be empty")
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return c, errors.New("DATABASE_URL must not be empty")
	}

	return c, nil
}

func (c Config) TokenTTL() time.Duration {
	if c.JWTExpireHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.JWTExpireHours) * time.Hour
}

func (c Config) SeedAdminConfigured() bool {
	return c.SeedAdminEmail != "" && c.SeedAdminPassword != ""
}

func (c Config) BackupConfigured() bool {
	return c.BackupBucket != "" && c.BackupAccessKeyID != "" && c.BackupSecretKey != ""
}
