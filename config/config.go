package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"hermes-backend/models"
	"hermes-backend/store"
)

// Config holds every runtime setting of the service.
type Config struct {
	Environment string
	Port        string
	LogLevel    string
	LogFile     string

	DBDriver          string
	PostgresUser      string
	PostgresPassword  string
	PostgresDB        string
	PostgresHost      string
	PostgresPort      string
	PostgresSSLMode   string
	SQLitePath        string
	MongoURI          string
	MongoDB           string
	DBMaxOpenConns    int
	DBConnMaxLifetime time.Duration
	DBConnectTimeout  time.Duration

	// UsersMetadata enables the additional_data column on the users table.
	UsersMetadata bool

	ChatVariant           string
	TelegramWebhookSecret string

	CORSOrigins []string

	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	ExportBucket       string
	ExportPrefix       string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("PORT", "3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "logs/app.log")
	v.SetDefault("DB_DRIVER", store.DriverPostgres)
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("DB_PATH", "database/personnel.db")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB", "hermes")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "10m")
	v.SetDefault("DB_CONNECT_TIMEOUT", "10s")
	v.SetDefault("USERS_METADATA", false)
	v.SetDefault("CHAT_VARIANT", "users")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("EXPORT_PREFIX", "exports")
}

// LoadConfig reads .env, falling back to config.yaml, then the environment.
// A missing file is not an error; environment variables and defaults apply.
// An explicit path overrides the search.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	candidates := []string{".env", "config.yaml"}
	if path != "" {
		candidates = []string{path}
	}
	loaded := false
	for _, file := range candidates {
		if _, err := os.Stat(file); err != nil {
			if path != "" {
				return nil, fmt.Errorf("file konfigurasi %s tidak ditemukan: %w", file, err)
			}
			continue
		}
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("gagal memuat file konfigurasi %s: %w", file, err)
		}
		log.Printf("✅ Konfigurasi dimuat dari %s", file)
		loaded = true
		break
	}
	if !loaded {
		log.Println("⚠️ File konfigurasi tidak ditemukan, memakai environment dan nilai bawaan")
	}

	cfg := &Config{
		Environment:           v.GetString("ENVIRONMENT"),
		Port:                  v.GetString("PORT"),
		LogLevel:              v.GetString("LOG_LEVEL"),
		LogFile:               v.GetString("LOG_FILE"),
		DBDriver:              strings.ToLower(v.GetString("DB_DRIVER")),
		PostgresUser:          v.GetString("POSTGRES_USER"),
		PostgresPassword:      v.GetString("POSTGRES_PASSWORD"),
		PostgresDB:            v.GetString("POSTGRES_DB"),
		PostgresHost:          v.GetString("POSTGRES_HOST"),
		PostgresPort:          v.GetString("POSTGRES_PORT"),
		PostgresSSLMode:       v.GetString("POSTGRES_SSLMODE"),
		SQLitePath:            v.GetString("DB_PATH"),
		MongoURI:              v.GetString("MONGO_URI"),
		MongoDB:               v.GetString("MONGO_DB"),
		DBMaxOpenConns:        v.GetInt("DB_MAX_OPEN_CONNS"),
		DBConnMaxLifetime:     v.GetDuration("DB_CONN_MAX_LIFETIME"),
		DBConnectTimeout:      v.GetDuration("DB_CONNECT_TIMEOUT"),
		UsersMetadata:         v.GetBool("USERS_METADATA"),
		ChatVariant:           v.GetString("CHAT_VARIANT"),
		TelegramWebhookSecret: v.GetString("TELEGRAM_WEBHOOK_SECRET"),
		CORSOrigins:           splitList(v.GetString("CORS_ORIGINS")),
		AWSRegion:             v.GetString("AWS_REGION"),
		AWSAccessKeyID:        v.GetString("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey:    v.GetString("AWS_SECRET_ACCESS_KEY"),
		ExportBucket:          v.GetString("AWS_BUCKET_NAME"),
		ExportPrefix:          v.GetString("EXPORT_PREFIX"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case store.DriverPostgres:
		if c.PostgresDB == "" || c.PostgresUser == "" {
			return errors.New("POSTGRES_DB dan POSTGRES_USER wajib diisi untuk DB_DRIVER=postgres")
		}
	case store.DriverSQLite, store.DriverMongo:
	default:
		return fmt.Errorf("DB_DRIVER %q tidak dikenal (postgres, sqlite, mongo)", c.DBDriver)
	}
	if _, ok := models.LookupVariant(c.ChatVariant); !ok {
		return fmt.Errorf("CHAT_VARIANT %q tidak dikenal (personnel, users)", c.ChatVariant)
	}
	return nil
}

// PostgresDSN builds the lib/pq connection URL.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSLMode)
}

// StoreOptions maps the database settings onto store.Options.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Driver:          c.DBDriver,
		PostgresDSN:     c.PostgresDSN(),
		SQLitePath:      c.SQLitePath,
		MongoURI:        c.MongoURI,
		MongoDatabase:   c.MongoDB,
		MaxOpenConns:    c.DBMaxOpenConns,
		ConnMaxLifetime: c.DBConnMaxLifetime,
		ConnectTimeout:  c.DBConnectTimeout,
	}
}

// IsProduction reports whether gin should run in release mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
