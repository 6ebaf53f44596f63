package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Environment string `mapstructure:"ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	HTTPAddr           string        `mapstructure:"HTTP_ADDR"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout    time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	RateLimitPerMinute int           `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	JWTSecret          string        `mapstructure:"JWT_SECRET"`
	TokenTTL           time.Duration `mapstructure:"TOKEN_TTL"`

	Store          string `mapstructure:"STORE"`
	DBDSN          string `mapstructure:"DB_DSN"`
	MigrateOnStart bool   `mapstructure:"MIGRATE_ON_START"`

	TelegramToken   string `mapstructure:"TELEGRAM_TOKEN"`
	NotifyQueueSize int    `mapstructure:"NOTIFY_QUEUE_SIZE"`
	NotifyWorkers   int    `mapstructure:"NOTIFY_WORKERS"`

	// Redis нужен только для распределённых блокировок нескольких инстансов
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	LockTTL       time.Duration `mapstructure:"LOCK_TTL"`

	// Ментор создаётся при старте, если его ещё нет
	MentorMail      string `mapstructure:"MENTOR_MAIL"`
	MentorPassword  string `mapstructure:"MENTOR_PASSWORD"`
	MentorFirstName string `mapstructure:"MENTOR_FIRST_NAME"`
	MentorLastName  string `mapstructure:"MENTOR_LAST_NAME"`
}

var defaults = map[string]interface{}{
	"ENV":                   "development",
	"LOG_LEVEL":             "",
	"HTTP_ADDR":             ":8080",
	"REQUEST_TIMEOUT":       "10s",
	"SHUTDOWN_TIMEOUT":      "15s",
	"RATE_LIMIT_PER_MINUTE": 120,
	"JWT_SECRET":            "",
	"TOKEN_TTL":             "24h",
	"STORE":                 StorePostgres,
	"DB_DSN":                "",
	"MIGRATE_ON_START":      true,
	"TELEGRAM_TOKEN":        "",
	"NOTIFY_QUEUE_SIZE":     256,
	"NOTIFY_WORKERS":        2,
	"REDIS_ADDR":            "",
	"REDIS_PASSWORD":        "",
	"REDIS_DB":              0,
	"LOCK_TTL":              "5s",
	"MENTOR_MAIL":           "",
	"MENTOR_PASSWORD":       "",
	"MENTOR_FIRST_NAME":     "",
	"MENTOR_LAST_NAME":      "",
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper собирает Config из уже настроенного viper: значения по умолчанию
// и переменные окружения поверх файла
func FromViper(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Store = strings.ToLower(cfg.Store)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate проверяет обязательные поля и диапазоны
func (c *Config) Validate() error {
	var errs []error

	switch c.Store {
	case StorePostgres:
		if c.DBDSN == "" {
			errs = append(errs, errors.New("DB_DSN is required when STORE=postgres"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE %q", c.Store))
	}

	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.LockTTL <= 0 {
		errs = append(errs, errors.New("LOCK_TTL must be positive"))
	}
	if c.NotifyQueueSize <= 0 || c.NotifyWorkers <= 0 {
		errs = append(errs, errors.New("NOTIFY_QUEUE_SIZE and NOTIFY_WORKERS must be positive"))
	}
	if c.IsProduction() && c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required in production"))
	}
	if (c.MentorMail == "") != (c.MentorPassword == "") {
		errs = append(errs, errors.New("MENTOR_MAIL and MENTOR_PASSWORD must be set together"))
	}

	return errors.Join(errs...)
}
