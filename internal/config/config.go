// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	PublicURL      string `mapstructure:"PUBLIC_URL"`
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	SessionTTLHrs  int    `mapstructure:"SESSION_TTL_HOURS"`
	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         string `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	DBSSLMode      string `mapstructure:"DB_SSLMODE"`
	RedisURL       string `mapstructure:"REDIS_URL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	StorageEndpoint  string `mapstructure:"STORAGE_ENDPOINT"`
	StorageAccessKey string `mapstructure:"STORAGE_ACCESS_KEY"`
	StorageSecretKey string `mapstructure:"STORAGE_SECRET_KEY"`
	StorageBucket    string `mapstructure:"STORAGE_BUCKET"`
	StorageUseSSL    bool   `mapstructure:"STORAGE_USE_SSL"`
	MaxUploadSizeMB  int    `mapstructure:"MAX_UPLOAD_SIZE_MB"`

	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	TracingOTLPEndpoint string  `mapstructure:"TRACING_OTLP_ENDPOINT"`
	TracingSampleRatio  float64 `mapstructure:"TRACING_SAMPLE_RATIO"`

	SearchDebounceMS    int `mapstructure:"SEARCH_DEBOUNCE_MS"`
	PageSize            int `mapstructure:"PAGE_SIZE"`
	ListCacheTTLSeconds int `mapstructure:"LIST_CACHE_TTL_SECONDS"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults(viper.GetViper())

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.DBSSLMode = strings.ToLower(strings.TrimSpace(config.DBSSLMode))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8375")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PUBLIC_URL", "http://localhost:8375")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("SESSION_TTL_HOURS", 24*7)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "user")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "snapgram")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	v.SetDefault("STORAGE_ENDPOINT", "")
	v.SetDefault("STORAGE_BUCKET", "snapgram-media")
	v.SetDefault("STORAGE_USE_SSL", false)
	v.SetDefault("MAX_UPLOAD_SIZE_MB", 10)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "snapgram.documents")
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_EXPORTER", "stdout")
	v.SetDefault("TRACING_SAMPLE_RATIO", 1.0)
	v.SetDefault("SEARCH_DEBOUNCE_MS", 500)
	v.SetDefault("PAGE_SIZE", 6)
	v.SetDefault("LIST_CACHE_TTL_SECONDS", 60)
}

// IsProduction reports whether the config targets a production profile.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// SessionTTL returns how long an issued session stays valid.
func (c *Config) SessionTTL() time.Duration {
	if c.SessionTTLHrs <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.SessionTTLHrs) * time.Hour
}

// SearchDebounce returns the quiet period applied to search input.
func (c *Config) SearchDebounce() time.Duration {
	if c.SearchDebounceMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.SearchDebounceMS) * time.Millisecond
}

// KafkaBrokerList splits KAFKA_BROKERS on commas.
func (c *Config) KafkaBrokerList() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.PageSize < 0 || c.PageSize > 100 {
		return errors.New("PAGE_SIZE must be between 0 and 100")
	}
	if c.MaxUploadSizeMB < 0 {
		return errors.New("MAX_UPLOAD_SIZE_MB must not be negative")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable TLS in production")
		}
		if c.StorageEndpoint == "" {
			return errors.New("STORAGE_ENDPOINT is required in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
