// Package config loads service configuration from environment variables
// with an optional YAML overlay file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "SPACEFY_"

// Config holds all service configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Cache    CacheConfig    `yaml:"cache"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	OTel     OTelConfig     `yaml:"otel"`
	LogLevel string         `yaml:"log_level"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN builds the PostgreSQL connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode)
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// CacheConfig holds response cache TTLs per key category
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTLList time.Duration `yaml:"ttl_list"`
	TTLByID time.Duration `yaml:"ttl_by_id"`
}

// AuthConfig holds JWT settings and the role names that bypass
// permission checks
type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	BypassRoles   []string      `yaml:"bypass_roles"`
	PermMemoSize  int           `yaml:"perm_memo_size"`
	PermMemoTTL   time.Duration `yaml:"perm_memo_ttl"`
	SeedOnStartup bool          `yaml:"seed_on_startup"`
	DefaultRole   string        `yaml:"default_role"`
}

// StorageConfig holds S3 object storage settings for image uploads
type StorageConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Endpoint       string `yaml:"endpoint"`
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	Insecure       bool   `yaml:"insecure"`
}

// Default returns the baseline configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "spacefy",
			Password:        "",
			Database:        "spacefy",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Cache: CacheConfig{
			Enabled: true,
			TTLList: 60 * time.Second,
			TTLByID: 120 * time.Second,
		},
		Auth: AuthConfig{
			TokenTTL:      24 * time.Hour,
			BypassRoles:   []string{"OWNER", "DEVELOPER"},
			PermMemoSize:  256,
			PermMemoTTL:   5 * time.Minute,
			SeedOnStartup: true,
			DefaultRole:   "CUSTOMER",
		},
		Storage: StorageConfig{
			Region: "us-east-1",
		},
		OTel: OTelConfig{
			ServiceName:    "spacefy",
			ServiceVersion: "dev",
		},
		LogLevel: "info",
	}
}

// Load builds the configuration from defaults, an optional YAML file
// named by SPACEFY_CONFIG_FILE, then environment variables. Environment
// variables win.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(envPrefix + "CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Host, "SERVER_HOST")
	setInt(&c.Server.Port, "SERVER_PORT")
	setDuration(&c.Server.ReadTimeout, "SERVER_READ_TIMEOUT")
	setDuration(&c.Server.WriteTimeout, "SERVER_WRITE_TIMEOUT")
	setDuration(&c.Server.ShutdownTimeout, "SERVER_SHUTDOWN_TIMEOUT")

	setString(&c.Database.Host, "DB_HOST")
	setInt(&c.Database.Port, "DB_PORT")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Database, "DB_NAME")
	setString(&c.Database.SSLMode, "DB_SSLMODE")
	setInt(&c.Database.MaxOpenConns, "DB_MAX_OPEN_CONNS")
	setInt(&c.Database.MaxIdleConns, "DB_MAX_IDLE_CONNS")
	setDuration(&c.Database.ConnMaxLifetime, "DB_CONN_MAX_LIFETIME")

	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setInt(&c.Redis.DB, "REDIS_DB")

	setBool(&c.Cache.Enabled, "CACHE_ENABLED")
	setDuration(&c.Cache.TTLList, "TTL_LIST")
	setDuration(&c.Cache.TTLByID, "TTL_BY_ID")

	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setDuration(&c.Auth.TokenTTL, "TOKEN_TTL")
	setStringSlice(&c.Auth.BypassRoles, "BYPASS_ROLES")
	setInt(&c.Auth.PermMemoSize, "PERM_MEMO_SIZE")
	setDuration(&c.Auth.PermMemoTTL, "PERM_MEMO_TTL")
	setBool(&c.Auth.SeedOnStartup, "SEED_ON_STARTUP")
	setString(&c.Auth.DefaultRole, "DEFAULT_ROLE")

	setBool(&c.Storage.Enabled, "S3_ENABLED")
	setString(&c.Storage.Region, "S3_REGION")
	setString(&c.Storage.Bucket, "S3_BUCKET")
	setString(&c.Storage.Endpoint, "S3_ENDPOINT")
	setString(&c.Storage.AccessKey, "S3_ACCESS_KEY")
	setString(&c.Storage.SecretKey, "S3_SECRET_KEY")

	setBool(&c.OTel.Enabled, "OTEL_ENABLED")
	setString(&c.OTel.Endpoint, "OTEL_ENDPOINT")
	setString(&c.OTel.ServiceName, "OTEL_SERVICE_NAME")
	setString(&c.OTel.ServiceVersion, "OTEL_SERVICE_VERSION")
	setBool(&c.OTel.Insecure, "OTEL_INSECURE")

	setString(&c.LogLevel, "LOG_LEVEL")
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("%sJWT_SECRET is required", envPrefix)
	}
	if c.Cache.TTLList <= 0 || c.Cache.TTLByID <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database max open connections must be at least 1")
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("%sS3_BUCKET is required when object storage is enabled", envPrefix)
	}
	if c.OTel.Enabled && c.OTel.Endpoint == "" {
		return fmt.Errorf("%sOTEL_ENDPOINT is required when OpenTelemetry is enabled", envPrefix)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
			return
		}
		// bare numbers are seconds
		if n, err := strconv.Atoi(v); err == nil {
			*dst = time.Duration(n) * time.Second
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*dst = out
	}
}
