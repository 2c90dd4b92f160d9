package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Top-level application info
	Version  string `mapstructure:"version"`
	ServerID string `mapstructure:"server_id"`

	// Server configuration
	Server struct {
		Host            string        `mapstructure:"host"`
		Port            int           `mapstructure:"port"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
		Mode            string        `mapstructure:"mode"`
		// RateLimit is requests per second per client IP, 0 disables limiting
		RateLimit int `mapstructure:"rate_limit"`
		RateBurst int `mapstructure:"rate_burst"`
		TLS struct {
			Enabled  bool   `mapstructure:"enabled"`
			CertFile string `mapstructure:"cert_file"`
			KeyFile  string `mapstructure:"key_file"`
		} `mapstructure:"tls"`
	} `mapstructure:"server"`

	// Database configuration
	Database struct {
		Type     string `mapstructure:"type"`
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"` // Sensitive
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"ssl_mode"`
		SQLite   struct {
			Path string `mapstructure:"path"`
		} `mapstructure:"sqlite"`
		MaxOpenConns    int           `mapstructure:"max_open_conns"`
		MaxIdleConns    int           `mapstructure:"max_idle_conns"`
		ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	} `mapstructure:"database"`

	// JWT authentication configuration
	Auth struct {
		Secret          string        `mapstructure:"secret"` // Sensitive
		AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
		RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
		TokenIssuer     string        `mapstructure:"token_issuer"`
		TokenAudience   string        `mapstructure:"token_audience"`
		PasswordPolicy  struct {
			MinLength int `mapstructure:"min_length"`
		} `mapstructure:"password_policy"`
	} `mapstructure:"auth"`

	// Scan pipeline configuration
	Scan struct {
		// MaxConcurrent bounds the number of scan jobs executing at once
		MaxConcurrent int `mapstructure:"max_concurrent"`
		// JobDeadline, when non-zero, cancels scans that run past it
		JobDeadline time.Duration `mapstructure:"job_deadline"`
		// MaxFileSize is the largest source file the analyzer will inspect
		MaxFileSize int64 `mapstructure:"max_file_size"`
	} `mapstructure:"scan"`

	// Report rendering configuration
	Render struct {
		// BrowserTimeout bounds the headless-browser PDF strategy
		BrowserTimeout time.Duration `mapstructure:"browser_timeout"`
		// NativeTimeout bounds the native document-composition strategy
		NativeTimeout time.Duration `mapstructure:"native_timeout"`
	} `mapstructure:"render"`

	// Logging configuration
	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logging"`
}

// LoadConfig loads configuration from a config file (auditflow.yaml in
// the working directory or /etc/auditflow) with environment overrides
// (AUDITFLOW_ prefix) on top of defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("auditflow")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/auditflow")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, env vars and defaults apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("AUDITFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("version", "dev")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.rate_limit", 50)
	v.SetDefault("server.rate_burst", 100)
	v.SetDefault("server.tls.enabled", false)

	// Database defaults
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.sqlite.path", "auditflow.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	// Auth defaults
	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.refresh_token_ttl", "168h")
	v.SetDefault("auth.token_issuer", "auditflow")
	v.SetDefault("auth.token_audience", "auditflow-api")
	v.SetDefault("auth.password_policy.min_length", 8)

	// Scan defaults
	v.SetDefault("scan.max_concurrent", 4)
	v.SetDefault("scan.job_deadline", "0")
	v.SetDefault("scan.max_file_size", 1024*1024)

	// Render defaults
	v.SetDefault("render.browser_timeout", "30s")
	v.SetDefault("render.native_timeout", "15s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks the loaded configuration for values the service
// cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.TLS.Enabled {
		if c.Server.TLS.CertFile == "" || c.Server.TLS.KeyFile == "" {
			return fmt.Errorf("TLS is enabled but cert_file or key_file is missing")
		}
	}

	if c.Scan.MaxConcurrent < 1 {
		return fmt.Errorf("scan.max_concurrent must be at least 1")
	}

	return nil
}
