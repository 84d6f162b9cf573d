package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	Session SessionConfig `mapstructure:"session"`
	OIDC    OIDCConfig    `mapstructure:"oidc"`
	Log     LogConfig     `mapstructure:"log"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Media   MediaConfig   `mapstructure:"media"`
	Blog    BlogConfig    `mapstructure:"blog"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Port    string    `mapstructure:"port"`
	BaseURL string    `mapstructure:"base_url"`
	TLS     TLSConfig `mapstructure:"tls"`
}

// TLSConfig holds TLS-specific configuration.
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
}

// DBConfig holds database-specific configuration.
type DBConfig struct {
	Driver     string `mapstructure:"driver"` // "sqlite3" or "mysql"
	DSN        string `mapstructure:"dsn"`
	Migrations string `mapstructure:"migrations"`
}

// SessionConfig holds session cookie configuration.
type SessionConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	Lifetime  int    `mapstructure:"lifetime"` // hours
}

// OIDCConfig holds OIDC client configuration.
// External sign-in is disabled while IssuerURL is empty.
type OIDCConfig struct {
	IssuerURL    string `mapstructure:"issuer_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

// Enabled reports whether an OIDC provider is configured.
func (c OIDCConfig) Enabled() bool {
	return c.IssuerURL != "" && c.ClientID != ""
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // e.g., "debug", "info", "warn", "error"
	Format string `mapstructure:"format"` // e.g., "json", "console"
}

// CacheConfig holds configuration for the rendered content cache.
type CacheConfig struct {
	FilePath string        `mapstructure:"file_path"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// MediaConfig holds configuration for uploaded post images.
type MediaConfig struct {
	Dir         string `mapstructure:"dir"`
	MaxUploadMB int64  `mapstructure:"max_upload_mb"`
}

// BlogConfig holds content settings.
type BlogConfig struct {
	PageSize int `mapstructure:"page_size"`
}

// DefaultSecretKey is the placeholder secret that must be replaced in production.
const DefaultSecretKey = "CHANGE_ME_IN_PRODUCTION_SECRET!!"

// LoadConfig reads configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.tls.enabled", false)
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("db.driver", "sqlite3")
	v.SetDefault("db.dsn", "blog.db")
	v.SetDefault("db.migrations", "migrations")
	v.SetDefault("session.secret_key", DefaultSecretKey)
	v.SetDefault("session.lifetime", 24)
	v.SetDefault("oidc.issuer_url", "")
	v.SetDefault("oidc.client_id", "")
	v.SetDefault("oidc.client_secret", "")
	v.SetDefault("oidc.redirect_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("cache.file_path", "cache.db")
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("media.dir", "media")
	v.SetDefault("media.max_upload_mb", 5)
	v.SetDefault("blog.page_size", 10)

	// Set up viper to read from config file
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/go-blog-app/")
	v.AddConfigPath("$HOME/.go-blog-app")

	// Attempt to read the config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return nil, err
		}
		// Config file not found; proceed with defaults and env vars
	}

	// Set up viper to read from environment variables
	v.SetEnvPrefix("BLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Blog.PageSize <= 0 {
		cfg.Blog.PageSize = 10
	}
	return &cfg, nil
}
