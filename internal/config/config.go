package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config represents the complete configuration. Values come from defaults,
// then the optional TOML file, then environment variables.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Minio    MinioConfig    `toml:"minio"`
	Auth     AuthConfig     `toml:"auth"`
	Menu     MenuConfig     `toml:"menu"`
	Reports  ReportsConfig  `toml:"reports"`
}

type ServerConfig struct {
	Port            int    `toml:"port"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL      string `toml:"url"`
	MaxConns int32  `toml:"max_conns"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// MinioConfig holds the menu image bucket settings. An empty endpoint disables uploads.
type MinioConfig struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl"`
	Bucket    string `toml:"bucket"`
	PublicURL string `toml:"public_url"`
}

type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
	// JWKSURL, when set, accepts access tokens from an external identity provider
	JWKSURL         string `toml:"jwks_url"`
	AccessTokenTTL  int    `toml:"access_token_ttl"`  // seconds
	RefreshTokenTTL int    `toml:"refresh_token_ttl"` // seconds
}

type MenuConfig struct {
	Categories []string `toml:"categories"`
}

type ReportsConfig struct {
	LiveRefreshInterval string `toml:"live_refresh_interval"`
}

// Default returns the development configuration
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080, ShutdownTimeout: "10s"},
		Database: DatabaseConfig{MaxConns: 10},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Minio: MinioConfig{
			Endpoint:  "localhost:9000",
			AccessKey: "minioadmin",
			SecretKey: "minioadmin",
			Bucket:    "menu-images",
		},
		Auth: AuthConfig{
			AccessTokenTTL:  3600,
			RefreshTokenTTL: 7 * 24 * 3600,
		},
		Reports: ReportsConfig{LiveRefreshInterval: "30s"},
	}
}

// Load reads .env if present, then path if it exists, then the environment.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // load .env if it exists

	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
			log.Printf("INFO: loaded config file %s", path)
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", k, err)
	}
	return n, nil
}

func (c *Config) applyEnv() error {
	var err error
	if c.Server.Port, err = getenvInt("PORT", c.Server.Port); err != nil {
		return err
	}

	c.Database.URL = getenv("DATABASE_URL", c.Database.URL)
	maxConns, err := getenvInt("DATABASE_MAX_CONNS", int(c.Database.MaxConns))
	if err != nil {
		return err
	}
	c.Database.MaxConns = int32(maxConns)

	c.Redis.Addr = getenv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getenv("REDIS_PASSWORD", c.Redis.Password)
	if c.Redis.DB, err = getenvInt("REDIS_DB", c.Redis.DB); err != nil {
		return err
	}

	c.Minio.Endpoint = getenv("MINIO_ENDPOINT", c.Minio.Endpoint)
	c.Minio.AccessKey = getenv("MINIO_ACCESS_KEY", c.Minio.AccessKey)
	c.Minio.SecretKey = getenv("MINIO_SECRET_KEY", c.Minio.SecretKey)
	c.Minio.Bucket = getenv("MINIO_BUCKET", c.Minio.Bucket)
	c.Minio.PublicURL = getenv("MINIO_PUBLIC_URL", c.Minio.PublicURL)
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		c.Minio.UseSSL = v == "true"
	}

	c.Auth.JWTSecret = getenv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.JWKSURL = getenv("AUTH_JWKS_URL", c.Auth.JWKSURL)
	if c.Auth.AccessTokenTTL, err = getenvInt("ACCESS_TOKEN_TTL", c.Auth.AccessTokenTTL); err != nil {
		return err
	}
	if c.Auth.RefreshTokenTTL, err = getenvInt("REFRESH_TOKEN_TTL", c.Auth.RefreshTokenTTL); err != nil {
		return err
	}

	if v := os.Getenv("MENU_CATEGORIES"); v != "" {
		c.Menu.Categories = splitList(v)
	}
	c.Reports.LiveRefreshInterval = getenv("LIVE_REFRESH_INTERVAL", c.Reports.LiveRefreshInterval)
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the values that cannot be defaulted at use
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if _, err := c.LiveRefreshInterval(); err != nil {
		return err
	}
	if _, err := c.ShutdownTimeout(); err != nil {
		return err
	}
	return nil
}

// LiveRefreshInterval parses reports.live_refresh_interval
func (c *Config) LiveRefreshInterval() (time.Duration, error) {
	return parseDuration("live_refresh_interval", c.Reports.LiveRefreshInterval)
}

// ShutdownTimeout parses server.shutdown_timeout
func (c *Config) ShutdownTimeout() (time.Duration, error) {
	return parseDuration("shutdown_timeout", c.Server.ShutdownTimeout)
}

func parseDuration(name, v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", name)
	}
	return d, nil
}
