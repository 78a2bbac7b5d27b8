package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env       string          `mapstructure:"env"`
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Search    SearchConfig    `mapstructure:"search"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"; empty picks by env
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	SyncAddr     string        `mapstructure:"sync_addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	JWTSecret   string        `mapstructure:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer"`
	JWTDuration time.Duration `mapstructure:"jwt_ttl"`
}

type ProvidersConfig struct {
	Timeout           time.Duration  `mapstructure:"timeout"`
	RequestsPerMinute int            `mapstructure:"requests_per_minute"`
	AniList           ProviderConfig `mapstructure:"anilist"`
	TVMaze            ProviderConfig `mapstructure:"tvmaze"`
}

type ProviderConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type SearchConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
}

const envPrefix = "MEDIATRACK"

// LoadConfig reads configuration from defaults, an optional YAML file and
// MEDIATRACK_* environment variables, in increasing order of precedence.
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := os.Getenv(envPrefix + "_CONFIG")
	if path == "" {
		path = "mediatrack.yml"
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.Database.Path = expandHome(cfg.Database.Path)
	if cfg.Env == "production" && cfg.Auth.JWTSecret == defaultJWTSecret {
		return nil, errors.New("auth.jwt_secret must be set in production")
	}
	return &cfg, nil
}

const defaultJWTSecret = "dev-secret-change-me"

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.sync_addr", ":7070")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("database.path", "~/.mediatrack/data.db")

	v.SetDefault("auth.jwt_secret", defaultJWTSecret)
	v.SetDefault("auth.jwt_issuer", "mediatrack")
	v.SetDefault("auth.jwt_ttl", 24*time.Hour)

	v.SetDefault("providers.timeout", 10*time.Second)
	v.SetDefault("providers.requests_per_minute", 60)
	v.SetDefault("providers.anilist.base_url", "https://graphql.anilist.co")
	v.SetDefault("providers.tvmaze.base_url", "https://api.tvmaze.com")
	v.SetDefault("providers.tvmaze.api_key", "")

	v.SetDefault("search.default_limit", 20)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, path[2:])
}
