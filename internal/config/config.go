// Package config loads mocktest settings from flags, environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix is prepended to every environment variable, e.g. MOCKTEST_TOKEN.
const EnvPrefix = "MOCKTEST"

type Config struct {
	APIURL string     `mapstructure:"api_url"`
	Token  string     `mapstructure:"token"`
	DB     string     `mapstructure:"db"`
	Log    LogConfig  `mapstructure:"log"`
	HTTP   HTTPConfig `mapstructure:"http"`
	Dev    DevConfig  `mapstructure:"dev"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// DevConfig configures the local development portal.
type DevConfig struct {
	Addr     string `mapstructure:"addr"`
	Secret   string `mapstructure:"secret"`
	Fixtures string `mapstructure:"fixtures"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		APIURL: "http://127.0.0.1:8787",
		Log: LogConfig{
			Level: "info",
		},
		HTTP: HTTPConfig{
			Timeout: 15 * time.Second,
			Retries: 3,
		},
		Dev: DevConfig{
			Addr:   "127.0.0.1:8787",
			Secret: "mocktest-dev-secret",
		},
	}
}

// New returns a viper instance with defaults, environment binding and the
// config search path set up. Flags are bound by the caller.
func New() *viper.Viper {
	v := viper.New()
	d := DefaultConfig()
	v.SetDefault("api_url", d.APIURL)
	v.SetDefault("token", d.Token)
	v.SetDefault("db", d.DB)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.retries", d.HTTP.Retries)
	v.SetDefault("dev.addr", d.Dev.Addr)
	v.SetDefault("dev.secret", d.Dev.Secret)
	v.SetDefault("dev.fixtures", d.Dev.Fixtures)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir := DefaultConfigDir(); dir != "" {
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file if one exists and decodes the merged
// settings. A missing config file is not an error.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level %q", c.Log.Level)
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive, got %s", c.HTTP.Timeout)
	}
	if c.HTTP.Retries < 0 {
		return fmt.Errorf("http.retries must not be negative, got %d", c.HTTP.Retries)
	}
	return nil
}

// RequirePortal checks the settings needed to talk to the portal.
func (c Config) RequirePortal() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url is required (set %s_API_URL or --api-url)", EnvPrefix)
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api_url %q", c.APIURL)
	}
	if c.Token == "" {
		return fmt.Errorf("token is required (set %s_TOKEN or --token)", EnvPrefix)
	}
	return nil
}

// DefaultConfigDir returns $XDG_CONFIG_HOME/mocktest, falling back to
// ~/.config/mocktest.
func DefaultConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "mocktest")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "mocktest")
}
