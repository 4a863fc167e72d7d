package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	mastodon "github.com/jamesprial/go-mastodon-api-wrapper"
)

// Config is the CLI configuration, read from config.yaml and MASTODON_* variables.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Client  ClientConfig  `mapstructure:"client" yaml:"client"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig holds the instance and the credentials used against it.
type ServerConfig struct {
	URL          string `mapstructure:"url" yaml:"url"`
	StreamingURL string `mapstructure:"streaming_url" yaml:"streaming_url,omitempty"`
	AccessToken  string `mapstructure:"access_token" yaml:"access_token,omitempty"`
	ClientID     string `mapstructure:"client_id" yaml:"client_id,omitempty"`
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret,omitempty"`
}

// ClientConfig tunes the API client.
type ClientConfig struct {
	UserAgent       string        `mapstructure:"user_agent" yaml:"user_agent"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RateLimitMethod string        `mapstructure:"rate_limit_method" yaml:"rate_limit_method"`
	MaxSleep        time.Duration `mapstructure:"max_sleep" yaml:"max_sleep"`
	VersionCheck    string        `mapstructure:"version_check" yaml:"version_check"`
	Language        string        `mapstructure:"language" yaml:"language,omitempty"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// LoadConfig reads the configuration. A missing config file is not an error when no explicit
// path was given, so that login can create it.
func LoadConfig(configPath string) (*Config, string, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MASTODON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := configDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	used := configPath
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, "", fmt.Errorf("error reading config: %w", err)
		}
	} else {
		used = v.ConfigFileUsed()
	}
	if used == "" {
		dir, err := configDir()
		if err != nil {
			return nil, "", err
		}
		used = filepath.Join(dir, "config.yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, used, nil
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".mastodon"), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.url", "")
	v.SetDefault("server.streaming_url", "")
	v.SetDefault("server.access_token", "")
	v.SetDefault("server.client_id", "")
	v.SetDefault("server.client_secret", "")

	v.SetDefault("client.user_agent", "mastodon-cli/1.0")
	v.SetDefault("client.timeout", 30*time.Second)
	v.SetDefault("client.rate_limit_method", "wait")
	v.SetDefault("client.max_sleep", 5*time.Minute)
	v.SetDefault("client.version_check", "created")
	v.SetDefault("client.language", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

func (c *Config) validate() error {
	switch mastodon.RateLimitMethod(c.Client.RateLimitMethod) {
	case mastodon.RateLimitThrow, mastodon.RateLimitWait, mastodon.RateLimitPace:
	default:
		return fmt.Errorf("client.rate_limit_method must be throw, wait or pace, got %q", c.Client.RateLimitMethod)
	}
	switch mastodon.VersionCheckMode(c.Client.VersionCheck) {
	case mastodon.VersionCheckCreated, mastodon.VersionCheckChanged, mastodon.VersionCheckNone:
	default:
		return fmt.Errorf("client.version_check must be created, changed or none, got %q", c.Client.VersionCheck)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// ClientConfig builds the library configuration.
func (c *Config) ClientConfig() *mastodon.Config {
	return &mastodon.Config{
		BaseURL:           c.Server.URL,
		StreamingURL:      c.Server.StreamingURL,
		AccessToken:       c.Server.AccessToken,
		ClientID:          c.Server.ClientID,
		ClientSecret:      c.Server.ClientSecret,
		UserAgent:         c.Client.UserAgent,
		HTTPClient:        &http.Client{Timeout: c.Client.Timeout},
		RateLimitMethod:   mastodon.RateLimitMethod(c.Client.RateLimitMethod),
		RateLimitMaxSleep: c.Client.MaxSleep,
		VersionCheckMode:  mastodon.VersionCheckMode(c.Client.VersionCheck),
		Language:          c.Client.Language,
	}
}

// SaveConfig writes the configuration as YAML, readable only by the owner since it holds
// the access token.
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
