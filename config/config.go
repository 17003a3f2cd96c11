package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	API     APIConfig     `mapstructure:"api"`
	Exec    ExecConfig    `mapstructure:"exec"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Transport string `mapstructure:"transport"`
	HTTPPort  int    `mapstructure:"http_port"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// APIConfig holds the credentials for the remote REPL machine service
type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
}

// ExecConfig holds per-call execution limits
type ExecConfig struct {
	TimeoutSec int `mapstructure:"timeout_sec"`
}

// credentialFile is the on-disk fallback written by the vendor CLI:
// {"token": "...", "base_url": "..."}
type credentialFile struct {
	Token   string `json:"token"`
	BaseURL string `json:"base_url"`
}

// New loads and validates the application configuration
func New() (*Config, error) {
	return load(defaultCredentialPath())
}

func load(credentialPath string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set default values
	viper.SetDefault("server.transport", "stdio")
	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("logging.mode", "production")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("api.base_url", "https://api.forevervm.com")
	viper.SetDefault("api.token", "")
	viper.SetDefault("exec.timeout_sec", 120)

	// Credentials come from the environment when present
	viper.BindEnv("api.token", "FOREVERVM_TOKEN")
	viper.BindEnv("api.base_url", "FOREVERVM_API_BASE")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Fall back to the on-disk credential file when the environment
	// provided no token
	if config.API.Token == "" && credentialPath != "" {
		if creds, err := readCredentialFile(credentialPath); err == nil {
			config.API.Token = creds.Token
			if creds.BaseURL != "" {
				config.API.BaseURL = creds.BaseURL
			}
		}
	}

	// Validate configuration
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// defaultCredentialPath returns the location of the fallback credential file
func defaultCredentialPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "forevervm", "config.json")
}

func readCredentialFile(path string) (*credentialFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading credential file: %w", err)
	}

	var creds credentialFile
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("error parsing credential file %s: %w", path, err)
	}

	return &creds, nil
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	if c.Server.Transport != "stdio" && c.Server.Transport != "http" {
		return fmt.Errorf("invalid server.transport: %s, must be 'stdio' or 'http'", c.Server.Transport)
	}

	if c.Logging.Mode != "production" && c.Logging.Mode != "development" {
		return fmt.Errorf("invalid logging.mode: %s, must be 'production' or 'development'", c.Logging.Mode)
	}

	if c.Exec.TimeoutSec <= 0 {
		return fmt.Errorf("exec.timeout_sec must be positive, got: %d", c.Exec.TimeoutSec)
	}

	if c.API.Token == "" {
		return fmt.Errorf("no API token configured: set FOREVERVM_TOKEN or write %s", defaultCredentialPath())
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api.base_url: %s", c.API.BaseURL)
	}

	return nil
}

// GetTimeout returns the per-call execution timeout as a duration
func (c *Config) GetTimeout() time.Duration {
	return time.Duration(c.Exec.TimeoutSec) * time.Second
}
