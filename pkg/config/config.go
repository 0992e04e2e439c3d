// Package config loads server settings from an optional YAML file, an
// optional .env file and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dasmlab/lektor/pkg/llm"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ProviderConfig holds the settings for a single LLM provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// ProvidersConfig holds provider selection and per-provider settings.
type ProvidersConfig struct {
	Priority       []string       `yaml:"priority"`
	OpenAI         ProviderConfig `yaml:"openai"`
	Google         ProviderConfig `yaml:"google"`
	RequestTimeout time.Duration  `yaml:"request_timeout"`
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	HTTPPort int `yaml:"http_port"`
	GRPCPort int `yaml:"grpc_port"`
}

// LibraryConfig locates the sample texts.
type LibraryConfig struct {
	Dir string `yaml:"dir"`
}

// JobsConfig controls retention of async translation jobs.
type JobsConfig struct {
	MaxAge          time.Duration `yaml:"max_age"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// Config is the complete structure of the config file.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Library   LibraryConfig   `yaml:"library"`
	Jobs      JobsConfig      `yaml:"jobs"`
	LogLevel  string          `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: 5001,
			GRPCPort: 50051,
		},
		Providers: ProvidersConfig{
			Priority:       []string{string(llm.ProviderOpenAI), string(llm.ProviderGoogle)},
			RequestTimeout: llm.DefaultRequestTimeout,
		},
		Library: LibraryConfig{
			Dir: "sample-texts",
		},
		Jobs: JobsConfig{
			MaxAge:          time.Hour,
			CleanupInterval: 10 * time.Minute,
		},
		LogLevel: "info",
	}
}

// Load returns Default overlaid with the YAML file at path. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadEnvFile loads variables from a .env file into the process
// environment without overriding variables already set. A missing file is
// not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Providers.OpenAI.APIKey, "OPENAI_API_KEY")
	set(&c.Providers.OpenAI.Model, "OPENAI_MODEL")
	set(&c.Providers.OpenAI.BaseURL, "OPENAI_BASE_URL")
	set(&c.Providers.Google.APIKey, "GEMINI_API_KEY")
	set(&c.Providers.Google.Model, "GEMINI_MODEL")
	set(&c.Providers.Google.BaseURL, "GEMINI_BASE_URL")
	set(&c.LogLevel, "LOG_LEVEL")

	if v := strings.TrimSpace(getenv("LLM_PROVIDER_PRIORITY")); v != "" {
		ids, err := llm.ParsePriority(v)
		if err != nil {
			return fmt.Errorf("LLM_PROVIDER_PRIORITY: %w", err)
		}
		c.Providers.Priority = c.Providers.Priority[:0]
		for _, id := range ids {
			c.Providers.Priority = append(c.Providers.Priority, string(id))
		}
	}
	return nil
}

// LLMConfig converts the provider settings for the llm package. The request
// timeout is applied through a shared HTTP client.
func (c *Config) LLMConfig(logger *logrus.Logger) (llm.Config, error) {
	priority, err := llm.ParsePriority(strings.Join(c.Providers.Priority, ","))
	if err != nil {
		return llm.Config{}, fmt.Errorf("providers.priority: %w", err)
	}
	timeout := c.Providers.RequestTimeout
	if timeout <= 0 {
		timeout = llm.DefaultRequestTimeout
	}
	return llm.Config{
		OpenAI: llm.ProviderSettings{
			APIKey:  c.Providers.OpenAI.APIKey,
			Model:   c.Providers.OpenAI.Model,
			BaseURL: c.Providers.OpenAI.BaseURL,
		},
		Google: llm.ProviderSettings{
			APIKey:  c.Providers.Google.APIKey,
			Model:   c.Providers.Google.Model,
			BaseURL: c.Providers.Google.BaseURL,
		},
		Priority:   priority,
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,
	}, nil
}
