package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// ProviderID identifies an LLM vendor integration.
type ProviderID string

const (
	// ProviderOpenAI uses the OpenAI chat completions and speech APIs.
	ProviderOpenAI ProviderID = "openai"
	// ProviderGoogle uses the Google Gemini API.
	ProviderGoogle ProviderID = "google"
)

// DefaultPriority is the order Preferred walks when no priority is configured.
var DefaultPriority = []ProviderID{ProviderOpenAI, ProviderGoogle}

// KnownProviders returns every provider this build can create.
func KnownProviders() []ProviderID {
	return []ProviderID{ProviderOpenAI, ProviderGoogle}
}

// ProviderSettings holds the credential and overrides for one provider.
type ProviderSettings struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Config holds configuration for detecting and creating providers.
type Config struct {
	OpenAI ProviderSettings
	Google ProviderSettings
	// Priority orders providers for Preferred. Defaults to DefaultPriority.
	Priority []ProviderID
	// HTTPClient is shared by all provider SDKs. If nil, each client creates its own.
	HTTPClient *http.Client
	// Logger is the logger instance to use. If nil, a default logger is created.
	Logger *logrus.Logger
}

func (c Config) settings(id ProviderID) (ProviderSettings, bool) {
	switch id {
	case ProviderOpenAI:
		return c.OpenAI, true
	case ProviderGoogle:
		return c.Google, true
	default:
		return ProviderSettings{}, false
	}
}

func (c Config) logger() *logrus.Logger {
	if c.Logger == nil {
		return logrus.New()
	}
	return c.Logger
}

// Model returns the configured model for id, or the provider default.
func (c Config) Model(id ProviderID) string {
	s, _ := c.settings(id)
	if s.Model != "" {
		return s.Model
	}
	switch id {
	case ProviderOpenAI:
		return DefaultOpenAIModel
	case ProviderGoogle:
		return DefaultGeminiModel
	}
	return ""
}

// ProviderModels maps every known provider to its effective model name.
func ProviderModels(cfg Config) map[ProviderID]string {
	models := make(map[ProviderID]string)
	for _, id := range KnownProviders() {
		models[id] = cfg.Model(id)
	}
	return models
}

// Describe returns the ProviderInfo id would report once created.
func Describe(cfg Config, id ProviderID) ProviderInfo {
	model := cfg.Model(id)
	info := ProviderInfo{Provider: string(id), Model: model}
	switch id {
	case ProviderOpenAI:
		info.Description = "OpenAI " + model
	case ProviderGoogle:
		info.Description = "Google " + model
	}
	return info
}

// IsAvailable reports whether id has a credential configured.
// It only inspects configuration and never contacts the provider.
func IsAvailable(cfg Config, id ProviderID) bool {
	s, ok := cfg.settings(id)
	return ok && strings.TrimSpace(s.APIKey) != ""
}

// DetectAvailable returns the providers whose credential is set, in
// KnownProviders order. No network calls are performed.
func DetectAvailable(cfg Config) []ProviderID {
	logger := cfg.logger()
	var available []ProviderID
	for _, id := range KnownProviders() {
		if IsAvailable(cfg, id) {
			logger.WithFields(logrus.Fields{
				"provider": id,
				"model":    cfg.Model(id),
			}).Info("Provider configured (API key found)")
			available = append(available, id)
			continue
		}
		logger.WithFields(logrus.Fields{
			"provider": id,
		}).Info("Provider not available: API key not set")
	}
	return available
}

// Preferred picks the first provider of cfg.Priority that is in available.
// It returns false if none match.
func Preferred(cfg Config, available []ProviderID) (ProviderID, bool) {
	priority := cfg.Priority
	if len(priority) == 0 {
		priority = DefaultPriority
	}
	for _, want := range priority {
		for _, have := range available {
			if want == have {
				return want, true
			}
		}
	}
	return "", false
}

// NewProvider creates an instrumented Provider for id.
// This factory lets callers switch between LLM vendors without knowing
// the concrete client types.
func NewProvider(ctx context.Context, cfg Config, id ProviderID) (Provider, error) {
	logger := cfg.logger()
	settings, ok := cfg.settings(id)
	if !ok {
		logger.WithFields(logrus.Fields{
			"provider": id,
		}).Error("Unknown LLM provider")
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, id)
	}
	if strings.TrimSpace(settings.APIKey) == "" {
		return nil, fmt.Errorf("%w: API key for %s is required", ErrMissingConfiguration, id)
	}

	opts := ClientOptions{
		APIKey:     settings.APIKey,
		Model:      cfg.Model(id),
		BaseURL:    settings.BaseURL,
		HTTPClient: cfg.HTTPClient,
		Logger:     logger,
	}

	logger.WithFields(logrus.Fields{
		"provider": id,
		"model":    opts.Model,
	}).Info("Creating LLM provider instance")

	switch id {
	case ProviderOpenAI:
		return Instrument(NewOpenAIClient(opts)), nil
	case ProviderGoogle:
		client, err := NewGeminiClient(ctx, opts)
		if err != nil {
			return nil, err
		}
		return Instrument(client), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, id)
}

// ParseProviderID parses a provider name. "gemini" is accepted as an alias
// for google.
func ParseProviderID(s string) (ProviderID, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai", "gpt":
		return ProviderOpenAI, nil
	case "google", "gemini":
		return ProviderGoogle, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: openai, google)", ErrUnsupportedProvider, s)
	}
}

// ParsePriority parses a comma separated provider list such as "google,openai".
func ParsePriority(s string) ([]ProviderID, error) {
	var out []ProviderID
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		id, err := ParseProviderID(part)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
