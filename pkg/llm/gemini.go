package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

const (
	// DefaultGeminiModel is used when GEMINI_MODEL is not set.
	DefaultGeminiModel = "gemini-1.5-flash"

	geminiJSONSuffix = "IMPORTANT: Return ONLY valid JSON without any markdown formatting or extra text."
)

// GeminiClient implements Provider on the Gemini API.
// Structured translations are requested by prompt only and the raw text is
// passed through ExtractJSON, since fenced or prose-wrapped JSON is common.
type GeminiClient struct {
	client *genai.Client
	model  string
	logger *logrus.Logger
}

// NewGeminiClient creates a new Gemini client. No network call is made.
func NewGeminiClient(ctx context.Context, opts ClientOptions) (*GeminiClient, error) {
	cfg := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.httpClient(),
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{
		client: client,
		model:  model,
		logger: opts.logger(),
	}, nil
}

func (c *GeminiClient) generate(ctx context.Context, op, prompt string, maxTokens int, temperature float32) (string, error) {
	startTime := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(temperature),
		MaxOutputTokens: int32(maxTokens),
	})
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"provider":  ProviderGoogle,
			"operation": op,
			"model":     c.model,
		}).Error("Gemini request failed")
		return "", callFailed(ProviderGoogle, op, err)
	}

	text := responseText(resp)
	if text == "" {
		return "", callFailed(ProviderGoogle, op, errors.New("response contained no text"))
	}

	c.logger.WithFields(logrus.Fields{
		"provider":    ProviderGoogle,
		"operation":   op,
		"duration_ms": time.Since(startTime).Milliseconds(),
	}).Debug("Gemini request completed")

	return text, nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			text.WriteString(part.Text)
		}
	}
	return text.String()
}

// SimpleTranslate translates a short prompt and returns the trimmed text.
func (c *GeminiClient) SimpleTranslate(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
	out, err := c.generate(ctx, opSimpleTranslate, prompt, maxTokens, temperature)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// JSONTranslate combines both prompts with an explicit JSON instruction and
// normalizes the answer with ExtractJSON.
func (c *GeminiClient) JSONTranslate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float32) (string, error) {
	prompt := systemPrompt + "\n\n" + userPrompt + "\n\n" + geminiJSONSuffix
	out, err := c.generate(ctx, opJSONTranslate, prompt, maxTokens, temperature)
	if err != nil {
		return "", err
	}
	return ExtractJSON(out), nil
}

// Chat answers with the fixed chat parameters.
func (c *GeminiClient) Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	out, err := c.generate(ctx, opChat, systemPrompt+"\n\n"+userPrompt, ChatMaxTokens, ChatTemperature)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Capabilities is empty: Gemini is not wired for speech here.
func (c *GeminiClient) Capabilities() []Capability {
	return nil
}

// Info returns the Gemini provider description.
func (c *GeminiClient) Info() ProviderInfo {
	return ProviderInfo{
		Provider:    string(ProviderGoogle),
		Model:       c.model,
		Description: "Google " + c.model,
	}
}
