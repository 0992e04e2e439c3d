package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultOpenAIModel is used when OPENAI_MODEL is not set.
	DefaultOpenAIModel = "gpt-4o-mini"

	simpleTranslateSystemPrompt = "Translate the following from German to English. Return only the translation text."
)

// ClientOptions configures a concrete provider client.
type ClientOptions struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint. Empty means the vendor default.
	BaseURL string
	// HTTPClient is used for all API calls. If nil, a client with DefaultRequestTimeout is created.
	HTTPClient *http.Client
	Logger     *logrus.Logger
}

// DefaultRequestTimeout bounds a single provider HTTP request.
const DefaultRequestTimeout = 60 * time.Second

func (o ClientOptions) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: DefaultRequestTimeout}
}

func (o ClientOptions) logger() *logrus.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logrus.New()
}

// OpenAIClient implements Provider and SpeechSynthesizer on the OpenAI API.
// It uses the native JSON response format for structured translations.
type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *logrus.Logger
}

// NewOpenAIClient creates a new OpenAI client. No network call is made.
func NewOpenAIClient(opts ClientOptions) *OpenAIClient {
	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.HTTPClient = opts.httpClient()
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	model := opts.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: opts.logger(),
	}
}

// openaiTemperature keeps a zero temperature in the request body. go-openai
// omits zero values, which the API would then treat as its default of 1.0.
func openaiTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

func (c *OpenAIClient) complete(ctx context.Context, op string, req openai.ChatCompletionRequest) (string, error) {
	req.Model = c.model
	req.Temperature = openaiTemperature(req.Temperature)

	startTime := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"provider":  ProviderOpenAI,
			"operation": op,
			"model":     c.model,
		}).Error("OpenAI request failed")
		return "", callFailed(ProviderOpenAI, op, err)
	}
	if len(resp.Choices) == 0 {
		return "", callFailed(ProviderOpenAI, op, errors.New("response contained no choices"))
	}

	c.logger.WithFields(logrus.Fields{
		"provider":          ProviderOpenAI,
		"operation":         op,
		"duration_ms":       time.Since(startTime).Milliseconds(),
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	}).Debug("OpenAI request completed")

	return resp.Choices[0].Message.Content, nil
}

// SimpleTranslate translates a short prompt and returns the trimmed text.
func (c *OpenAIClient) SimpleTranslate(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
	out, err := c.complete(ctx, opSimpleTranslate, openai.ChatCompletionRequest{
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: simpleTranslateSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// JSONTranslate requests a JSON object using OpenAI's json_object response format.
func (c *OpenAIClient) JSONTranslate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float32) (string, error) {
	return c.complete(ctx, opJSONTranslate, openai.ChatCompletionRequest{
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
}

// Chat answers with the fixed chat parameters.
func (c *OpenAIClient) Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	out, err := c.complete(ctx, opChat, openai.ChatCompletionRequest{
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		MaxTokens:   ChatMaxTokens,
		Temperature: ChatTemperature,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// GenerateSpeech synthesizes mp3 audio with the tts-1 model.
func (c *OpenAIClient) GenerateSpeech(ctx context.Context, text, voice string, speed float64) ([]byte, error) {
	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          speed,
	})
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"provider": ProviderOpenAI,
			"voice":    voice,
		}).Error("OpenAI speech request failed")
		return nil, callFailed(ProviderOpenAI, opSpeech, err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, callFailed(ProviderOpenAI, opSpeech, fmt.Errorf("read audio: %w", err))
	}
	return audio, nil
}

// Capabilities reports speech support.
func (c *OpenAIClient) Capabilities() []Capability {
	return []Capability{CapSpeech}
}

// Info returns the OpenAI provider description.
func (c *OpenAIClient) Info() ProviderInfo {
	return ProviderInfo{
		Provider:    string(ProviderOpenAI),
		Model:       c.model,
		Description: "OpenAI " + c.model,
	}
}
