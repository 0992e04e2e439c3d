package llm

import (
	"context"
	"errors"
	"fmt"
)

// Fixed generation parameters for assistant-style chat answers. They are not
// caller-configurable so answers stay consistent across providers.
const (
	ChatMaxTokens   = 1000
	ChatTemperature = 0.7
)

var (
	// ErrProviderCallFailed wraps any failure returned by an upstream LLM API.
	ErrProviderCallFailed = errors.New("provider call failed")
	// ErrUnsupportedCapability is returned when a provider lacks an optional capability.
	ErrUnsupportedCapability = errors.New("unsupported capability")
	// ErrMissingConfiguration is returned when a provider's credential is not set.
	ErrMissingConfiguration = errors.New("missing configuration")
	// ErrUnsupportedProvider is returned for unknown provider identifiers.
	ErrUnsupportedProvider = errors.New("unsupported provider")
)

// Capability names an optional provider feature.
type Capability string

const (
	// CapSpeech marks providers implementing SpeechSynthesizer.
	CapSpeech Capability = "speech"
)

// ProviderInfo describes a configured provider.
type ProviderInfo struct {
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	Description string `json:"description"`
}

// Provider defines the capability contract every LLM backend must satisfy.
// This abstraction lets the translation engine and the tutor prompts run
// against OpenAI or Gemini without knowing which one is active.
type Provider interface {
	// SimpleTranslate performs a single-shot translation of short text such as
	// metadata fields. The output carries no structure requirements.
	SimpleTranslate(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error)

	// JSONTranslate asks for a JSON object containing an "english_sentences"
	// array. Providers without a native JSON mode return their best effort,
	// already passed through ExtractJSON.
	JSONTranslate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float32) (string, error)

	// Chat returns a free-form answer using ChatMaxTokens and ChatTemperature.
	Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Capabilities lists the optional features this provider supports.
	Capabilities() []Capability

	// Info returns provider name, model and description.
	Info() ProviderInfo
}

// SpeechSynthesizer is implemented by providers offering text-to-speech.
type SpeechSynthesizer interface {
	// GenerateSpeech returns mp3 audio for text.
	GenerateSpeech(ctx context.Context, text, voice string, speed float64) ([]byte, error)
}

// HasCapability reports whether p advertises c.
func HasCapability(p Provider, c Capability) bool {
	for _, have := range p.Capabilities() {
		if have == c {
			return true
		}
	}
	return false
}

// Speech returns the provider's speech synthesizer when it advertises CapSpeech.
func Speech(p Provider) (SpeechSynthesizer, error) {
	if !HasCapability(p, CapSpeech) {
		return nil, fmt.Errorf("%w: %s does not support text-to-speech", ErrUnsupportedCapability, p.Info().Provider)
	}
	s, ok := p.(SpeechSynthesizer)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not support text-to-speech", ErrUnsupportedCapability, p.Info().Provider)
	}
	return s, nil
}

func callFailed(provider ProviderID, op string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrProviderCallFailed, provider, op, err)
}
