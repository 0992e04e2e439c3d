package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Provider call metrics
	llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lektor_llm_requests_total",
			Help: "Total number of LLM provider calls",
		},
		[]string{"provider", "operation", "status"},
	)

	llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lektor_llm_request_duration_seconds",
			Help:    "Duration of LLM provider calls in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
		},
		[]string{"provider", "operation", "status"},
	)

	llmPromptSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lektor_llm_prompt_size_bytes",
			Help:    "Size of prompts sent to LLM providers in bytes",
			Buckets: []float64{100, 500, 1000, 2000, 5000, 10000, 50000},
		},
		[]string{"provider", "operation"},
	)

	activeProvider = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lektor_active_provider",
			Help: "Set to 1 for the provider currently serving requests",
		},
		[]string{"provider"},
	)
)

const (
	opSimpleTranslate = "simple_translate"
	opJSONTranslate   = "json_translate"
	opChat            = "chat"
	opSpeech          = "speech"
)

// RecordActiveProvider marks id as the active provider and clears the others.
func RecordActiveProvider(id string) {
	for _, known := range KnownProviders() {
		v := 0.0
		if string(known) == id {
			v = 1
		}
		activeProvider.WithLabelValues(string(known)).Set(v)
	}
}

// Instrument wraps p so every call is counted and timed.
func Instrument(p Provider) Provider {
	if _, ok := p.(*instrumented); ok {
		return p
	}
	return &instrumented{next: p, name: p.Info().Provider}
}

// instrumented records request metrics around an underlying Provider.
type instrumented struct {
	next Provider
	name string
}

func (i *instrumented) observe(op string, promptLen int, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	llmRequestsTotal.WithLabelValues(i.name, op, status).Inc()
	llmRequestDuration.WithLabelValues(i.name, op, status).Observe(time.Since(start).Seconds())
	llmPromptSize.WithLabelValues(i.name, op).Observe(float64(promptLen))
}

func (i *instrumented) SimpleTranslate(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
	start := time.Now()
	out, err := i.next.SimpleTranslate(ctx, prompt, maxTokens, temperature)
	i.observe(opSimpleTranslate, len(prompt), start, err)
	return out, err
}

func (i *instrumented) JSONTranslate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float32) (string, error) {
	start := time.Now()
	out, err := i.next.JSONTranslate(ctx, systemPrompt, userPrompt, maxTokens, temperature)
	i.observe(opJSONTranslate, len(systemPrompt)+len(userPrompt), start, err)
	return out, err
}

func (i *instrumented) Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()
	out, err := i.next.Chat(ctx, systemPrompt, userPrompt)
	i.observe(opChat, len(systemPrompt)+len(userPrompt), start, err)
	return out, err
}

// GenerateSpeech delegates to the wrapped provider. Callers go through Speech,
// which checks Capabilities first.
func (i *instrumented) GenerateSpeech(ctx context.Context, text, voice string, speed float64) ([]byte, error) {
	s, ok := i.next.(SpeechSynthesizer)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not support text-to-speech", ErrUnsupportedCapability, i.name)
	}
	start := time.Now()
	audio, err := s.GenerateSpeech(ctx, text, voice, speed)
	i.observe(opSpeech, len(text), start, err)
	return audio, err
}

func (i *instrumented) Capabilities() []Capability { return i.next.Capabilities() }

func (i *instrumented) Info() ProviderInfo { return i.next.Info() }
