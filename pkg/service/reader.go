package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dasmlab/lektor/pkg/library"
	"github.com/dasmlab/lektor/pkg/llm"
	"github.com/dasmlab/lektor/pkg/translate"
	"github.com/dasmlab/lektor/pkg/tutor"
	"github.com/sirupsen/logrus"
)

// Speech defaults and limits.
const (
	DefaultVoice  = "alloy"
	DefaultSpeed  = 1.0
	MinSpeed      = 0.25
	MaxSpeed      = 4.0
	SpeechFormat  = "mp3"
	healthyStatus = "healthy"
)

var validVoices = map[string]bool{
	"alloy":   true,
	"echo":    true,
	"fable":   true,
	"onyx":    true,
	"nova":    true,
	"shimmer": true,
}

// Voices returns the accepted speech voices.
func Voices() []string {
	return []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}
}

// ProviderFactory creates a provider by id.
type ProviderFactory func(ctx context.Context, cfg llm.Config, id llm.ProviderID) (llm.Provider, error)

// ChatResponse is the tutor's answer.
type ChatResponse struct {
	Response string `json:"response"`
	Provider string `json:"provider"`
}

// DictionaryEntry is the tutor's answer to a word lookup.
type DictionaryEntry struct {
	Word       string `json:"word"`
	Definition string `json:"definition"`
	Context    string `json:"context"`
}

// SpeechResult is synthesized audio plus the parameters used.
type SpeechResult struct {
	Audio  []byte  `json:"audio"`
	Format string  `json:"format"`
	Text   string  `json:"text"`
	Voice  string  `json:"voice"`
	Speed  float64 `json:"speed"`
}

// ProviderStatus describes one provider in ListProviders.
type ProviderStatus struct {
	Model       string `json:"model"`
	Available   bool   `json:"available"`
	Description string `json:"description"`
	Error       string `json:"error,omitempty"`
}

// ProvidersOverview is the result of ListProviders.
type ProvidersOverview struct {
	Current   string                    `json:"current"`
	Providers map[string]ProviderStatus `json:"providers"`
}

// HealthStatus reports whether an LLM provider is active.
type HealthStatus struct {
	Status          string `json:"status"`
	LLMAvailable    bool   `json:"llm_available"`
	CurrentProvider string `json:"current_provider,omitempty"`
}

// ReaderService is the transport independent core of the reading assistant:
// page translation, tutor chat, dictionary lookup, speech and provider
// management over a shared Session.
type ReaderService struct {
	// Config is used to detect and create providers.
	Config llm.Config

	// Session holds the active provider.
	Session *Session

	// Engine translates structured pages.
	Engine *translate.Engine

	// Library resolves stored texts for TranslateStored. May be nil.
	Library *library.Library

	// Jobs holds asynchronous page translations.
	Jobs *JobQueue

	// NewProvider creates providers. Defaults to llm.NewProvider.
	NewProvider ProviderFactory

	// Logger for service operations.
	Logger *logrus.Logger
}

// NewReaderService creates a ReaderService with no active provider.
// Call Init to select the preferred one.
func NewReaderService(cfg llm.Config, lib *library.Library, logger *logrus.Logger) *ReaderService {
	if logger == nil {
		logger = logrus.New()
	}
	engine := translate.NewEngine(logger)
	jobs := NewJobQueue(logger)
	jobs.SetProcessor(NewJobProcessor(engine, logger))

	return &ReaderService{
		Config:      cfg,
		Session:     NewSession(),
		Engine:      engine,
		Library:     lib,
		Jobs:        jobs,
		NewProvider: llm.NewProvider,
		Logger:      logger,
	}
}

// Init detects configured providers and activates the preferred one.
// A missing or failing provider leaves the service running without one.
func (s *ReaderService) Init(ctx context.Context) {
	available := llm.DetectAvailable(s.Config)
	s.Logger.WithFields(logrus.Fields{
		"available": available,
	}).Info("Detected LLM providers")

	id, ok := llm.Preferred(s.Config, available)
	if !ok {
		s.Logger.Warn("No LLM providers available, check API keys")
		return
	}

	p, err := s.NewProvider(ctx, s.Config, id)
	if err != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{
			"provider": id,
		}).Error("Failed to initialize preferred LLM provider")
		return
	}
	info := s.Session.Set(p)
	s.Logger.WithFields(logrus.Fields{
		"provider": info.Provider,
		"model":    info.Model,
	}).Info("LLM service initialized")
}

// provider returns the active provider or ErrServiceUnavailable.
func (s *ReaderService) provider() (llm.Provider, error) {
	p := s.Session.Current()
	if p == nil {
		return nil, ErrServiceUnavailable
	}
	return p, nil
}

// Translate translates one structured page. Metadata is optional context.
func (s *ReaderService) Translate(ctx context.Context, req translate.Request) (*translate.Result, error) {
	if req.PageData == nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, translate.ErrNoPageData)
	}
	p, err := s.provider()
	if err != nil {
		return nil, err
	}
	return s.Engine.TranslatePage(ctx, p, req)
}

// StoredRequest resolves a request from a library page (0-indexed).
func (s *ReaderService) StoredRequest(textName string, pageIndex int) (translate.Request, error) {
	if strings.TrimSpace(textName) == "" {
		return translate.Request{}, fmt.Errorf("%w: text_name is required", ErrInvalidInput)
	}
	if s.Library == nil {
		return translate.Request{}, fmt.Errorf("%w: %s", library.ErrTextNotFound, textName)
	}
	view, err := s.Library.Page(textName, pageIndex)
	if err != nil {
		return translate.Request{}, err
	}
	return translate.Request{Metadata: view.Metadata, PageData: view.PageData}, nil
}

// TranslateStored translates page pageIndex (0-indexed) of a library text.
func (s *ReaderService) TranslateStored(ctx context.Context, textName string, pageIndex int) (*translate.Result, error) {
	req, err := s.StoredRequest(textName, pageIndex)
	if err != nil {
		return nil, err
	}
	return s.Translate(ctx, req)
}

// SubmitJob queues req for background translation with the active provider.
func (s *ReaderService) SubmitJob(req translate.Request, requestID string) (JobSnapshot, error) {
	if req.PageData == nil {
		return JobSnapshot{}, fmt.Errorf("%w: %w", ErrInvalidInput, translate.ErrNoPageData)
	}
	p, err := s.provider()
	if err != nil {
		return JobSnapshot{}, err
	}
	return s.Jobs.CreateJob(req, p, requestID).Snapshot(), nil
}

// GetJob returns the current state of a job.
func (s *ReaderService) GetJob(jobID string) (JobSnapshot, error) {
	job, err := s.Jobs.GetJob(jobID)
	if err != nil {
		return JobSnapshot{}, err
	}
	return job.Snapshot(), nil
}

// Chat answers a question about an optional German passage.
func (s *ReaderService) Chat(ctx context.Context, question, passage string) (*ChatResponse, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrNoQuestion
	}
	p, err := s.provider()
	if err != nil {
		return nil, err
	}

	answer, err := tutor.Chat(ctx, p, question, passage)
	if err != nil {
		s.Logger.WithError(err).Error("Chat request failed")
		return nil, err
	}
	return &ChatResponse{Response: answer, Provider: p.Info().Provider}, nil
}

// LookupWord produces a dictionary entry for word.
func (s *ReaderService) LookupWord(ctx context.Context, word, passage string) (*DictionaryEntry, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil, ErrEmptyWord
	}
	p, err := s.provider()
	if err != nil {
		return nil, err
	}

	definition, err := tutor.LookupWord(ctx, p, word, passage)
	if err != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{
			"word": word,
		}).Error("Dictionary lookup failed")
		return nil, err
	}
	return &DictionaryEntry{Word: word, Definition: definition, Context: passage}, nil
}

// GenerateSpeech synthesizes text with the active provider. Input is
// validated before the provider is consulted.
func (s *ReaderService) GenerateSpeech(ctx context.Context, text, voice string, speed float64) (*SpeechResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if !validVoices[voice] {
		return nil, fmt.Errorf("%w %q, must be one of %s", ErrInvalidVoice, voice, strings.Join(Voices(), ", "))
	}
	if speed < MinSpeed || speed > MaxSpeed {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidSpeed, speed)
	}

	p, err := s.provider()
	if err != nil {
		return nil, err
	}
	synth, err := llm.Speech(p)
	if err != nil {
		return nil, err
	}

	audio, err := synth.GenerateSpeech(ctx, text, voice, speed)
	if err != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{
			"voice": voice,
			"speed": speed,
		}).Error("Speech generation failed")
		return nil, err
	}
	return &SpeechResult{
		Audio:  audio,
		Format: SpeechFormat,
		Text:   text,
		Voice:  voice,
		Speed:  speed,
	}, nil
}

// ListProviders reports model, availability and description per provider.
// Availability is a configuration check only.
func (s *ReaderService) ListProviders() *ProvidersOverview {
	out := &ProvidersOverview{Providers: make(map[string]ProviderStatus)}
	if info, ok := s.Session.Info(); ok {
		out.Current = info.Provider
	}
	for _, id := range llm.KnownProviders() {
		info := llm.Describe(s.Config, id)
		status := ProviderStatus{
			Model:       info.Model,
			Available:   llm.IsAvailable(s.Config, id),
			Description: info.Description,
		}
		if !status.Available {
			status.Error = fmt.Sprintf("API key for %s is not configured", id)
		}
		out.Providers[string(id)] = status
	}
	return out
}

// SwitchProvider activates the provider named by name. On failure the
// active provider is unchanged.
func (s *ReaderService) SwitchProvider(ctx context.Context, name string) (llm.ProviderInfo, error) {
	id, err := llm.ParseProviderID(name)
	if err != nil {
		return llm.ProviderInfo{}, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	if !llm.IsAvailable(s.Config, id) {
		return llm.ProviderInfo{}, fmt.Errorf("%w: %s is not configured", ErrProviderUnavailable, id)
	}

	p, err := s.NewProvider(ctx, s.Config, id)
	if err != nil {
		return llm.ProviderInfo{}, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	previous, _ := s.Session.Info()
	info := s.Session.Set(p)
	s.Logger.WithFields(logrus.Fields{
		"from":  previous.Provider,
		"to":    info.Provider,
		"model": info.Model,
	}).Info("Switched LLM provider")
	return info, nil
}

// CurrentProvider returns the active provider's info.
func (s *ReaderService) CurrentProvider() (llm.ProviderInfo, error) {
	info, ok := s.Session.Info()
	if !ok {
		return llm.ProviderInfo{}, ErrServiceUnavailable
	}
	return info, nil
}

// Health reports service status.
func (s *ReaderService) Health() HealthStatus {
	h := HealthStatus{Status: healthyStatus}
	if info, ok := s.Session.Info(); ok {
		h.LLMAvailable = true
		h.CurrentProvider = info.Provider
	}
	return h
}
