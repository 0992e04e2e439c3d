// Package translate maps a paragraph/sentence structured page onto
// per-sentence LLM translation requests and reassembles the results in the
// original positions.
package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dasmlab/lektor/pkg/document"
	"github.com/dasmlab/lektor/pkg/llm"
	"github.com/sirupsen/logrus"
)

// Generation parameters per request kind.
const (
	MetadataMaxTokens   = 200
	MetadataTemperature = 0.0

	StageDirectionMaxTokens = 300
	SentenceMaxTokens       = 400
	SentenceTemperature     = 0.1
)

// ErrNoPageData is returned when a request carries no page.
var ErrNoPageData = errors.New("page_data is required")

// Request is one page plus optional book metadata used as context.
type Request struct {
	Metadata *document.Metadata `json:"metadata,omitempty"`
	PageData *document.Page     `json:"page_data"`
}

// Result is the translated page. Metadata is only set when the request had
// metadata and holds the translated title and author plus the verbatim
// description and genre.
type Result struct {
	PageData *document.Page     `json:"page_data"`
	Provider string             `json:"provider"`
	Metadata *document.Metadata `json:"metadata,omitempty"`
}

// ProgressFunc is called after each sentence with the number done so far.
type ProgressFunc func(done, total int)

// Engine translates structured pages one sentence at a time.
type Engine struct {
	logger *logrus.Logger
}

// NewEngine creates a new translation engine.
func NewEngine(logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{logger: logger}
}

// TranslatePage translates every sentence of req.PageData with p.
// The request is never mutated. The first provider failure aborts the page.
func (e *Engine) TranslatePage(ctx context.Context, p llm.Provider, req Request) (*Result, error) {
	return e.TranslatePageWithProgress(ctx, p, req, nil)
}

// TranslatePageWithProgress is TranslatePage with a per-sentence progress callback.
func (e *Engine) TranslatePageWithProgress(ctx context.Context, p llm.Provider, req Request, progress ProgressFunc) (*Result, error) {
	if req.PageData == nil {
		return nil, ErrNoPageData
	}

	provider := p.Info().Provider
	startTime := time.Now()
	total := req.PageData.SentenceCount()

	e.logger.WithFields(logrus.Fields{
		"provider":    provider,
		"page_number": req.PageData.PageNumber,
		"paragraphs":  len(req.PageData.Paragraphs),
		"sentences":   total,
	}).Info("Translating page")

	result := &Result{
		PageData: req.PageData.Clone(),
		Provider: provider,
	}

	if req.Metadata != nil {
		meta, err := e.translateMetadata(ctx, p, req.Metadata)
		if err != nil {
			pageDuration.WithLabelValues(provider, "error").Observe(time.Since(startTime).Seconds())
			return nil, err
		}
		result.Metadata = meta
	}

	done := 0
	for pi := range result.PageData.Paragraphs {
		para := &result.PageData.Paragraphs[pi]
		// The paragraph context window is only used to enrich prompts.
		paragraphText := strings.Join(para.Texts(), " ")

		for si := range para.Sentences {
			if err := ctx.Err(); err != nil {
				pageDuration.WithLabelValues(provider, "error").Observe(time.Since(startTime).Seconds())
				return nil, err
			}

			sentence := &para.Sentences[si]
			english, err := e.translateSentence(ctx, p, req.Metadata, *sentence, paragraphText, si)
			if err != nil {
				e.logger.WithError(err).WithFields(logrus.Fields{
					"provider":        provider,
					"paragraph_index": pi,
					"sentence_index":  si,
				}).Error("Sentence translation failed, aborting page")
				pageDuration.WithLabelValues(provider, "error").Observe(time.Since(startTime).Seconds())
				return nil, fmt.Errorf("paragraph %d sentence %d: %w", pi, si, err)
			}
			sentence.EnglishTranslation = english
			sentencesTranslated.WithLabelValues(provider, string(sentence.EffectiveType())).Inc()

			done++
			if progress != nil {
				progress(done, total)
			}
		}
	}

	duration := time.Since(startTime)
	pageDuration.WithLabelValues(provider, "success").Observe(duration.Seconds())
	e.logger.WithFields(logrus.Fields{
		"provider":    provider,
		"page_number": req.PageData.PageNumber,
		"sentences":   total,
		"duration_ms": duration.Milliseconds(),
	}).Info("Page translation completed")

	return result, nil
}

func (e *Engine) translateMetadata(ctx context.Context, p llm.Provider, meta *document.Metadata) (*document.Metadata, error) {
	out := &document.Metadata{
		Description: meta.Description,
		Genre:       meta.Genre,
	}
	if meta.Title != "" {
		title, err := p.SimpleTranslate(ctx, metadataPrompt(meta.Title), MetadataMaxTokens, MetadataTemperature)
		if err != nil {
			return nil, fmt.Errorf("translate title: %w", err)
		}
		out.Title = title
	}
	if meta.Author != "" {
		author, err := p.SimpleTranslate(ctx, metadataPrompt(meta.Author), MetadataMaxTokens, MetadataTemperature)
		if err != nil {
			return nil, fmt.Errorf("translate author: %w", err)
		}
		out.Author = author
	}
	return out, nil
}

func (e *Engine) translateSentence(ctx context.Context, p llm.Provider, meta *document.Metadata, s document.Sentence, paragraphText string, index int) ([]string, error) {
	kind := s.EffectiveType()
	switch kind {
	case document.TypeSpeakerName:
		return []string{TranslateSpeakerName(s.Text)}, nil

	case document.TypeStageDirection:
		raw, err := p.JSONTranslate(ctx, stageDirectionSystemPrompt, stageDirectionUserPrompt(s.Text, meta),
			StageDirectionMaxTokens, SentenceTemperature)
		if err != nil {
			return nil, err
		}
		english, _, ok := parseSentences(raw)
		if !ok {
			e.degraded(p, kind, raw)
			return []string{s.Text}, nil
		}
		return english, nil

	default:
		raw, err := p.JSONTranslate(ctx, sentenceSystemPrompt(kind), contextPrompt(meta, paragraphText, s.Text, index),
			SentenceMaxTokens, SentenceTemperature)
		if err != nil {
			return nil, err
		}
		english, decoded, ok := parseSentences(raw)
		if !ok {
			e.degraded(p, kind, raw)
			// An unstructured answer is taken as one sentence. A well-formed but
			// empty list, or a blank answer, falls back to the source.
			if trimmed := strings.TrimSpace(raw); trimmed != "" && !decoded {
				return []string{trimmed}, nil
			}
			return []string{s.Text}, nil
		}
		return english, nil
	}
}

func (e *Engine) degraded(p llm.Provider, kind document.SentenceType, raw string) {
	provider := p.Info().Provider
	parseDegraded.WithLabelValues(provider, string(kind)).Inc()
	e.logger.WithFields(logrus.Fields{
		"provider":     provider,
		"type":         kind,
		"response_len": len(raw),
	}).Warn("Structured translation response could not be parsed, using fallback")
}

// sentencesPayload is the JSON shape requested from providers.
type sentencesPayload struct {
	EnglishSentences []string `json:"english_sentences"`
}

// parseSentences decodes raw into a sentence list with at least one non-blank
// entry. decoded reports whether raw parsed as a JSON object at all.
func parseSentences(raw string) (sentences []string, decoded, ok bool) {
	var payload sentencesPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, false, false
	}
	for _, s := range payload.EnglishSentences {
		if strings.TrimSpace(s) != "" {
			return payload.EnglishSentences, true, true
		}
	}
	return nil, true, false
}
