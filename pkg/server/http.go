package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dasmlab/lektor/pkg/library"
	"github.com/dasmlab/lektor/pkg/llm"
	"github.com/dasmlab/lektor/pkg/service"
	"github.com/dasmlab/lektor/pkg/translate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 4 << 20

// HTTPServer provides the JSON API used by the reading client, plus health
// and Prometheus metrics endpoints.
type HTTPServer struct {
	reader *service.ReaderService
	logger *logrus.Logger
	port   int
	server *http.Server
}

// NewHTTPServer creates a new HTTP server for the reader API.
func NewHTTPServer(reader *service.ReaderService, logger *logrus.Logger, port int) *HTTPServer {
	if logger == nil {
		logger = logrus.New()
	}
	return &HTTPServer{
		reader: reader,
		logger: logger,
		port:   port,
	}
}

// Handler returns the routed API handler.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	// Library
	mux.HandleFunc("GET /api/texts", s.handleListTexts)
	mux.HandleFunc("GET /api/text/{name}/page/{n}", s.handleTextPage)

	// Translation
	mux.HandleFunc("POST /api/translate-page", s.handleTranslateStored)
	mux.HandleFunc("POST /api/translate", s.handleTranslate)
	mux.HandleFunc("POST /api/jobs", s.handleSubmitJob)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)

	// Tutor
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/dictionary", s.handleDictionary)
	mux.HandleFunc("POST /api/tts/speak", s.handleSpeak)

	// Providers
	mux.HandleFunc("GET /api/llm-info", s.handleLLMInfo)
	mux.HandleFunc("GET /api/llm/providers", s.handleListProviders)
	mux.HandleFunc("POST /api/llm/provider", s.handleSwitchProvider)
	mux.HandleFunc("GET /api/llm/current", s.handleCurrentProvider)

	// Health check endpoints
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /health", s.handleHealth)

	// Prometheus metrics endpoint
	mux.Handle("GET /metrics", promhttp.Handler())

	return withCORS(mux)
}

// Start starts the HTTP server. It returns nil after Shutdown.
func (s *HTTPServer) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.WithFields(logrus.Fields{
		"port": s.port,
	}).Info("Starting HTTP server")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, _ := errorKind(err)
	entry := s.logger.WithError(err).WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decode reads a JSON body into v. Failures are reported as invalid input.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: request body: %w", service.ErrInvalidInput, err)
	}
	return nil
}

func (s *HTTPServer) handleListTexts(w http.ResponseWriter, r *http.Request) {
	if s.reader.Library == nil {
		s.writeJSON(w, http.StatusOK, []library.TextSummary{})
		return
	}
	s.writeJSON(w, http.StatusOK, s.reader.Library.List())
}

// pageResponse is a library page plus its flat display rendering.
type pageResponse struct {
	*library.PageView
	Content string `json:"content"`
}

func (s *HTTPServer) handleTextPage(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: page number %q", service.ErrInvalidInput, r.PathValue("n")))
		return
	}
	if s.reader.Library == nil {
		s.writeError(w, r, library.ErrTextNotFound)
		return
	}
	view, err := s.reader.Library.Page(r.PathValue("name"), n)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pageResponse{
		PageView: view,
		Content:  library.DisplayText(view.PageData, view.Metadata),
	})
}

type translateStoredRequest struct {
	TextName   string `json:"text_name"`
	PageNumber int    `json:"page_number"`
}

func (s *HTTPServer) handleTranslateStored(w http.ResponseWriter, r *http.Request) {
	var req translateStoredRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.reader.TranslateStored(r.Context(), req.TextName, req.PageNumber)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translate.Request
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.reader.Translate(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

type submitJobRequest struct {
	translate.Request
	TextName   string `json:"text_name,omitempty"`
	PageNumber int    `json:"page_number,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

func (s *HTTPServer) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	tr := req.Request
	if tr.PageData == nil && req.TextName != "" {
		stored, err := s.reader.StoredRequest(req.TextName, req.PageNumber)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		tr = stored
	}
	job, err := s.reader.SubmitJob(tr, req.RequestID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, job)
}

func (s *HTTPServer) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.reader.GetJob(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

type chatRequest struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

func (s *HTTPServer) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.reader.Chat(r.Context(), req.Question, req.Context)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type dictionaryRequest struct {
	Word    string `json:"word"`
	Context string `json:"context"`
}

func (s *HTTPServer) handleDictionary(w http.ResponseWriter, r *http.Request) {
	var req dictionaryRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	entry, err := s.reader.LookupWord(r.Context(), req.Word, req.Context)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, entry)
}

type speakRequest struct {
	Text  string   `json:"text"`
	Voice string   `json:"voice"`
	Speed *float64 `json:"speed"`
}

// speakResponse carries base64 audio, which encoding/json produces for []byte.
type speakResponse struct {
	Success bool `json:"success"`
	*service.SpeechResult
}

func (s *HTTPServer) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	voice := req.Voice
	if voice == "" {
		voice = service.DefaultVoice
	}
	speed := service.DefaultSpeed
	if req.Speed != nil {
		speed = *req.Speed
	}
	result, err := s.reader.GenerateSpeech(r.Context(), req.Text, voice, speed)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, speakResponse{Success: true, SpeechResult: result})
}

type llmInfoResponse struct {
	CurrentProvider    *llm.ProviderInfo                 `json:"current_provider"`
	AvailableProviders map[string]service.ProviderStatus `json:"available_providers"`
}

func (s *HTTPServer) handleLLMInfo(w http.ResponseWriter, r *http.Request) {
	resp := llmInfoResponse{AvailableProviders: s.reader.ListProviders().Providers}
	if info, err := s.reader.CurrentProvider(); err == nil {
		resp.CurrentProvider = &info
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleListProviders(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.reader.ListProviders())
}

type switchProviderRequest struct {
	Provider string `json:"provider"`
}

type switchProviderResponse struct {
	Success  bool             `json:"success"`
	Provider llm.ProviderInfo `json:"provider"`
	Message  string           `json:"message"`
}

func (s *HTTPServer) handleSwitchProvider(w http.ResponseWriter, r *http.Request) {
	var req switchProviderRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	info, err := s.reader.SwitchProvider(r.Context(), req.Provider)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, switchProviderResponse{
		Success:  true,
		Provider: info,
		Message:  "Successfully switched to " + info.Provider,
	})
}

func (s *HTTPServer) handleCurrentProvider(w http.ResponseWriter, r *http.Request) {
	info, err := s.reader.CurrentProvider()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"provider":  info,
		"available": true,
	})
}

// handleHealth provides a health check endpoint.
func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.reader.Health())
}
