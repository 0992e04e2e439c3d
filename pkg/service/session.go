package service

import (
	"sync"

	"github.com/dasmlab/lektor/pkg/llm"
)

// Session holds the active provider. Exactly one provider is active at a
// time and Set replaces it for all subsequent calls. Callers capture the
// provider once per request with Current, so a switch never affects a call
// that is already running.
type Session struct {
	mu       sync.RWMutex
	provider llm.Provider
}

// NewSession creates a session with no active provider.
func NewSession() *Session {
	return &Session{}
}

// Current returns the active provider or nil.
func (s *Session) Current() llm.Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider
}

// Set makes p the active provider and returns its info.
func (s *Session) Set(p llm.Provider) llm.ProviderInfo {
	info := p.Info()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.provider = p
	llm.RecordActiveProvider(info.Provider)
	return info
}

// Info returns the active provider's info, or false if none is active.
func (s *Session) Info() (llm.ProviderInfo, bool) {
	p := s.Current()
	if p == nil {
		return llm.ProviderInfo{}, false
	}
	return p.Info(), true
}
