package service

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// activeGaugeProvider returns the provider label whose lektor_active_provider
// sample is 1.
func activeGaugeProvider(t *testing.T) string {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var active []string
	for _, mf := range families {
		if mf.GetName() != "lektor_active_provider" {
			continue
		}
		for _, m := range mf.GetMetric() {
			if m.GetGauge().GetValue() != 1 {
				continue
			}
			for _, l := range m.GetLabel() {
				if l.GetName() == "provider" {
					active = append(active, l.GetValue())
				}
			}
		}
	}
	if len(active) != 1 {
		t.Fatalf("active provider samples = %v, want exactly one", active)
	}
	return active[0]
}

func TestSessionSetKeepsGaugeInStep(t *testing.T) {
	s := NewSession()
	providers := []*stubProvider{{name: "openai"}, {name: "google"}}

	for round := 0; round < 50; round++ {
		var wg sync.WaitGroup
		for _, p := range providers {
			wg.Add(1)
			go func(p *stubProvider) {
				defer wg.Done()
				s.Set(p)
			}(p)
		}
		wg.Wait()

		info, ok := s.Info()
		if !ok {
			t.Fatal("no active provider after Set")
		}
		if got := activeGaugeProvider(t); got != info.Provider {
			t.Fatalf("round %d: gauge reports %q, session holds %q", round, got, info.Provider)
		}
	}
}

func TestSessionStartsEmpty(t *testing.T) {
	s := NewSession()
	if s.Current() != nil {
		t.Error("new session has an active provider")
	}
	if _, ok := s.Info(); ok {
		t.Error("Info() reports a provider on an empty session")
	}
}
