package translate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sentencesTranslated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lektor_translation_sentences_total",
			Help: "Total number of sentences translated",
		},
		[]string{"provider", "type"},
	)

	parseDegraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lektor_translation_parse_degraded_total",
			Help: "Structured responses that could not be parsed and fell back to raw or source text",
		},
		[]string{"provider", "type"},
	)

	pageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lektor_translation_page_duration_seconds",
			Help:    "Duration of full page translations in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"provider", "status"},
	)
)
