package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// jobsByStatus tracks translation jobs currently held by the queue.
	jobsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lektor_translation_jobs",
			Help: "Number of page translation jobs held by the queue, by status",
		},
		[]string{"status"},
	)
)
