package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dasmlab/lektor/pkg/translate"
	"github.com/sirupsen/logrus"
)

// DefaultJobTimeout bounds a single background page translation.
const DefaultJobTimeout = 10 * time.Minute

// JobProcessor processes translation jobs asynchronously.
type JobProcessor struct {
	engine  *translate.Engine
	logger  *logrus.Logger
	timeout time.Duration
}

// NewJobProcessor creates a new job processor.
func NewJobProcessor(engine *translate.Engine, logger *logrus.Logger) *JobProcessor {
	if logger == nil {
		logger = logrus.New()
	}
	return &JobProcessor{
		engine:  engine,
		logger:  logger,
		timeout: DefaultJobTimeout,
	}
}

// ProcessJob translates the job's page with the provider captured at
// submission, reporting progress per sentence.
func (p *JobProcessor) ProcessJob(job *TranslationJob) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	startTime := time.Now()
	provider := job.Provider.Info().Provider

	p.logger.WithFields(logrus.Fields{
		"job_id":     job.ID,
		"request_id": job.RequestID,
		"provider":   provider,
	}).Info("Starting translation job processing")

	job.UpdateStatus(JobStatusProcessing, "Starting translation...")

	result, err := p.engine.TranslatePageWithProgress(ctx, job.Provider, job.Request, job.UpdateProgress)
	if err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"job_id":   job.ID,
			"provider": provider,
		}).Error("Translation job failed")
		job.SetError(fmt.Errorf("page translation failed: %w", err))
		return
	}

	job.SetResult(result)

	p.logger.WithFields(logrus.Fields{
		"job_id":      job.ID,
		"request_id":  job.RequestID,
		"provider":    provider,
		"duration_ms": time.Since(startTime).Milliseconds(),
	}).Info("Translation job completed successfully")
}
