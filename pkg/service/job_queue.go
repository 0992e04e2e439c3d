package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/dasmlab/lektor/pkg/llm"
	"github.com/dasmlab/lektor/pkg/translate"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TranslationJobStatus represents the status of a translation job.
type TranslationJobStatus string

const (
	JobStatusQueued     TranslationJobStatus = "queued"
	JobStatusProcessing TranslationJobStatus = "processing"
	JobStatusCompleted  TranslationJobStatus = "completed"
	JobStatusFailed     TranslationJobStatus = "failed"
)

// TranslationJob is an asynchronous page translation. The provider is
// captured at submission so a later switch does not affect the job.
type TranslationJob struct {
	ID        string
	RequestID string // Client-provided ID
	CreatedAt time.Time

	Request  translate.Request
	Provider llm.Provider

	mu              sync.RWMutex
	status          TranslationJobStatus
	startedAt       *time.Time
	completedAt     *time.Time
	err             string
	result          *translate.Result
	progressPercent int32
	progressMessage string
	sentencesDone   int
	sentencesTotal  int
	done            chan struct{}
}

// JobSnapshot is a point-in-time copy of a job for callers.
type JobSnapshot struct {
	ID              string               `json:"job_id"`
	RequestID       string               `json:"request_id,omitempty"`
	Status          TranslationJobStatus `json:"status"`
	Provider        string               `json:"provider"`
	ProgressPercent int32                `json:"progress_percent"`
	ProgressMessage string               `json:"progress_message,omitempty"`
	SentencesDone   int                  `json:"sentences_done"`
	SentencesTotal  int                  `json:"sentences_total"`
	Error           string               `json:"error,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	StartedAt       *time.Time           `json:"started_at,omitempty"`
	CompletedAt     *time.Time           `json:"completed_at,omitempty"`
	Result          *translate.Result    `json:"result,omitempty"`
}

// JobQueue manages asynchronous translation jobs.
type JobQueue struct {
	jobs      map[string]*TranslationJob
	jobsMu    sync.RWMutex
	logger    *logrus.Logger
	processor *JobProcessor
}

// NewJobQueue creates a new job queue.
func NewJobQueue(logger *logrus.Logger) *JobQueue {
	if logger == nil {
		logger = logrus.New()
	}
	return &JobQueue{
		jobs:   make(map[string]*TranslationJob),
		logger: logger,
	}
}

// SetProcessor sets the job processor for this queue.
func (q *JobQueue) SetProcessor(processor *JobProcessor) {
	q.processor = processor
}

// CreateJob queues req for translation with p and returns the job.
func (q *JobQueue) CreateJob(req translate.Request, p llm.Provider, requestID string) *TranslationJob {
	job := &TranslationJob{
		ID:             uuid.New().String(),
		RequestID:      requestID,
		CreatedAt:      time.Now(),
		Request:        req,
		Provider:       p,
		status:         JobStatusQueued,
		sentencesTotal: req.PageData.SentenceCount(),
		done:           make(chan struct{}),
	}
	jobsByStatus.WithLabelValues(string(JobStatusQueued)).Inc()

	q.jobsMu.Lock()
	q.jobs[job.ID] = job
	q.jobsMu.Unlock()

	q.logger.WithFields(logrus.Fields{
		"job_id":     job.ID,
		"request_id": requestID,
		"provider":   p.Info().Provider,
		"sentences":  job.sentencesTotal,
	}).Info("Created translation job")

	if q.processor != nil {
		go q.processor.ProcessJob(job)
	}
	return job
}

// GetJob retrieves a job by ID.
func (q *JobQueue) GetJob(jobID string) (*TranslationJob, error) {
	q.jobsMu.RLock()
	defer q.jobsMu.RUnlock()

	job, exists := q.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return job, nil
}

// Len returns the number of jobs held.
func (q *JobQueue) Len() int {
	q.jobsMu.RLock()
	defer q.jobsMu.RUnlock()
	return len(q.jobs)
}

// setStatus must be called with j.mu held.
func (j *TranslationJob) setStatus(status TranslationJobStatus) {
	if j.status == status {
		return
	}
	jobsByStatus.WithLabelValues(string(j.status)).Dec()
	jobsByStatus.WithLabelValues(string(status)).Inc()
	j.status = status

	now := time.Now()
	switch status {
	case JobStatusProcessing:
		if j.startedAt == nil {
			j.startedAt = &now
		}
	case JobStatusCompleted, JobStatusFailed:
		if j.completedAt == nil {
			j.completedAt = &now
			close(j.done)
		}
	}
}

// UpdateStatus updates the status of a job.
func (j *TranslationJob) UpdateStatus(status TranslationJobStatus, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.setStatus(status)
	j.progressMessage = message
}

// UpdateProgress records done of total sentences translated.
func (j *TranslationJob) UpdateProgress(done, total int) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.sentencesDone = done
	j.sentencesTotal = total
	if total > 0 {
		j.progressPercent = int32(done * 100 / total)
	}
	j.progressMessage = fmt.Sprintf("Translated sentence %d/%d", done, total)
}

// SetError marks the job failed. No partial result is kept.
func (j *TranslationJob) SetError(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.err = err.Error()
	j.result = nil
	j.setStatus(JobStatusFailed)
}

// SetResult marks the job completed with result.
func (j *TranslationJob) SetResult(result *translate.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.result = result
	j.progressPercent = 100
	j.progressMessage = "Translation completed"
	j.setStatus(JobStatusCompleted)
}

// Done is closed once the job has completed or failed.
func (j *TranslationJob) Done() <-chan struct{} {
	return j.done
}

// Snapshot returns a copy of the job state (thread-safe).
func (j *TranslationJob) Snapshot() JobSnapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return JobSnapshot{
		ID:              j.ID,
		RequestID:       j.RequestID,
		Status:          j.status,
		Provider:        j.Provider.Info().Provider,
		ProgressPercent: j.progressPercent,
		ProgressMessage: j.progressMessage,
		SentencesDone:   j.sentencesDone,
		SentencesTotal:  j.sentencesTotal,
		Error:           j.err,
		CreatedAt:       j.CreatedAt,
		StartedAt:       j.startedAt,
		CompletedAt:     j.completedAt,
		Result:          j.result,
	}
}

// finishedBefore reports whether the job completed or failed before t.
func (j *TranslationJob) finishedBefore(t time.Time) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.completedAt != nil && j.completedAt.Before(t)
}

// CleanupOldJobs removes completed or failed jobs older than maxAge.
func (q *JobQueue) CleanupOldJobs(maxAge time.Duration) int {
	q.jobsMu.Lock()
	defer q.jobsMu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, job := range q.jobs {
		if job.finishedBefore(cutoff) {
			jobsByStatus.WithLabelValues(string(job.Snapshot().Status)).Dec()
			delete(q.jobs, id)
			removed++
		}
	}

	if removed > 0 {
		q.logger.WithFields(logrus.Fields{
			"removed":   removed,
			"remaining": len(q.jobs),
		}).Info("Cleaned up old translation jobs")
	}
	return removed
}
