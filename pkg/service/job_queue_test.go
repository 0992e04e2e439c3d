package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dasmlab/lektor/pkg/llm"
	"github.com/dasmlab/lektor/pkg/translate"
)

func waitJob(t *testing.T, svc *ReaderService, id string) JobSnapshot {
	t.Helper()
	job, err := svc.Jobs.GetJob(id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	select {
	case <-job.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("job %s did not finish", id)
	}
	return job.Snapshot()
}

func TestSubmitJobCompletes(t *testing.T) {
	svc := newTestService(bothConfigured(), defaultStubs())
	svc.Init(context.Background())

	submitted, err := svc.SubmitJob(translate.Request{PageData: samplePage()}, "client-1")
	if err != nil {
		t.Fatalf("SubmitJob: %v", err)
	}
	if submitted.ID == "" || submitted.RequestID != "client-1" || submitted.Provider != "openai" {
		t.Errorf("submitted = %+v", submitted)
	}
	if submitted.SentencesTotal != 2 {
		t.Errorf("sentences total = %d, want 2", submitted.SentencesTotal)
	}

	got := waitJob(t, svc, submitted.ID)
	if got.Status != JobStatusCompleted {
		t.Fatalf("status = %s (%s), want completed", got.Status, got.Error)
	}
	if got.ProgressPercent != 100 || got.SentencesDone != 2 {
		t.Errorf("progress = %d%% (%d done)", got.ProgressPercent, got.SentencesDone)
	}
	if got.Result == nil || got.Result.PageData.Paragraphs[0].Sentences[1].EnglishTranslation[0] != "CHORUS" {
		t.Errorf("result = %+v", got.Result)
	}
	if got.StartedAt == nil || got.CompletedAt == nil {
		t.Errorf("timestamps not set: %+v", got)
	}

	fetched, err := svc.GetJob(submitted.ID)
	if err != nil || fetched.Status != JobStatusCompleted {
		t.Errorf("GetJob() = %+v, %v", fetched, err)
	}
}

func TestSubmitJobFailureKeepsNoPartialResult(t *testing.T) {
	stubs := defaultStubs()
	stubs[llm.ProviderOpenAI].err = llm.ErrProviderCallFailed
	svc := newTestService(bothConfigured(), stubs)
	svc.Init(context.Background())

	submitted, err := svc.SubmitJob(translate.Request{PageData: samplePage()}, "")
	if err != nil {
		t.Fatalf("SubmitJob: %v", err)
	}
	got := waitJob(t, svc, submitted.ID)
	if got.Status != JobStatusFailed || got.Error == "" {
		t.Errorf("status = %s, error = %q", got.Status, got.Error)
	}
	if got.Result != nil {
		t.Errorf("failed job kept a result: %+v", got.Result)
	}
}

func TestSubmitJobValidation(t *testing.T) {
	svc := newTestService(llm.Config{Logger: quietLogger()}, defaultStubs())

	if _, err := svc.SubmitJob(translate.Request{}, ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("missing page error = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.SubmitJob(translate.Request{PageData: samplePage()}, ""); !errors.Is(err, ErrServiceUnavailable) {
		t.Errorf("no provider error = %v, want ErrServiceUnavailable", err)
	}
	if _, err := svc.GetJob("missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("GetJob error = %v, want ErrJobNotFound", err)
	}
}

func TestCleanupOldJobs(t *testing.T) {
	svc := newTestService(bothConfigured(), defaultStubs())
	svc.Init(context.Background())

	submitted, err := svc.SubmitJob(translate.Request{PageData: samplePage()}, "")
	if err != nil {
		t.Fatalf("SubmitJob: %v", err)
	}
	waitJob(t, svc, submitted.ID)

	if n := svc.Jobs.CleanupOldJobs(time.Hour); n != 0 {
		t.Errorf("removed %d recent jobs", n)
	}
	if n := svc.Jobs.CleanupOldJobs(-time.Second); n != 1 {
		t.Errorf("removed %d jobs, want 1", n)
	}
	if svc.Jobs.Len() != 0 {
		t.Errorf("queue still holds %d jobs", svc.Jobs.Len())
	}
	if _, err := svc.GetJob(submitted.ID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("GetJob after cleanup error = %v", err)
	}
}

func TestJobFinishesOnlyOnce(t *testing.T) {
	q := NewJobQueue(quietLogger())
	job := q.CreateJob(translate.Request{PageData: samplePage()}, &stubProvider{name: "openai"}, "")

	job.UpdateStatus(JobStatusFailed, "provider error")
	first := job.Snapshot().CompletedAt
	if first == nil {
		t.Fatal("completed_at not set on failure")
	}

	job.UpdateStatus(JobStatusCompleted, "late result")
	job.UpdateStatus(JobStatusFailed, "again")

	select {
	case <-job.Done():
	default:
		t.Fatal("Done() not closed")
	}
	if got := job.Snapshot().CompletedAt; got == nil || !got.Equal(*first) {
		t.Errorf("completed_at moved from %v to %v", first, got)
	}
}
