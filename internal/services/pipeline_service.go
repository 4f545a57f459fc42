package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/jobtrackr/jobtrackr-api/internal/models"
)

// Stage names the pipeline step a failure originated from; it is surfaced
// verbatim in error responses so clients know where a request died.
type Stage string

const (
	StageScraping   Stage = "scraping"
	StageExtraction Stage = "extraction"
	StageAnalysis   Stage = "analysis"
	StageStorage    Stage = "storage"
)

// StageError wraps a stage failure with its originating stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return string(e.Stage) + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Scraper fetches a URL into a content envelope.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*models.ContentEnvelope, error)
}

// Analyzer turns extracted content into a structured posting.
type Analyzer interface {
	Analyze(ctx context.Context, content *models.JobContent) (*models.JobPosting, error)
}

// JobStore builds and persists records.
type JobStore interface {
	Build(userID, jobURL string, posting *models.JobPosting, resumeURL, notes, status string) *models.Job
	Put(ctx context.Context, job *models.Job) error
}

// PipelineService sequences scrape, extract, analyze and store for one
// validated URL. It advances only on success and terminates on the first
// failing stage; nothing is written before the storage stage, so a failure
// needs no cleanup. It is the only component aware of the full sequence.
type PipelineService struct {
	scraper Scraper
	llm     Analyzer
	jobs    JobStore
	logger  *zap.Logger
}

func NewPipelineService(scraper Scraper, llm Analyzer, jobs JobStore, logger *zap.Logger) *PipelineService {
	return &PipelineService{scraper: scraper, llm: llm, jobs: jobs, logger: logger}
}

// Ingest runs the pipeline for one request and returns the stored record,
// or the stage that failed.
func (p *PipelineService) Ingest(ctx context.Context, userID, url, resumeURL, notes string) (*models.Job, *StageError) {
	p.logger.Info("pipeline started", zap.String("user_id", userID), zap.String("url", url))

	envelope, err := p.scraper.Scrape(ctx, url)
	if err != nil {
		p.logger.Error("scrape stage failed", zap.String("url", url), zap.Error(err))
		return nil, &StageError{Stage: StageScraping, Err: err}
	}

	content, err := ExtractJobContent(envelope)
	if err != nil {
		p.logger.Error("extract stage failed", zap.String("url", url), zap.Error(err))
		return nil, &StageError{Stage: StageExtraction, Err: err}
	}

	posting, err := p.llm.Analyze(ctx, content)
	if err != nil {
		p.logger.Error("analyze stage failed", zap.String("url", url), zap.Error(err))
		return nil, &StageError{Stage: StageAnalysis, Err: err}
	}

	job := p.jobs.Build(userID, url, posting, resumeURL, notes, DefaultStatus)
	if err := p.jobs.Put(ctx, job); err != nil {
		p.logger.Error("store stage failed", zap.String("url", url), zap.Error(err))
		return nil, &StageError{Stage: StageStorage, Err: err}
	}

	p.logger.Info("pipeline completed",
		zap.String("user_id", userID), zap.String("job_id", job.JobID), zap.String("company", job.Company))
	return job, nil
}
