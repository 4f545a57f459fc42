package services

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jobtrackr/jobtrackr-api/internal/apperrors"
	"github.com/jobtrackr/jobtrackr-api/internal/dtos"
	"github.com/jobtrackr/jobtrackr-api/internal/models"
)

const (
	DefaultStatus = "Captured"

	defaultPageSize = 10
	maxPageSize     = 50
)

// RecommendedStatuses is the conventional lifecycle set. Other values are
// accepted and stored as-is; they only trigger a warning log.
var RecommendedStatuses = map[string]bool{
	"Captured":     true,
	"Applied":      true,
	"Interviewing": true,
	"Offer":        true,
	"Rejected":     true,
	"Withdrawn":    true,
}

// JobService builds and persists job records. All operations are scoped to
// one user via the partition column; records are addressed by the composite
// (user_id, applied_ts, job_id).
type JobService struct {
	db     *gorm.DB
	logger *zap.Logger
	// now is swappable in tests; defaults to time.Now.
	now func() time.Time
}

func NewJobService(db *gorm.DB, logger *zap.Logger) *JobService {
	return &JobService{db: db, logger: logger, now: time.Now}
}

// GenerateJobID derives the short job identifier from the URL and the
// ingest timestamp. Collisions on 12 hex chars are negligible and not
// handled.
func GenerateJobID(url, timestamp string) string {
	sum := sha256.Sum256([]byte(url + "#" + timestamp))
	return hex.EncodeToString(sum[:])[:12]
}

func sortKey(appliedTS, jobID string) string {
	return "JOB#" + appliedTS + "#" + jobID
}

func companyKey(company, appliedTS, jobID string) string {
	return "COMPANY#" + company + "#" + appliedTS + "#" + jobID
}

// Build assembles a storable record from analyzer output. The timestamp is
// captured exactly once and shared by the job-id hash, applied_ts and the
// sort key, so the three always agree. Optional analyzer fields are carried
// over only when non-empty. Analyzer notes win over user-provided notes.
func (s *JobService) Build(userID, jobURL string, posting *models.JobPosting, resumeURL, notes, status string) *models.Job {
	now := models.FormatAppliedTS(s.now())
	jobID := GenerateJobID(jobURL, now)

	if status == "" {
		status = DefaultStatus
	}

	job := &models.Job{
		UserID:     userID,
		SortKey:    sortKey(now, jobID),
		CompanyKey: companyKey(posting.Company, now, jobID),

		JobID:         jobID,
		AppliedTS:     now,
		LastUpdatedTS: now,

		Title:    posting.Title,
		Company:  posting.Company,
		Location: posting.Location,

		Status: status,
		JobURL: jobURL,

		Tags: []string{},
	}

	if posting.SalaryRange != nil && *posting.SalaryRange != "" {
		job.SalaryRange = posting.SalaryRange
	}
	if posting.EmploymentType != nil && *posting.EmploymentType != "" {
		job.EmploymentType = posting.EmploymentType
	}
	if posting.Source != nil && *posting.Source != "" {
		job.Source = posting.Source
	}
	if len(posting.Tags) > 0 {
		job.Tags = posting.Tags
	}
	if posting.Notes != nil && *posting.Notes != "" {
		job.Notes = posting.Notes
	} else if notes != "" {
		job.Notes = &notes
	}
	if resumeURL != "" {
		job.ResumeURL = &resumeURL
	}

	return job
}

// Put writes the record. The write is unconditional: re-submitting the same
// URL produces a distinct record because the timestamp changes the hash.
func (s *JobService) Put(ctx context.Context, job *models.Job) error {
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return apperrors.Database("failed to insert job", err)
	}
	s.logger.Info("job stored",
		zap.String("user_id", job.UserID), zap.String("job_id", job.JobID), zap.String("company", job.Company))
	return nil
}

// Get is a point lookup by the full composite key.
func (s *JobService) Get(ctx context.Context, userID, jobID, appliedTS string) (*models.Job, error) {
	var job models.Job
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND sort_key = ?", userID, sortKey(appliedTS, jobID)).
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("job not found")
	}
	if err != nil {
		return nil, apperrors.Database("failed to get job", err)
	}
	return &job, nil
}

// pageToken is the store-native pagination cursor, shipped to clients as
// opaque base64 JSON.
type pageToken struct {
	SortKey string `json:"sort_key"`
}

func encodePageToken(key string) string {
	raw, _ := json.Marshal(pageToken{SortKey: key})
	return base64.URLEncoding.EncodeToString(raw)
}

func decodePageToken(token string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("decode page token: %w", err)
	}
	var t pageToken
	if err := json.Unmarshal(raw, &t); err != nil {
		return "", fmt.Errorf("parse page token: %w", err)
	}
	if t.SortKey == "" {
		return "", fmt.Errorf("empty page token")
	}
	return t.SortKey, nil
}

// ClampLimit applies the server-side page-size bounds.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

// List returns one page of the user's jobs, newest first, plus a
// continuation token when more remain.
func (s *JobService) List(ctx context.Context, userID string, limit int, token string) ([]models.Job, string, error) {
	limit = ClampLimit(limit)

	query := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("sort_key DESC").
		Limit(limit + 1)

	if token != "" {
		after, err := decodePageToken(token)
		if err != nil {
			return nil, "", apperrors.Validation(apperrors.CodeInvalidBody, "invalid pagination token")
		}
		query = query.Where("sort_key < ?", after)
	}

	var jobs []models.Job
	if err := query.Find(&jobs).Error; err != nil {
		return nil, "", apperrors.Database("failed to list jobs", err)
	}

	nextToken := ""
	if len(jobs) > limit {
		jobs = jobs[:limit]
		nextToken = encodePageToken(jobs[len(jobs)-1].SortKey)
	}

	return jobs, nextToken, nil
}

// ListByCompany returns the user's jobs at one company, newest first, via
// the company index. Single page up to limit; no continuation token.
func (s *JobService) ListByCompany(ctx context.Context, userID, company string, limit int) ([]models.Job, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}

	var jobs []models.Job
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND company_key LIKE ?", userID, "COMPANY#"+company+"#%").
		Order("company_key DESC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, apperrors.Database("failed to list jobs by company", err)
	}
	return jobs, nil
}

// Update applies a partial update restricted to the mutable field set and
// bumps last_updated_ts. An update carrying no mutable field is rejected
// without touching the record.
func (s *JobService) Update(ctx context.Context, userID, jobID, appliedTS string, req dtos.UpdateJobRequest) (*models.Job, error) {
	if req.Empty() {
		return nil, apperrors.Validation(apperrors.CodeNoFieldsToUpdate, "no updatable fields supplied")
	}

	updates := map[string]interface{}{
		"last_updated_ts": models.FormatAppliedTS(s.now()),
	}
	if req.Status != nil {
		if !RecommendedStatuses[*req.Status] {
			s.logger.Warn("status outside recommended set", zap.String("status", *req.Status))
		}
		updates["status"] = *req.Status
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.ResumeURL != nil {
		updates["resume_url"] = *req.ResumeURL
	}

	result := s.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("user_id = ? AND sort_key = ?", userID, sortKey(appliedTS, jobID)).
		Updates(updates)
	if result.Error != nil {
		return nil, apperrors.Database("failed to update job", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.NotFound("job not found")
	}

	return s.Get(ctx, userID, jobID, appliedTS)
}

// Delete removes the record by its full key. Deleting an absent record is
// not an error.
func (s *JobService) Delete(ctx context.Context, userID, jobID, appliedTS string) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND sort_key = ?", userID, sortKey(appliedTS, jobID)).
		Delete(&models.Job{}).Error
	if err != nil {
		return apperrors.Database("failed to delete job", err)
	}
	s.logger.Info("job deleted", zap.String("user_id", userID), zap.String("job_id", jobID))
	return nil
}

// StatusCount is one row of the per-user stats aggregation.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// Stats returns per-status counts and the total for one user.
func (s *JobService) Stats(ctx context.Context, userID string) ([]StatusCount, int64, error) {
	var counts []StatusCount
	err := s.db.WithContext(ctx).
		Model(&models.Job{}).
		Select("status, count(*) as count").
		Where("user_id = ?", userID).
		Group("status").
		Order("count DESC").
		Scan(&counts).Error
	if err != nil {
		return nil, 0, apperrors.Database("failed to aggregate job stats", err)
	}

	var total int64
	for _, c := range counts {
		total += c.Count
	}
	return counts, total, nil
}
