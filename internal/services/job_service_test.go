package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jobtrackr/jobtrackr-api/internal/apperrors"
	"github.com/jobtrackr/jobtrackr-api/internal/dtos"
	"github.com/jobtrackr/jobtrackr-api/internal/models"
)

func newTestJobService(t *testing.T) *JobService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Job{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return NewJobService(db, zap.NewNop())
}

func samplePosting() *models.JobPosting {
	salary := "$140,000 - $170,000"
	return &models.JobPosting{
		Title:       "Senior Backend Engineer",
		Company:     "Acme Corp",
		Location:    "Remote",
		SalaryRange: &salary,
		Tags:        []string{"Go", "AWS"},
	}
}

var hexID = regexp.MustCompile(`^[0-9a-f]{12}$`)

func asAppError(err error, target **apperrors.AppError) bool {
	return errors.As(err, target)
}

func TestBuildDerivesDistinctIDsPerTimestamp(t *testing.T) {
	svc := newTestJobService(t)

	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	first := svc.Build("u1", "https://boards.greenhouse.io/acme/jobs/123", samplePosting(), "", "", "")

	svc.now = func() time.Time { return base.Add(time.Second) }
	second := svc.Build("u1", "https://boards.greenhouse.io/acme/jobs/123", samplePosting(), "", "", "")

	if !hexID.MatchString(first.JobID) {
		t.Errorf("job_id %q is not 12 hex characters", first.JobID)
	}
	if first.JobID == second.JobID {
		t.Error("same URL at different timestamps must produce distinct job_ids")
	}
	if first.SortKey == second.SortKey {
		t.Error("sort keys must be distinct")
	}
}

func TestBuildTimestampConsistency(t *testing.T) {
	svc := newTestJobService(t)
	at := time.Date(2026, 8, 31, 12, 0, 0, 123456000, time.UTC)
	svc.now = func() time.Time { return at }

	job := svc.Build("u1", "https://example.com/jobs/1", samplePosting(), "", "", "")

	ts := models.FormatAppliedTS(at)
	if job.AppliedTS != ts {
		t.Errorf("applied_ts = %q, want %q", job.AppliedTS, ts)
	}
	if job.LastUpdatedTS != ts {
		t.Errorf("last_updated_ts = %q, want %q", job.LastUpdatedTS, ts)
	}
	if job.JobID != GenerateJobID("https://example.com/jobs/1", ts) {
		t.Error("job_id not derived from the same timestamp as applied_ts")
	}
	if want := "JOB#" + ts + "#" + job.JobID; job.SortKey != want {
		t.Errorf("sort_key = %q, want %q", job.SortKey, want)
	}
	if want := "COMPANY#Acme Corp#" + ts + "#" + job.JobID; job.CompanyKey != want {
		t.Errorf("company_key = %q, want %q", job.CompanyKey, want)
	}
}

func TestBuildWithFallbackRecord(t *testing.T) {
	svc := newTestJobService(t)

	job := svc.Build("u1", "https://example.com/jobs/1", FallbackPosting(), "", "", "")

	if job.Title != "Unknown" || job.Company != "Unknown" || job.Location != "Unknown" {
		t.Errorf("required fields must be populated: %+v", job)
	}
	if job.Status != DefaultStatus {
		t.Errorf("status = %q, want %q", job.Status, DefaultStatus)
	}
	if job.SalaryRange != nil || job.EmploymentType != nil || job.Source != nil || job.Notes != nil {
		t.Error("fallback optional fields must stay absent")
	}
	if job.Tags == nil || len(job.Tags) != 0 {
		t.Errorf("tags = %#v, want empty list", job.Tags)
	}

	if err := svc.Put(context.Background(), job); err != nil {
		t.Fatalf("Put: %v", err)
	}
}

func TestBuildNotesPrecedence(t *testing.T) {
	svc := newTestJobService(t)

	analyzerNotes := "Analyzer summary."
	posting := samplePosting()
	posting.Notes = &analyzerNotes
	job := svc.Build("u1", "https://example.com/jobs/1", posting, "", "user notes", "")
	if job.Notes == nil || *job.Notes != analyzerNotes {
		t.Errorf("analyzer notes must win, got %v", job.Notes)
	}

	job = svc.Build("u1", "https://example.com/jobs/1", samplePosting(), "", "user notes", "")
	if job.Notes == nil || *job.Notes != "user notes" {
		t.Errorf("user notes must fill the gap, got %v", job.Notes)
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	svc := newTestJobService(t)
	ctx := context.Background()

	job := svc.Build("u1", "https://boards.greenhouse.io/acme/jobs/123", samplePosting(), "https://cdn.example.com/r.pdf", "", "")
	if err := svc.Put(ctx, job); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := svc.Get(ctx, "u1", job.JobID, job.AppliedTS)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if got.Title != job.Title || got.Company != job.Company || got.Location != job.Location {
		t.Errorf("round trip mismatch: got %+v", got)
	}
	if got.SalaryRange == nil || *got.SalaryRange != *job.SalaryRange {
		t.Errorf("salary_range = %v", got.SalaryRange)
	}
	if got.ResumeURL == nil || *got.ResumeURL != "https://cdn.example.com/r.pdf" {
		t.Errorf("resume_url = %v", got.ResumeURL)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "Go" {
		t.Errorf("tags = %v", got.Tags)
	}
}

func TestGetMissingJob(t *testing.T) {
	svc := newTestJobService(t)

	_, err := svc.Get(context.Background(), "u1", "deadbeef0000", models.FormatAppliedTS(time.Now()))
	var appErr *apperrors.AppError
	if !asAppError(err, &appErr) || appErr.Code != apperrors.CodeNotFound {
		t.Errorf("Get missing = %v, want NOT_FOUND", err)
	}
}

// seedJobs stores n records for userID at strictly increasing timestamps and
// returns them oldest first.
func seedJobs(t *testing.T, svc *JobService, userID string, n int) []*models.Job {
	t.Helper()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	jobs := make([]*models.Job, 0, n)
	for i := 0; i < n; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		svc.now = func() time.Time { return at }
		job := svc.Build(userID, fmt.Sprintf("https://example.com/jobs/%d", i), samplePosting(), "", "", "")
		if err := svc.Put(context.Background(), job); err != nil {
			t.Fatalf("Put seed %d: %v", i, err)
		}
		jobs = append(jobs, job)
	}
	return jobs
}

func TestListPagination(t *testing.T) {
	svc := newTestJobService(t)
	ctx := context.Background()
	seeded := seedJobs(t, svc, "u1", 10)

	page1, token, err := svc.List(ctx, "u1", 3, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page1) != 3 {
		t.Fatalf("page1 len = %d, want 3", len(page1))
	}
	if token == "" {
		t.Fatal("expected a continuation token")
	}
	// Newest first: the most recent seed leads.
	if page1[0].JobID != seeded[9].JobID {
		t.Errorf("page1[0] = %s, want newest %s", page1[0].JobID, seeded[9].JobID)
	}
	for i := 1; i < len(page1); i++ {
		if page1[i-1].SortKey <= page1[i].SortKey {
			t.Error("page1 not in descending sort-key order")
		}
	}

	page2, _, err := svc.List(ctx, "u1", 3, token)
	if err != nil {
		t.Fatalf("List page2: %v", err)
	}
	if len(page2) != 3 {
		t.Fatalf("page2 len = %d, want 3", len(page2))
	}
	// No overlap, no gap.
	if page2[0].JobID != seeded[6].JobID {
		t.Errorf("page2[0] = %s, want %s", page2[0].JobID, seeded[6].JobID)
	}
	seen := map[string]bool{}
	for _, j := range page1 {
		seen[j.JobID] = true
	}
	for _, j := range page2 {
		if seen[j.JobID] {
			t.Errorf("job %s appears on both pages", j.JobID)
		}
	}
}

func TestListLimitClamping(t *testing.T) {
	svc := newTestJobService(t)
	ctx := context.Background()
	seedJobs(t, svc, "u1", 12)

	jobs, _, err := svc.List(ctx, "u1", 0, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 10 {
		t.Errorf("default page size = %d, want 10", len(jobs))
	}

	jobs, _, err = svc.List(ctx, "u1", 500, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 12 {
		t.Errorf("clamped list returned %d", len(jobs))
	}
}

func TestListScopedToUser(t *testing.T) {
	svc := newTestJobService(t)
	ctx := context.Background()
	seedJobs(t, svc, "u1", 3)
	seedJobs(t, svc, "u2", 2)

	jobs, _, err := svc.List(ctx, "u2", 10, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("u2 sees %d jobs, want 2", len(jobs))
	}
	for _, j := range jobs {
		if j.UserID != "u2" {
			t.Errorf("cross-user leak: %+v", j)
		}
	}
}

func TestListByCompany(t *testing.T) {
	svc := newTestJobService(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, company := range []string{"Acme Corp", "Globex", "Acme Corp"} {
		at := base.Add(time.Duration(i) * time.Hour)
		svc.now = func() time.Time { return at }
		posting := samplePosting()
		posting.Company = company
		job := svc.Build("u1", fmt.Sprintf("https://example.com/jobs/%d", i), posting, "", "", "")
		if err := svc.Put(ctx, job); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	jobs, err := svc.ListByCompany(ctx, "u1", "Acme Corp", 50)
	if err != nil {
		t.Fatalf("ListByCompany: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(jobs))
	}
	for _, j := range jobs {
		if j.Company != "Acme Corp" {
			t.Errorf("wrong company: %s", j.Company)
		}
	}
	if jobs[0].AppliedTS < jobs[1].AppliedTS {
		t.Error("company listing not newest first")
	}
}

func TestUpdateAllowedFields(t *testing.T) {
	svc := newTestJobService(t)
	ctx := context.Background()

	at := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return at }
	job := svc.Build("u1", "https://example.com/jobs/1", samplePosting(), "", "", "")
	if err := svc.Put(ctx, job); err != nil {
		t.Fatalf("Put: %v", err)
	}

	svc.now = func() time.Time { return at.Add(time.Hour) }
	status := "Applied"
	notes := "Spoke with recruiter."
	updated, err := svc.Update(ctx, "u1", job.JobID, job.AppliedTS, dtos.UpdateJobRequest{Status: &status, Notes: &notes})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if updated.Status != "Applied" {
		t.Errorf("status = %q", updated.Status)
	}
	if updated.Notes == nil || *updated.Notes != notes {
		t.Errorf("notes = %v", updated.Notes)
	}
	if updated.LastUpdatedTS == job.LastUpdatedTS {
		t.Error("last_updated_ts must be bumped")
	}
	if updated.AppliedTS != job.AppliedTS || updated.JobID != job.JobID {
		t.Error("immutable key fields changed")
	}
}

func TestUpdateNoFields(t *testing.T) {
	svc := newTestJobService(t)
	ctx := context.Background()

	job := svc.Build("u1", "https://example.com/jobs/1", samplePosting(), "", "", "")
	if err := svc.Put(ctx, job); err != nil {
		t.Fatalf("Put: %v", err)
	}

	_, err := svc.Update(ctx, "u1", job.JobID, job.AppliedTS, dtos.UpdateJobRequest{})
	var appErr *apperrors.AppError
	if !asAppError(err, &appErr) || appErr.Code != apperrors.CodeNoFieldsToUpdate {
		t.Fatalf("empty update = %v, want NO_FIELDS_TO_UPDATE", err)
	}

	got, err := svc.Get(ctx, "u1", job.JobID, job.AppliedTS)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.LastUpdatedTS != job.LastUpdatedTS {
		t.Error("rejected update must not touch last_updated_ts")
	}
}

func TestUpdateMissingJob(t *testing.T) {
	svc := newTestJobService(t)

	status := "Applied"
	_, err := svc.Update(context.Background(), "u1", "deadbeef0000",
		models.FormatAppliedTS(time.Now()), dtos.UpdateJobRequest{Status: &status})
	var appErr *apperrors.AppError
	if !asAppError(err, &appErr) || appErr.Code != apperrors.CodeNotFound {
		t.Errorf("update missing = %v, want NOT_FOUND", err)
	}
}

func TestDelete(t *testing.T) {
	svc := newTestJobService(t)
	ctx := context.Background()

	job := svc.Build("u1", "https://example.com/jobs/1", samplePosting(), "", "", "")
	if err := svc.Put(ctx, job); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := svc.Delete(ctx, "u1", job.JobID, job.AppliedTS); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	_, err := svc.Get(ctx, "u1", job.JobID, job.AppliedTS)
	var appErr *apperrors.AppError
	if !asAppError(err, &appErr) || appErr.Code != apperrors.CodeNotFound {
		t.Errorf("Get after delete = %v, want NOT_FOUND", err)
	}
}

func TestStats(t *testing.T) {
	svc := newTestJobService(t)
	ctx := context.Background()
	jobs := seedJobs(t, svc, "u1", 4)

	status := "Applied"
	if _, err := svc.Update(ctx, "u1", jobs[0].JobID, jobs[0].AppliedTS, dtos.UpdateJobRequest{Status: &status}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	counts, total, err := svc.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if total != 4 {
		t.Errorf("total = %d, want 4", total)
	}

	byStatus := map[string]int64{}
	for _, c := range counts {
		byStatus[c.Status] = c.Count
	}
	if byStatus["Captured"] != 3 || byStatus["Applied"] != 1 {
		t.Errorf("counts = %v", byStatus)
	}
}

func TestPageTokenRoundTrip(t *testing.T) {
	key := "JOB#2026-08-31T12:00:00.000000Z#abcdef123456"
	decoded, err := decodePageToken(encodePageToken(key))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded != key {
		t.Errorf("decoded = %q, want %q", decoded, key)
	}

	if _, err := decodePageToken("not base64!!"); err == nil {
		t.Error("garbage token must fail to decode")
	}
}
