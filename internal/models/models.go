package models

import (
	"time"
)

// AppliedTSLayout is the timestamp layout used in sort keys. Fixed-width
// fractional seconds keep the lexicographic order of sort keys identical to
// chronological order.
const AppliedTSLayout = "2006-01-02T15:04:05.000000Z07:00"

// FormatAppliedTS renders t in UTC in the sort-key layout.
func FormatAppliedTS(t time.Time) string {
	return t.UTC().Format(AppliedTSLayout)
}

// ContentEnvelope is the normalized result of a scrape call, regardless of
// what shape the provider returned.
type ContentEnvelope struct {
	URL      string         `json:"url"`
	HTML     string         `json:"html"`
	Markdown string         `json:"markdown"`
	Metadata ScrapeMetadata `json:"metadata"`
	Success  bool           `json:"success"`
}

// ScrapeMetadata is the subset of provider page metadata the pipeline uses.
type ScrapeMetadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	SourceURL   string `json:"sourceURL,omitempty"`
	ScrapedAt   string `json:"scrapedAt,omitempty"`
}

// JobContent is what the analyzer consumes: the plain-text body plus the
// little metadata worth keeping.
type JobContent struct {
	Content     string `json:"content"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	ScrapedAt   string `json:"scraped_at"`
}

// JobPosting is the structured output of analysis. Title, Company and
// Location are never empty in a persisted record; the analyzer substitutes
// "Unknown" when extraction yields nothing.
type JobPosting struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`

	SalaryRange    *string  `json:"salary_range,omitempty"`
	EmploymentType *string  `json:"employment_type,omitempty"`
	Source         *string  `json:"source,omitempty"`
	Tags           []string `json:"tags"`
	Notes          *string  `json:"notes,omitempty"`
}

// Job is the persisted record. The table mirrors a partition/sort key
// layout: UserID is the partition, SortKey ("JOB#<applied_ts>#<job_id>")
// orders records chronologically when sorted lexicographically, and
// CompanyKey ("COMPANY#<company>#<applied_ts>#<job_id>") is the secondary
// index used for per-company queries.
type Job struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	UserID     string `gorm:"index:idx_user_sort,unique,priority:1;index:idx_user_company,priority:1;not null" json:"user_id"`
	SortKey    string `gorm:"index:idx_user_sort,unique,priority:2;not null" json:"-"`
	CompanyKey string `gorm:"index:idx_user_company,priority:2;not null" json:"-"`

	JobID         string `gorm:"not null" json:"job_id"`
	AppliedTS     string `gorm:"not null" json:"applied_ts"`
	LastUpdatedTS string `gorm:"not null" json:"last_updated_ts"`

	Title    string `gorm:"not null" json:"title"`
	Company  string `gorm:"not null" json:"company"`
	Location string `gorm:"not null" json:"location"`

	Status string `gorm:"not null" json:"status"`
	JobURL string `gorm:"not null" json:"job_url"`

	SalaryRange    *string  `json:"salary_range,omitempty"`
	EmploymentType *string  `json:"employment_type,omitempty"`
	Source         *string  `json:"source,omitempty"`
	Tags           []string `gorm:"serializer:json" json:"tags"`
	Notes          *string  `gorm:"type:text" json:"notes,omitempty"`
	ResumeURL      *string  `json:"resume_url,omitempty"`
}
