package dtos

// IngestRequest is the body of POST /jobs/ingest. UserID is only honored in
// body auth mode; in claims mode identity comes from the verified request
// context instead.
type IngestRequest struct {
	URL       string `json:"url" binding:"required"`
	UserID    string `json:"user_id"`
	ResumeURL string `json:"resume_url"`
	Notes     string `json:"notes"`
}

// UpdateJobRequest is the body of PUT /jobs/:job_id. Pointer fields
// distinguish "not supplied" from "set to empty"; only this closed set of
// fields is mutable post-creation.
type UpdateJobRequest struct {
	Status    *string `json:"status"`
	Notes     *string `json:"notes"`
	ResumeURL *string `json:"resume_url"`
}

// Empty reports whether the request carries no updatable field at all.
func (r UpdateJobRequest) Empty() bool {
	return r.Status == nil && r.Notes == nil && r.ResumeURL == nil
}
