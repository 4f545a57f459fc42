package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jobtrackr/jobtrackr-api/internal/apperrors"
	"github.com/jobtrackr/jobtrackr-api/internal/auth"
	"github.com/jobtrackr/jobtrackr-api/internal/dtos"
	"github.com/jobtrackr/jobtrackr-api/internal/services"
	"github.com/jobtrackr/jobtrackr-api/internal/validation"
)

// JobHandler exposes the ingest pipeline and the post-ingest store
// operations over HTTP.
type JobHandler struct {
	pipeline *services.PipelineService
	jobs     *services.JobService
	resolver auth.Resolver
	logger   *zap.Logger
}

func NewJobHandler(pipeline *services.PipelineService, jobs *services.JobService, resolver auth.Resolver, logger *zap.Logger) *JobHandler {
	return &JobHandler{pipeline: pipeline, jobs: jobs, resolver: resolver, logger: logger}
}

// RegisterRoutes mounts all job routes on the group.
func (h *JobHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/health", HealthCheck)

	api.POST("/jobs/ingest", h.IngestJob)
	api.GET("/jobs", h.ListJobs)
	api.GET("/jobs/stats", h.JobStats)
	api.GET("/jobs/company/:company", h.ListJobsByCompany)
	api.GET("/jobs/:job_id", h.GetJob)
	api.PUT("/jobs/:job_id", h.UpdateJob)
	api.DELETE("/jobs/:job_id", h.DeleteJob)
}

// IngestJob is POST /jobs/ingest: validates the URL, runs the pipeline and
// returns the stored record. Pipeline failures report the failing stage.
func (h *JobHandler) IngestJob(c *gin.Context) {
	var req dtos.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body", apperrors.CodeInvalidBody, nil)
		return
	}

	req.URL = validation.SanitizeField(req.URL)
	req.ResumeURL = validation.SanitizeField(req.ResumeURL)
	auth.StashBodyUserID(c, req.UserID)

	userID, authErr := h.resolver.Resolve(c)
	if authErr != nil {
		respondAppError(c, authErr)
		return
	}

	url, rejection := validation.ValidateURL(req.URL)
	if rejection != nil {
		respondAppError(c, rejection)
		return
	}

	job, stageErr := h.pipeline.Ingest(c.Request.Context(), userID, url, req.ResumeURL, req.Notes)
	if stageErr != nil {
		respondError(c, http.StatusInternalServerError, "Job processing failed", apperrors.CodeProcessingFailed, gin.H{
			"status": "failed",
			"step":   stageErr.Stage,
			"url":    url,
		})
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"message": "Job URL processed successfully",
		"status":  "completed",
		"url":     url,
		"job":     job,
	})
}

// ListJobs is GET /jobs: one page of the user's records, newest first.
// limit is clamped to [1, 50] (default 10); last_key resumes a prior page.
func (h *JobHandler) ListJobs(c *gin.Context) {
	userID, authErr := h.resolver.Resolve(c)
	if authErr != nil {
		respondAppError(c, authErr)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	token := c.Query("last_key")

	jobs, nextToken, err := h.jobs.List(c.Request.Context(), userID, limit, token)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	body := gin.H{
		"jobs":  jobs,
		"count": len(jobs),
	}
	if nextToken != "" {
		body["next_page_token"] = nextToken
	}
	respondSuccess(c, http.StatusOK, body)
}

// GetJob is GET /jobs/:job_id?applied_ts=... — a point lookup. The store
// key is composite, so the creation timestamp is required alongside the id.
func (h *JobHandler) GetJob(c *gin.Context) {
	userID, authErr := h.resolver.Resolve(c)
	if authErr != nil {
		respondAppError(c, authErr)
		return
	}

	appliedTS := c.Query("applied_ts")
	if appliedTS == "" {
		respondError(c, http.StatusBadRequest, "applied_ts query parameter is required", apperrors.CodeInvalidBody, nil)
		return
	}

	job, err := h.jobs.Get(c.Request.Context(), userID, c.Param("job_id"), appliedTS)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{"job": job})
}

// ListJobsByCompany is GET /jobs/company/:company — the secondary-index
// query: all of the user's jobs at one company, newest first.
func (h *JobHandler) ListJobsByCompany(c *gin.Context) {
	userID, authErr := h.resolver.Resolve(c)
	if authErr != nil {
		respondAppError(c, authErr)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	jobs, err := h.jobs.ListByCompany(c.Request.Context(), userID, c.Param("company"), limit)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"company": c.Param("company"),
		"jobs":    jobs,
		"count":   len(jobs),
	})
}

// UpdateJob is PUT /jobs/:job_id?applied_ts=... with any subset of
// {status, notes, resume_url}.
func (h *JobHandler) UpdateJob(c *gin.Context) {
	userID, authErr := h.resolver.Resolve(c)
	if authErr != nil {
		respondAppError(c, authErr)
		return
	}

	appliedTS := c.Query("applied_ts")
	if appliedTS == "" {
		respondError(c, http.StatusBadRequest, "applied_ts query parameter is required", apperrors.CodeInvalidBody, nil)
		return
	}

	var req dtos.UpdateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body", apperrors.CodeInvalidBody, nil)
		return
	}

	job, err := h.jobs.Update(c.Request.Context(), userID, c.Param("job_id"), appliedTS, req)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"message": "Job updated",
		"job":     job,
	})
}

// DeleteJob is DELETE /jobs/:job_id?applied_ts=...
func (h *JobHandler) DeleteJob(c *gin.Context) {
	userID, authErr := h.resolver.Resolve(c)
	if authErr != nil {
		respondAppError(c, authErr)
		return
	}

	appliedTS := c.Query("applied_ts")
	if appliedTS == "" {
		respondError(c, http.StatusBadRequest, "applied_ts query parameter is required", apperrors.CodeInvalidBody, nil)
		return
	}

	if err := h.jobs.Delete(c.Request.Context(), userID, c.Param("job_id"), appliedTS); err != nil {
		h.respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{"message": "Job deleted"})
}

// JobStats is GET /jobs/stats: per-status counts plus the total.
func (h *JobHandler) JobStats(c *gin.Context) {
	userID, authErr := h.resolver.Resolve(c)
	if authErr != nil {
		respondAppError(c, authErr)
		return
	}

	counts, total, err := h.jobs.Stats(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"statuses": counts,
		"total":    total,
	})
}

// respondServiceError surfaces AppErrors with their code and logs anything
// unclassified before returning a generic 500.
func (h *JobHandler) respondServiceError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if httpStatusFor(appErr.Code) >= http.StatusInternalServerError {
			h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		}
		respondAppError(c, appErr)
		return
	}

	h.logger.Error("unclassified error", zap.String("path", c.FullPath()), zap.Error(err))
	respondError(c, http.StatusInternalServerError, "Internal server error", apperrors.CodeInternalError, nil)
}
