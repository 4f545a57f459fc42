// Package validation rejects malformed or non-job URLs before the pipeline
// makes any external call.
package validation

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/jobtrackr/jobtrackr-api/internal/apperrors"
)

const maxURLLength = 2048

var (
	disallowedChars = regexp.MustCompile("[<>\"{}|\\\\^`\\[\\]]")
	domainPattern   = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?)*$`)
	controlChars    = regexp.MustCompile(`[\x00-\x1f\x7f-\x9f]`)
)

// Hostnames of the major job boards; matched as substrings of the request
// host.
var jobBoardDomains = []string{
	"linkedin.com",
	"indeed.com",
	"glassdoor.com",
	"monster.com",
	"ziprecruiter.com",
	"careerbuilder.com",
	"dice.com",
	"angel.co",
	"stackoverflow.com",
	"github.com",
	"lever.co",
	"greenhouse.io",
	"workday.com",
	"bamboohr.com",
	"smartrecruiters.com",
	"jobvite.com",
	"icims.com",
	"ashbyhq.com",
	"jobs.lever.co",
	"boards.greenhouse.io",
	"jobs.workday.com",
	"jobs.ashbyhq.com",
	"apply.workable.com",
	"jobs.smartrecruiters.com",
	"jobs.jobvite.com",
	"careers.smartrecruiters.com",
}

// Path segments that mark a posting on an unrecognized board.
var jobPathSegments = []string{
	"/jobs/",
	"/careers/",
	"/job/",
	"/position/",
	"/opportunities/",
	"/openings/",
	"/vacancies/",
	"/employment/",
}

// ValidateURL normalizes raw and returns it, or a rejection with a stable
// code. Checks run in order and short-circuit on the first failure. No
// network access happens here.
func ValidateURL(raw string) (string, *apperrors.AppError) {
	if raw == "" {
		return "", apperrors.Validation(apperrors.CodeMissingURL, "URL is required")
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", apperrors.Validation(apperrors.CodeEmptyURL, "URL cannot be empty")
	}

	if len(trimmed) > maxURLLength {
		return "", apperrors.Validation(apperrors.CodeURLTooLong, "URL too long (max 2048 characters)")
	}

	if disallowedChars.MatchString(trimmed) {
		return "", apperrors.Validation(apperrors.CodeInvalidCharacters, "URL contains invalid characters")
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", apperrors.Validation(apperrors.CodeMalformedURL, "Malformed URL")
	}

	if parsed.Scheme == "" {
		return "", apperrors.Validation(apperrors.CodeMissingProtocol, "URL must include protocol (http/https)")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", apperrors.Validation(apperrors.CodeInvalidProtocol, "URL must use http or https protocol")
	}

	if parsed.Host == "" {
		return "", apperrors.Validation(apperrors.CodeMissingDomain, "URL must include domain name")
	}

	if !domainPattern.MatchString(parsed.Hostname()) {
		return "", apperrors.Validation(apperrors.CodeInvalidDomain, "Invalid domain format")
	}

	if !looksLikeJobURL(trimmed, parsed) {
		return "", apperrors.Validation(apperrors.CodeNotJobURL, "URL does not appear to be from a recognized job board")
	}

	return trimmed, nil
}

// looksLikeJobURL applies the job-posting heuristic: known board host, a
// job-like path segment, or "job"/"jobs" anywhere in the URL. The last check
// subsumes the first two in practice but stays as a safety net for boards we
// don't list.
func looksLikeJobURL(raw string, parsed *url.URL) bool {
	host := strings.ToLower(parsed.Host)
	for _, domain := range jobBoardDomains {
		if strings.Contains(host, domain) {
			return true
		}
	}

	path := strings.ToLower(parsed.Path)
	for _, segment := range jobPathSegments {
		if strings.Contains(path, segment) {
			return true
		}
	}

	return strings.Contains(strings.ToLower(raw), "job")
}

// SanitizeField strips control characters from a client-supplied string and
// caps its length, before any validation runs.
func SanitizeField(value string) string {
	cleaned := controlChars.ReplaceAllString(value, "")
	if len(cleaned) > maxURLLength {
		cleaned = cleaned[:maxURLLength]
	}
	return cleaned
}
