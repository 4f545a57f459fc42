package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/jobtrackr/jobtrackr-api/internal/config"
	"github.com/jobtrackr/jobtrackr-api/internal/models"
)

// maxContentChars caps how much page text goes into the prompt.
const maxContentChars = 20000

const analysisPromptTemplate = `You are an expert Job Data Extraction Agent. Analyze the provided job posting content and extract structured information.

### INSTRUCTIONS:
1. **Analyze** the text to identify the core job details.
2. **Ignore** navigation menus, footers, "similar jobs" lists, and site advertisements.
3. **Extract** the fields below strictly.
4. **Format** the output as valid JSON only. Do not wrap the output in markdown code blocks.

### OUTPUT SCHEMA:
{
    "title": "Job title (string, required)",
    "company": "Company name (string, required)",
    "location": "Job location: city, state, country, or 'Remote' (string, required)",
    "salary_range": "Compensation range, or null if not mentioned (string or null)",
    "employment_type": "One of: Full-time, Part-time, Internship, Contract, Freelance; null if unclear (string or null)",
    "source": "Job board or source, e.g. LinkedIn, Greenhouse, Company Website; null if unclear (string or null)",
    "tags": ["Array", "of", "skills", "and", "technologies", "mentioned"],
    "notes": "A 2-3 sentence summary of the role, or null (string or null)"
}

### SALARY FORMATTING RULES:
- Use dollar signs and comma-grouped thousands: "$120,000 - $180,000".
- Convert hourly rates to annual by multiplying by 2080.
- Convert monthly figures to annual by multiplying by 12.
- If only a single figure is given, widen it to a range of -20%% to +20%% around it.

### CONSTRAINT:
If a piece of information is missing, set the value to null. Do not hallucinate or guess.

### JOB POSTING CONTENT:
%s
`

// LLMService analyzes extracted job content with a language model. The
// backend is selected once at startup and the client is reused for the
// process lifetime; callers see a single Analyze contract either way.
type LLMService struct {
	client    llms.Model
	maxTokens int
	logger    *zap.Logger
}

// NewLLMService initializes the configured model client.
func NewLLMService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*LLMService, error) {
	var client llms.Model
	var err error

	switch cfg.LLMProvider {
	case "googleai":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for the googleai provider")
		}
		client, err = googleai.New(ctx,
			googleai.WithAPIKey(cfg.GeminiAPIKey),
			googleai.WithDefaultModel(cfg.GeminiModel),
		)
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		client, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.OpenAIModel),
		)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.LLMProvider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", cfg.LLMProvider, err)
	}

	return &LLMService{client: client, maxTokens: cfg.MaxTokens, logger: logger}, nil
}

// Analyze sends the content to the model and parses the response into a
// JobPosting. A malformed model response never fails the call: it maps to
// the fixed fallback record. Provider failures (network, auth, quota) are
// returned as errors and terminate the pipeline.
func (s *LLMService) Analyze(ctx context.Context, content *models.JobContent) (*models.JobPosting, error) {
	if content == nil || content.Content == "" {
		return nil, fmt.Errorf("no content to analyze")
	}

	text := content.Content
	if len(text) > maxContentChars {
		text = text[:maxContentChars]
	}

	prompt := fmt.Sprintf(analysisPromptTemplate, text)

	resp, err := llms.GenerateFromSinglePrompt(ctx, s.client, prompt, llms.WithMaxTokens(s.maxTokens))
	if err != nil {
		return nil, fmt.Errorf("llm request: %w", err)
	}

	posting, ok := parseAnalysis(resp)
	if !ok {
		s.logger.Warn("unparseable model response, using fallback record",
			zap.String("url", content.URL), zap.Int("response_len", len(resp)))
		return FallbackPosting(), nil
	}

	return posting, nil
}

// parseAnalysis parses the raw model output against the JobPosting schema.
// The second return value reports whether parsing succeeded; it never
// returns a partially-invalid record.
func parseAnalysis(raw string) (*models.JobPosting, bool) {
	cleaned := stripCodeFence(raw)

	// Models occasionally prepend prose; recover by slicing out the
	// outermost JSON object.
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end < start {
		return nil, false
	}

	var posting models.JobPosting
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &posting); err != nil {
		return nil, false
	}

	normalizePosting(&posting)
	return &posting, true
}

func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// normalizePosting enforces the record invariants: the three required
// strings are never empty, and tags is an empty list rather than nil.
func normalizePosting(p *models.JobPosting) {
	if strings.TrimSpace(p.Title) == "" {
		p.Title = "Unknown"
	}
	if strings.TrimSpace(p.Company) == "" {
		p.Company = "Unknown"
	}
	if strings.TrimSpace(p.Location) == "" {
		p.Location = "Unknown"
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
}

// FallbackPosting is the fixed record substituted when the model response
// cannot be parsed.
func FallbackPosting() *models.JobPosting {
	return &models.JobPosting{
		Title:    "Unknown",
		Company:  "Unknown",
		Location: "Unknown",
		Tags:     []string{},
	}
}
