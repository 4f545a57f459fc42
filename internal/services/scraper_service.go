package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/jobtrackr/jobtrackr-api/internal/cache"
	"github.com/jobtrackr/jobtrackr-api/internal/config"
	"github.com/jobtrackr/jobtrackr-api/internal/models"
)

// ScraperService fetches job pages through the Firecrawl scrape API and
// normalizes the provider response into a ContentEnvelope. The HTTP client
// is shared and safe for concurrent requests.
type ScraperService struct {
	baseURL string
	apiKey  string
	client  *http.Client
	cache   *cache.ScrapeCache
	logger  *zap.Logger
}

func NewScraperService(cfg *config.Config, scrapeCache *cache.ScrapeCache, logger *zap.Logger) *ScraperService {
	return &ScraperService{
		baseURL: cfg.FirecrawlBaseURL,
		apiKey:  cfg.FirecrawlAPIKey,
		client:  &http.Client{Timeout: cfg.ScrapeTimeout},
		cache:   scrapeCache,
		logger:  logger,
	}
}

// scrapeRequest mirrors the Firecrawl /v1/scrape request body. Main-content
// extraction strips navigation, footers and other boilerplate.
type scrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

// scrapeResponse mirrors the relevant fields of the Firecrawl response.
type scrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    struct {
		HTML     string                `json:"html"`
		Markdown string                `json:"markdown"`
		Metadata models.ScrapeMetadata `json:"metadata"`
	} `json:"data"`
}

// Scrape fetches the page at url, requesting both rendered HTML and markdown
// plus page metadata. Any transport error, missing credential or
// provider-reported failure is returned as an error; the orchestrator treats
// it as terminal.
func (s *ScraperService) Scrape(ctx context.Context, url string) (*models.ContentEnvelope, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("FIRECRAWL_API_KEY not set")
	}

	if cached, err := s.cache.Get(ctx, url); err == nil {
		s.logger.Debug("scrape cache hit", zap.String("url", url))
		return cached, nil
	}

	body, err := json.Marshal(scrapeRequest{
		URL:             url,
		Formats:         []string{"html", "markdown"},
		OnlyMainContent: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal scrape request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/scrape", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create scrape request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrape request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read scrape response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scrape provider returned HTTP %d: %s", resp.StatusCode, string(respBytes))
	}

	var scrapeResp scrapeResponse
	if err := json.Unmarshal(respBytes, &scrapeResp); err != nil {
		return nil, fmt.Errorf("parse scrape response: %w", err)
	}

	if !scrapeResp.Success {
		return nil, fmt.Errorf("scrape provider failure: %s", scrapeResp.Error)
	}

	envelope := &models.ContentEnvelope{
		URL:      url,
		HTML:     scrapeResp.Data.HTML,
		Markdown: scrapeResp.Data.Markdown,
		Metadata: scrapeResp.Data.Metadata,
		Success:  true,
	}

	s.cache.Set(ctx, url, envelope)
	s.logger.Info("scraped content", zap.String("url", url), zap.Int("markdown_len", len(envelope.Markdown)))

	return envelope, nil
}

// ExtractJobContent reduces a scrape envelope to the plain-text body and
// metadata the analyzer needs. Markdown is preferred; raw HTML is the
// fallback when markdown came back empty.
func ExtractJobContent(envelope *models.ContentEnvelope) (*models.JobContent, error) {
	if envelope == nil || !envelope.Success {
		return nil, fmt.Errorf("no scraped content to extract")
	}

	content := envelope.Markdown
	if content == "" {
		content = envelope.HTML
	}
	if content == "" {
		return nil, fmt.Errorf("scraped page has no text content")
	}

	return &models.JobContent{
		Content:     content,
		Title:       envelope.Metadata.Title,
		Description: envelope.Metadata.Description,
		URL:         envelope.URL,
		ScrapedAt:   envelope.Metadata.ScrapedAt,
	}, nil
}
