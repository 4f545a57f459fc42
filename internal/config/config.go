package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration, populated from environment
// variables. Values come from the process environment; main loads a .env
// file first for local development.
type Config struct {
	Port string

	DatabaseDSN string

	FirecrawlAPIKey  string
	FirecrawlBaseURL string
	ScrapeTimeout    time.Duration

	// LLMProvider selects the analysis backend: "googleai" or "openai".
	LLMProvider  string
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string
	MaxTokens    int

	// AuthMode selects how the user identity is resolved: "claims" reads the
	// gateway-verified x-user-id header, "body" reads user_id from the
	// request body (legacy multi-tenant mode).
	AuthMode string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ScrapeCacheTTL time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnvString("PORT", "8080"),

		DatabaseDSN: getEnvString("DATABASE_DSN",
			"host=localhost user=postgres password=password dbname=jobtrackr port=5432 sslmode=disable"),

		FirecrawlAPIKey:  getEnvString("FIRECRAWL_API_KEY", ""),
		FirecrawlBaseURL: getEnvString("FIRECRAWL_BASE_URL", "https://api.firecrawl.dev"),
		ScrapeTimeout:    getEnvDuration("SCRAPE_TIMEOUT", 60*time.Second),

		LLMProvider:  getEnvString("LLM_PROVIDER", "googleai"),
		GeminiAPIKey: getEnvString("GEMINI_API_KEY", ""),
		GeminiModel:  getEnvString("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey: getEnvString("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnvString("OPENAI_MODEL", "gpt-4o-mini"),
		MaxTokens:    getEnvInt("LLM_MAX_TOKENS", 2000),

		AuthMode: getEnvString("AUTH_MODE", "claims"),

		RedisAddr:      getEnvString("REDIS_ADDR", ""),
		RedisPassword:  getEnvString("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		ScrapeCacheTTL: getEnvDuration("SCRAPE_CACHE_TTL", time.Hour),
	}

	switch cfg.LLMProvider {
	case "googleai", "openai":
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q (want googleai or openai)", cfg.LLMProvider)
	}

	switch cfg.AuthMode {
	case "claims", "body":
	default:
		return nil, fmt.Errorf("unsupported AUTH_MODE %q (want claims or body)", cfg.AuthMode)
	}

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
