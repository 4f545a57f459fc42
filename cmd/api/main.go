package main

import (
	"context"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jobtrackr/jobtrackr-api/internal/auth"
	"github.com/jobtrackr/jobtrackr-api/internal/cache"
	"github.com/jobtrackr/jobtrackr-api/internal/config"
	"github.com/jobtrackr/jobtrackr-api/internal/database"
	"github.com/jobtrackr/jobtrackr-api/internal/handlers"
	"github.com/jobtrackr/jobtrackr-api/internal/services"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("failed to create logger: ", err)
	}
	defer logger.Sync()

	db, err := database.Connect(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	logger.Info("database connection established")

	// External collaborator clients are created once and shared by all
	// in-flight requests for the process lifetime.
	scrapeCache := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.ScrapeCacheTTL, logger)
	defer scrapeCache.Close()

	llmService, err := services.NewLLMService(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to create LLM client", zap.Error(err))
	}

	scraperService := services.NewScraperService(cfg, scrapeCache, logger)
	jobService := services.NewJobService(db, logger)
	pipelineService := services.NewPipelineService(scraperService, llmService, jobService, logger)

	resolver := auth.NewResolver(cfg.AuthMode)
	jobHandler := handlers.NewJobHandler(pipelineService, jobService, resolver, logger)

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.CustomRecovery(handlers.RecoveryHandler))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", auth.UserIDHeader}
	r.Use(cors.New(corsConfig))

	api := r.Group("/api/v1")
	jobHandler.RegisterRoutes(api)

	logger.Info("server starting", zap.String("port", cfg.Port), zap.String("auth_mode", cfg.AuthMode))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
