// @title           Paragoniusz API
// @version         1.0.0
// @description     Backend API for the Paragoniusz expense tracker. Handles
// @description     receipt image uploads, AI-based expense extraction and
// @description     atomic batch saving of verified expenses.

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"paragoniusz-backend/internal/config"
	"paragoniusz-backend/internal/database"
	"paragoniusz-backend/internal/handlers"
	"paragoniusz-backend/internal/middleware"
	"paragoniusz-backend/internal/models"
	"paragoniusz-backend/internal/openrouter"
	"paragoniusz-backend/internal/services"
	"paragoniusz-backend/internal/supabase"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	migrator, err := database.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to initialize migrator", "error", err)
		os.Exit(1)
	}
	if err := migrator.Run(); err != nil {
		migrator.Close()
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}
	migrator.Close()

	dbClient, err := supabase.NewDatabaseClient(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to initialize database client", "error", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	supabaseClient, err := supabase.NewClient(cfg)
	if err != nil {
		slog.Error("failed to initialize supabase client", "error", err)
		os.Exit(1)
	}
	storageClient := supabase.NewStorageClient(supabaseClient, cfg.SupabaseStorageBucket)

	extractor := openrouter.NewClient(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, cfg.OpenRouterModel)

	scanService := services.NewScanService(storageClient, dbClient, extractor, services.ScanServiceConfig{
		Enabled:    cfg.AIScanEnabled,
		Timeout:    cfg.ProcessingTimeout,
		RateLimit:  cfg.ScanRateLimit,
		RateWindow: cfg.ScanRateWindow,
	})

	uploadHandler := handlers.NewUploadHandler(storageClient)
	processHandler := handlers.NewProcessHandler(scanService)
	expenseHandler := handlers.NewExpenseHandler(dbClient)
	profileHandler := handlers.NewProfileHandler(dbClient)

	models.RegisterValidators()

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.GET("/health", handlers.HealthHandler)

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg.SupabaseJWTSecret))

	api.POST("/receipts/upload", uploadHandler.Upload)
	api.POST("/receipts/process", processHandler.Process)

	api.POST("/expenses", expenseHandler.Create)
	api.POST("/expenses/batch", expenseHandler.CreateBatch)
	api.GET("/expenses", expenseHandler.List)
	api.DELETE("/expenses/:expense_id", expenseHandler.Delete)

	api.GET("/categories", expenseHandler.ListCategories)

	api.GET("/profiles/me", profileHandler.Me)
	api.PATCH("/profiles/me/consent", profileHandler.UpdateConsent)

	slog.Info("server starting", "port", cfg.Port, "ai_scan_enabled", cfg.AIScanEnabled)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
