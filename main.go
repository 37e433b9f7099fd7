package main

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	openai "github.com/sashabaranov/go-openai"

	"github.com/LudoUniloan/unibot1-vercel-chatfuel/api"
	"github.com/LudoUniloan/unibot1-vercel-chatfuel/config"
	"github.com/LudoUniloan/unibot1-vercel-chatfuel/database"
	"github.com/LudoUniloan/unibot1-vercel-chatfuel/middleware"
	"github.com/LudoUniloan/unibot1-vercel-chatfuel/models"
	"github.com/LudoUniloan/unibot1-vercel-chatfuel/repository"
	"github.com/LudoUniloan/unibot1-vercel-chatfuel/services"
)

func main() {
	// Load application configuration
	config.LoadConfig()

	// Quota storage: in-process memory by default, SQLite when a DSN is
	// configured. Both back the same QuotaStore contract.
	quotaStore := newQuotaStore()

	chatRepo := repository.NewChatRepository()
	lastSeen := repository.NewMemoryLastSeenStore()
	log.Println("INFO: [Main] Repositories initialized.")

	// Initialize Services
	quotaService := services.NewQuotaService(quotaStore, config.AppConfig.DailyLimit, config.AppConfig.TZOffsetMin)
	sessionService := services.NewSessionService(lastSeen, config.AppConfig.IdleResetMin, config.AppConfig.ResetPhrases)
	chatService := services.NewChatService(newOpenAIClient())
	log.Println("INFO: [Main] Services initialized.")

	apiHandler := api.NewAPIHandler(chatRepo, quotaService, sessionService, chatService)
	log.Println("INFO: [Main] API Handler initialized.")

	// Create Gin engine
	r := gin.New()
	r.SetTrustedProxies(nil)

	// Register middlewares
	r.Use(middleware.Logger())
	r.Use(middleware.Cors())
	r.Use(middleware.Recovery())
	log.Println("INFO: [Main] Middlewares registered.")

	registerRoutes(r, apiHandler)
	log.Println("INFO: [Main] Routes registered.")

	serverPort := ":" + config.AppConfig.Server.Port
	if config.AppConfig.Server.Port == "" {
		log.Println("WARN: [Main] Server port not configured, using default :8080.")
		serverPort = ":8080"
	}
	log.Printf("INFO: [Main] Starting server on port %s", serverPort)
	if err := r.Run(serverPort); err != nil {
		log.Fatalf("FATAL: [Main] Server failed to start: %v", err)
	}
}

func newQuotaStore() repository.QuotaStore {
	dsn := config.AppConfig.Database.DSN
	if dsn == "" || dsn == "memory" {
		log.Println("INFO: [Main] Using in-memory quota store.")
		return repository.NewMemoryQuotaStore()
	}

	db, err := database.Init()
	if err != nil {
		log.Fatalf("FATAL: [Main] Failed to initialize database: %v", err)
	}
	if err := db.AutoMigrate(&models.UserQuota{}); err != nil {
		log.Fatalf("FATAL: [Main] Failed to auto-migrate database: %v", err)
	}
	log.Println("INFO: [Main] Using SQLite quota store.")
	return repository.NewGormQuotaStore(db)
}

func newOpenAIClient() *openai.Client {
	clientConfig := openai.DefaultConfig(config.AppConfig.OpenAI.APIKey)
	if config.AppConfig.OpenAI.BaseURL != "" {
		clientConfig.BaseURL = config.AppConfig.OpenAI.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}

func registerRoutes(r *gin.Engine, handler *api.APIHandler) {
	// The webhook caller only speaks POST; everything else earns a 405
	// with a minimal error body.
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/reply", handler.ReplyHandler)
		apiGroup.GET("/init", handler.InitHandler)
		apiGroup.GET("/version", handler.VersionHandler)
	}
}
