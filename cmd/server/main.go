package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"kgraph/internal/adapter"
	"kgraph/internal/api"
	"kgraph/internal/chat"
	"kgraph/internal/graph"
	"kgraph/internal/store"
	memorystore "kgraph/internal/store/memory"
	neo4jstore "kgraph/internal/store/neo4j"
	sqlitestore "kgraph/internal/store/sqlite"
	"kgraph/pkg/config"
	"kgraph/pkg/logger"
)

func main() {
	// Initialize logger
	if err := logger.Init(os.Getenv("ENV")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting knowledge graph server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Open the record store backend
	recordStore, err := openStore(cfg)
	if err != nil {
		log.Fatal("Failed to open record store", zap.Error(err))
	}
	defer recordStore.Close()
	log.Info("Record store ready", zap.String("backend", cfg.StoreBackend))

	// Initialize services
	graphService := graph.NewService(recordStore)

	var chatService *chat.Service
	if cfg.LLMBaseURL != "" || cfg.LLMAPIKey != "" {
		llm := adapter.NewLLMAdapter(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.ModelID)
		chatService = chat.NewService(graphService, llm, cfg.ContextMaxChars)
	}

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(api.GinLogger(log))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PATCH, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	api.NewHandler(graphService, chatService, cfg.ContextMaxChars, log).Register(router)

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

func openStore(cfg *config.Config) (store.RecordStore, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		return sqlitestore.Open(cfg.SQLitePath)
	case config.BackendNeo4j:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return neo4jstore.Open(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
	default:
		return memorystore.New(), nil
	}
}
