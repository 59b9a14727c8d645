package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/mo"
	"go.uber.org/zap"

	"github.com/holyai/holyai/internal/api"
	"github.com/holyai/holyai/internal/api/chat"
	"github.com/holyai/holyai/internal/api/proxy"
	"github.com/holyai/holyai/internal/api/speech"
	"github.com/holyai/holyai/internal/config"
	"github.com/holyai/holyai/internal/metrics"
	"github.com/holyai/holyai/internal/provider/elevenlabs"
	"github.com/holyai/holyai/internal/provider/openai"
	"github.com/holyai/holyai/internal/provider/qdrant"
	"github.com/holyai/holyai/internal/repository"
	"github.com/holyai/holyai/internal/service"
)

var (
	configPath = flag.String("config", "", "Path to config file")
	strict     = flag.Bool("strict", false, "Refuse to start when required settings are missing")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Validate environment
	validation := cfg.Validate()
	for _, w := range validation.Warnings {
		logger.Warn(w)
	}
	for _, e := range validation.Errors {
		logger.Error(e)
	}
	if !validation.OK() && *strict {
		logger.Fatal("Missing required configuration", zap.Int("errors", len(validation.Errors)))
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Providers
	openaiClient := openai.NewClient(openai.Config{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		EmbedModel: cfg.OpenAI.EmbedModel,
		ChatModel:  cfg.OpenAI.ChatModel,
		BatchSize:  cfg.OpenAI.BatchSize,
	}, logger, m)
	qdrantClient := qdrant.NewClient(qdrant.Config{
		URL:    cfg.Qdrant.URL,
		APIKey: cfg.Qdrant.APIKey,
	}, logger, m)
	speechClient := elevenlabs.NewClient(elevenlabs.Config{
		APIKey:  cfg.ElevenLabs.APIKey,
		VoiceID: cfg.ElevenLabs.VoiceID,
		BaseURL: cfg.ElevenLabs.BaseURL,
	}, logger, m)

	logger.Info("Providers",
		zap.Bool("openai", openaiClient.Configured()),
		zap.Bool("qdrant", qdrantClient.Configured()),
		zap.Bool("elevenlabs", speechClient.Configured()),
	)

	// Optional conversation store
	store := mo.None[service.ConversationStore]()
	if cfg.StoreEnabled() {
		db, err := repository.NewDB(cfg.Database.URL)
		if err != nil {
			logger.Error("Failed to initialize database, conversation history disabled", zap.Error(err))
		} else {
			defer db.Close()
			store = mo.Some[service.ConversationStore](repository.NewConversationRepository(db.DB))
		}
	}

	// Initialize services
	orchestrator := service.NewOrchestrator(service.OrchestratorConfig{
		Collection:     cfg.Qdrant.Collection,
		TopK:           cfg.RAG.TopK,
		ScoreThreshold: mo.Some(cfg.RAG.ScoreThreshold),
		Temperature:    cfg.RAG.Temperature,
		HistoryLimit:   cfg.RAG.HistoryLimit,
	}, openaiClient, qdrantClient, openaiClient, store, logger, m)
	chatService := service.NewChatService(orchestrator)

	// Setup router
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.SetupRouter(api.Handlers{
		Proxy:  proxy.NewHandler(openaiClient, openaiClient, qdrantClient, logger),
		Chat:   chat.NewHandler(chatService),
		Speech: speech.NewHandler(speechClient),
	}, api.RouterConfig{
		Logger:   logger,
		Metrics:  m,
		Gatherer: reg,
		Store:    orchestrator,
		Status:   cfg.Status,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting Holy AI server",
			zap.String("address", cfg.Address()),
			zap.String("collection", cfg.Qdrant.Collection),
			zap.Bool("store", store.IsPresent()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zcfg.Level = level
	}
	return zcfg.Build()
}
