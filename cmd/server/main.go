// Package main provides the FILKOM chatbot server entry point.
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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/qlerdi098-png/chatbot-filkom/internal/chat"
	"github.com/qlerdi098-png/chatbot-filkom/internal/config"
	"github.com/qlerdi098-png/chatbot-filkom/internal/genai"
	"github.com/qlerdi098-png/chatbot-filkom/internal/httpapi"
	"github.com/qlerdi098-png/chatbot-filkom/internal/kb"
	"github.com/qlerdi098-png/chatbot-filkom/internal/logger"
	"github.com/qlerdi098-png/chatbot-filkom/internal/metrics"
	"github.com/qlerdi098-png/chatbot-filkom/internal/search"
	"github.com/qlerdi098-png/chatbot-filkom/internal/sentry"
	"github.com/qlerdi098-png/chatbot-filkom/internal/templates"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger (ships to Better Stack when a token is configured)
	log := logger.NewWithBetterstack(cfg.LogLevel, cfg.BetterstackToken, cfg.BetterstackEndpoint)
	log.Info("Starting FILKOM chatbot server")

	// Initialize error tracking
	if err := sentry.Initialize(sentry.Config{
		Token:       cfg.SentryToken,
		Host:        cfg.SentryHost,
		Environment: cfg.SentryEnvironment,
	}); err != nil {
		log.WithError(err).Warn("Failed to initialize Sentry, error tracking disabled")
	} else if sentry.IsEnabled() {
		log.Info("Sentry error tracking enabled")
	}

	// Open the knowledge base database
	db, err := kb.NewDB(cfg.SQLitePath())
	if err != nil {
		log.WithError(err).Fatal("Failed to open database")
	}
	defer func() { _ = db.Close() }()
	log.WithField("path", cfg.SQLitePath()).Info("Database connected")

	// Create Prometheus registry with runtime collectors
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewBuildInfoCollector())

	m := metrics.New(registry)
	log.Info("Metrics initialized")

	// Load the knowledge base seed
	store := kb.NewStore(db, log)
	store.SetMetrics(m)
	if err := store.LoadSeed(context.Background(), cfg.KBSeedPath); err != nil {
		log.WithError(err).Fatal("Failed to load knowledge base seed")
	}
	log.WithFields(map[string]any{
		"courses":     len(store.CourseKeys()),
		"instructors": len(store.InstructorKeys()),
		"documents":   len(store.Documents()),
	}).Info("Knowledge base loaded")

	// Build the search indexes. The BM25 side needs no external service;
	// the vector side requires a Gemini API key for embeddings.
	lexical := search.NewLexicalIndex(log)

	var vector *search.VectorIndex
	if cfg.HasGemini() {
		embed := genai.NewEmbeddingFunc(cfg.GeminiAPIKey, cfg.GeminiEmbedderModel, cfg.Search.EmbeddingTimeout)
		vector, err = search.NewVectorIndex(cfg.DataDir, embed, log)
		if err != nil {
			log.WithError(err).Warn("Failed to create vector index, semantic search degraded to BM25 only")
			vector = nil
		}
	} else {
		log.Info("Gemini API key not configured, vector search disabled")
	}

	searchService := search.NewService(lexical, vector, search.Config{
		BM25Weight:     cfg.Search.BM25Weight,
		SemanticWeight: cfg.Search.SemanticWeight,
		ScoreThreshold: cfg.Search.ScoreThreshold,
		TopK:           cfg.Search.TopK,
	}, log)
	searchService.SetMetrics(m)

	if err := searchService.Initialize(context.Background(), store.Documents()); err != nil {
		log.WithError(err).Warn("Failed to initialize search indexes, search responses degraded")
	} else {
		log.WithField("documents", len(store.Documents())).Info("Search indexes initialized")
	}

	// Load response templates
	repo, err := templates.NewRepository(cfg.TemplatesPath, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to load response templates")
	}
	engine := templates.NewEngine(repo, store, cfg.Chat.FuzzyThreshold, log)
	log.WithField("templates", repo.Count()).Info("Template engine ready")

	// Create NLU clients (optional, disabled without an API key)
	classifier, err := genai.NewClassifier(context.Background(), cfg.GeminiAPIKey, cfg.GeminiIntentModel)
	if err != nil {
		log.WithError(err).Fatal("Failed to create intent classifier")
	}
	extractor, err := genai.NewExtractor(context.Background(), cfg.GeminiAPIKey, cfg.GeminiIntentModel)
	if err != nil {
		log.WithError(err).Fatal("Failed to create entity extractor")
	}
	if classifier == nil {
		log.Warn("NLU disabled, chat requests will return ERROR results")
	}

	// Assemble the chat pipeline
	pipeline, err := chat.NewPipeline(classifier, extractor, searchService, engine, chat.NewNormalizer(store, cfg.Chat.FuzzyThreshold), cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create chat pipeline")
	}
	pipeline.SetMetrics(m)
	log.Info("Chat pipeline created")

	// Create the HTTP handler
	handler := httpapi.NewHandler(pipeline, searchService, classifier, extractor, store, db, log)
	handler.SetMetrics(m)

	// Set Gin mode based on log level
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(securityHeadersMiddleware())
	router.Use(httpapi.RequestID())
	router.Use(loggingMiddleware(log))

	setupRoutes(router, handler, registry, cfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	if sentry.IsEnabled() {
		sentry.Flush(2 * time.Second)
	}

	if err := db.Close(); err != nil {
		log.WithError(err).Error("Failed to close database")
	}

	log.Info("Server stopped")
}
