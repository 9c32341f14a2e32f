// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpAdapter "github.com/leseb/ragchat/pkg/adapters/http"
	"github.com/leseb/ragchat/pkg/core/api"
	"github.com/leseb/ragchat/pkg/core/config"
	"github.com/leseb/ragchat/pkg/core/qaindex"
	"github.com/leseb/ragchat/pkg/core/rag"
	"github.com/leseb/ragchat/pkg/core/services"
	"github.com/leseb/ragchat/pkg/objectstore"
	"github.com/leseb/ragchat/pkg/observability/logging"
	"github.com/leseb/ragchat/pkg/observability/metrics"
	"github.com/leseb/ragchat/pkg/qa"
	"github.com/leseb/ragchat/pkg/vectorstore"

	// Backend registrations
	_ "github.com/leseb/ragchat/pkg/objectstore/filesystem"
	_ "github.com/leseb/ragchat/pkg/objectstore/memory"
	_ "github.com/leseb/ragchat/pkg/objectstore/s3"
	_ "github.com/leseb/ragchat/pkg/storage/memory"
	_ "github.com/leseb/ragchat/pkg/storage/postgres"
	_ "github.com/leseb/ragchat/pkg/storage/sqlite"
	_ "github.com/leseb/ragchat/pkg/vectorstore/milvus"
	_ "github.com/leseb/ragchat/pkg/vectorstore/pgvector"
)

var (
	// Version is set via ldflags during build
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	envPath := flag.String("env-file", ".env", "Path to a .env file loaded before the configuration")
	port := flag.Int("port", 0, "HTTP port to listen on (overrides config)")
	version := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	// Print version
	if *version {
		fmt.Printf("RAG Chat Server\nVersion: %s\nBuild Time: %s\n", Version, BuildTime)
		os.Exit(0)
	}

	bootLogger := logging.New(logging.Config{Level: "info", Format: "json"})
	if err := config.LoadDotEnv(*envPath); err != nil {
		bootLogger.Warn("Failed to load .env file", "error", err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		// If config file doesn't exist, use defaults
		bootLogger.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}

	// Override port if specified
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logger.Info("Starting RAG Chat Server",
		"version", Version,
		"build_time", BuildTime)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *logging.Logger) error {
	initCtx := context.Background()
	rec := metrics.New()

	// Model clients
	chat, err := api.ChatProviders.New(initCtx, cfg.LLM.Provider, cfg.LLM.Params())
	if err != nil {
		return fmt.Errorf("initialize llm: %w", err)
	}
	logger.Info("Initialized LLM client", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)

	embedder, err := api.EmbeddingProviders.New(initCtx, cfg.Embedding.Provider, cfg.Embedding.Params())
	if err != nil {
		return fmt.Errorf("initialize embeddings: %w", err)
	}
	logger.Info("Initialized embedding client", "provider", cfg.Embedding.Provider, "dimensions", cfg.Embedding.Dimensions)

	// Vector store backend
	index, err := vectorstore.Providers.New(initCtx, cfg.VectorStore.Type, cfg.VectorStore.Params())
	if err != nil {
		return fmt.Errorf("initialize vector store: %w", err)
	}
	defer index.Close(context.Background())
	if err := index.Init(initCtx, cfg.Embedding.Dimensions); err != nil {
		return fmt.Errorf("provision vector store: %w", err)
	}
	logger.Info("Initialized vector store backend", "type", cfg.VectorStore.Type)

	// Upload storage
	objects, err := objectstore.Providers.New(initCtx, cfg.ObjectStore.Type, cfg.ObjectStore.Params())
	if err != nil {
		return fmt.Errorf("initialize object store: %w", err)
	}
	defer objects.Close(context.Background())
	logger.Info("Initialized object store", "type", cfg.ObjectStore.Type, "prefix", cfg.ObjectStore.Prefix)

	// Q&A application database
	qaStore, err := qa.Providers.New(initCtx, cfg.QAStore.Type, cfg.QAStore.Params())
	if err != nil {
		return fmt.Errorf("initialize qa store: %w", err)
	}
	defer qaStore.Close()
	logger.Info("Initialized Q&A store", "type", cfg.QAStore.Type)

	// Services
	indexOpts := []qaindex.Option{
		qaindex.WithSink(qaindex.MultiSink{qaindex.LogSink{Logger: logger.With("component", "qaindex")}, rec}),
	}
	if cfg.RAG.AcceptedMarker != "" {
		indexOpts = append(indexOpts, qaindex.WithAcceptedMarker(cfg.RAG.AcceptedMarker))
	}
	indexer := qaindex.New(qaStore, qaStore, index, embedder, indexOpts...)
	qaSync := services.NewQASyncService(qaStore, indexer, logger.With("component", "qa_sync"))

	documents := services.NewDocumentService(objects, embedder, index, rec, logger.With("component", "documents"), services.DocumentConfig{
		Prefix:        cfg.ObjectStore.Prefix,
		MaxFileSizeMB: cfg.Documents.MaxFileSizeMB,
		ChunkSize:     cfg.Documents.ChunkSize,
		ChunkOverlap:  cfg.Documents.ChunkOverlap,
	})

	pipeline := rag.New(index, embedder, chat, rag.Config{
		TopK:             cfg.RAG.TopK,
		Temperature:      cfg.RAG.Temperature,
		MaxTokens:        cfg.LLM.MaxTokens,
		UseSystemMessage: cfg.RAG.UseSystemMessage,
	})

	// Initialize HTTP adapter
	handler := httpAdapter.New(httpAdapter.Options{
		Chat:           pipeline,
		Documents:      documents,
		QA:             qaSync,
		Metrics:        rec,
		Logger:         logger,
		Version:        Version,
		MaxUploadBytes: int64(cfg.Documents.MaxFileSizeMB) << 20,
	})

	// Create HTTP server
	addr := cfg.Server.Addr()
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("Shutdown signal received")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
