package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/topicrag/internal/config"
	"github.com/kailas-cloud/topicrag/internal/db"
	dbRedis "github.com/kailas-cloud/topicrag/internal/db/redis"
	"github.com/kailas-cloud/topicrag/internal/domain"
	"github.com/kailas-cloud/topicrag/internal/domain/corpus"
	"github.com/kailas-cloud/topicrag/internal/domain/search/ranker"
	logpkg "github.com/kailas-cloud/topicrag/internal/logger"
	"github.com/kailas-cloud/topicrag/internal/metrics"
	budgetrepo "github.com/kailas-cloud/topicrag/internal/repository/budget"
	"github.com/kailas-cloud/topicrag/internal/repository/dataset"
	"github.com/kailas-cloud/topicrag/internal/repository/embcache"
	chiTransport "github.com/kailas-cloud/topicrag/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/topicrag/internal/transport/openai"
	answeruc "github.com/kailas-cloud/topicrag/internal/usecase/answer"
	chatuc "github.com/kailas-cloud/topicrag/internal/usecase/chat"
	embeddinguc "github.com/kailas-cloud/topicrag/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/topicrag/internal/usecase/health"
	"github.com/kailas-cloud/topicrag/internal/usecase/retrieval"
	topicuc "github.com/kailas-cloud/topicrag/internal/usecase/topic"
	usageuc "github.com/kailas-cloud/topicrag/internal/usecase/usage"
	"github.com/kailas-cloud/topicrag/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting topicrag API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("corpus", cfg.Corpus.Path),
		zap.String("cache_driver", cfg.Cache.Driver),
	)

	// Register metrics explicitly (no init())
	metrics.Register()

	ctx := context.Background()

	c, err := loadCorpus(cfg.Corpus, logger)
	if err != nil {
		logger.Fatal("Failed to load corpus", zap.Error(err))
	}

	// Optional cache backend for query embeddings and budget counters.
	var store db.Store
	if cfg.Cache.Enabled() {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		logger.Info("Connected to cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	// Single BudgetTracker shared by the embedder chain and the usage service.
	var budget *embeddinguc.BudgetTracker
	budgetCfg := cfg.Embedding.Budget
	if budgetCfg.DailyTokenLimit > 0 || budgetCfg.MonthlyTokenLimit > 0 {
		budget = embeddinguc.NewBudgetTracker(
			cfg.Embedding.Provider, budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit,
			embeddinguc.BudgetAction(budgetCfg.Action), logger,
		)
		if store != nil {
			budget.WithStore(ctx, budgetrepo.New(store, 0, 0))
		}
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	var budgetChecker embeddinguc.BudgetChecker
	if budget != nil {
		budgetChecker = budget
	}

	queryEmbedder := buildEmbedder(cfg, store, budgetChecker, logger)

	retrievalSvc := retrieval.New(c, ranker.NewDense(), queryEmbedder).
		WithLimits(domain.RetrievalConfig{
			DefaultTopK: cfg.Retrieval.DefaultTopK,
			MaxTopK:     cfg.Retrieval.MaxTopK,
		}).
		WithObserver(metrics.RetrievalObserver{})

	chat := openaiTransport.NewChat(&openaiTransport.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Logger:  logger,
	}, time.Duration(cfg.LLM.MinIntervalMs)*time.Millisecond)

	classifier := topicuc.New(chat.ForPurpose("classify"), c.DistinctTopics()).
		WithTemperature(*cfg.LLM.ClassifyTemperature)

	answerTemp := float32(-1)
	if cfg.LLM.Temperature != nil {
		answerTemp = *cfg.LLM.Temperature
	}
	generator := answeruc.New(chat.ForPurpose("answer"), answeruc.Limits{
		MaxItemChars:    cfg.Retrieval.MaxItemChars,
		MaxContextChars: cfg.Retrieval.MaxContextChars,
	}).WithSampling(answerTemp, cfg.LLM.MaxTokens)

	chatSvc := chatuc.New(classifier, retrievalSvc, generator, cfg.Retrieval.DefaultTopK)

	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetReader = budget
	}
	usageSvc := usageuc.New(budgetReader)

	var cachePinger healthuc.Pinger
	if store != nil {
		cachePinger = store
	}
	healthSvc := healthuc.New(retrievalSvc, cachePinger, newEmbeddingHealthChecker(queryEmbedder))

	server := chiTransport.NewServer(classifier, chatSvc, retrievalSvc, usageSvc, healthSvc)
	router := chiTransport.NewRouter(server, chiTransport.RouterOptions{
		APIKeys:     cfg.Auth.APIKeys,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Logger:      logger,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// loadCorpus reads the dataset and builds the in-memory corpus. Dropped rows
// are logged and exported as metrics; only a fatal load error stops startup.
func loadCorpus(cfg config.CorpusConfig, logger *zap.Logger) (*corpus.Corpus, error) {
	format, err := dataset.ParseFormat(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("corpus format: %w", err)
	}
	schema, rows, err := dataset.Load(cfg.Path, dataset.Options{
		Format: format,
		Sheet:  cfg.Sheet,
		Columns: corpus.ColumnNames{
			ID:        cfg.Columns.ID,
			Content:   cfg.Columns.Content,
			Topic:     cfg.Columns.Topic,
			Embedding: cfg.Columns.Embedding,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	start := time.Now()
	c, report, err := corpus.Build(schema, rows)
	if err != nil {
		return nil, fmt.Errorf("build corpus: %w", err)
	}
	topics := c.DistinctTopics()
	metrics.ObserveCorpus(report, len(topics))

	for _, rowErr := range report.Errors {
		logger.Debug("Dropped corpus row",
			zap.Int("row", rowErr.Row),
			zap.String("id", rowErr.ID),
			zap.String("reason", string(rowErr.Reason)),
			zap.Error(rowErr.Err),
		)
	}
	if dropped := report.DroppedRows(); dropped > 0 {
		logger.Warn("Corpus rows dropped",
			zap.Int("dropped", dropped),
			zap.Any("by_reason", report.Dropped),
		)
	}
	logger.Info("Corpus loaded",
		zap.Int("rows", report.TotalRows),
		zap.Int("records", report.KeptRows),
		zap.Int("dimension", report.Dimension),
		zap.Strings("topics", topics),
		zap.Duration("took", time.Since(start)),
	)
	return c, nil
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	cfg config.Config,
	store db.Store,
	budget embeddinguc.BudgetChecker,
	logger *zap.Logger,
) domain.Embedder {
	emb := cfg.Embedding

	// Base provider (with transport metrics built-in)
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     emb.APIKey,
		BaseURL:    emb.BaseURL,
		Model:      emb.Model,
		Dimensions: emb.Dimensions,
		Provider:   emb.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if store != nil {
		// The model is part of the namespace so a model switch never serves stale vectors.
		embedder = embcache.New(base, store, emb.Provider+":"+emb.Model,
			time.Duration(cfg.Cache.TTLSec)*time.Second, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, emb.Provider, emb.Model, budget, logger)

	// Instruction prefix (outermost, so the cache key includes it)
	if emb.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, emb.QueryInstruction)
	}
	return embedder
}
