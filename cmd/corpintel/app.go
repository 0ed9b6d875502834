package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/corpintel/internal/config"
	dbRedis "github.com/kailas-cloud/corpintel/internal/db/redis"
	"github.com/kailas-cloud/corpintel/internal/domain"
	logpkg "github.com/kailas-cloud/corpintel/internal/logger"
	"github.com/kailas-cloud/corpintel/internal/metrics"
	"github.com/kailas-cloud/corpintel/internal/repository/cache"
	corpusrepo "github.com/kailas-cloud/corpintel/internal/repository/corpus"
	genaiTransport "github.com/kailas-cloud/corpintel/internal/transport/genai"
	openaiTransport "github.com/kailas-cloud/corpintel/internal/transport/openai"
	"github.com/kailas-cloud/corpintel/internal/usecase/analysis"
	"github.com/kailas-cloud/corpintel/internal/usecase/assemble"
	"github.com/kailas-cloud/corpintel/internal/usecase/augment"
	embeddinguc "github.com/kailas-cloud/corpintel/internal/usecase/embedding"
	"github.com/kailas-cloud/corpintel/internal/usecase/fusion"
	healthuc "github.com/kailas-cloud/corpintel/internal/usecase/health"
	"github.com/kailas-cloud/corpintel/internal/usecase/ingest"
	"github.com/kailas-cloud/corpintel/internal/usecase/retrieval"
	"github.com/kailas-cloud/corpintel/internal/usecase/sufficiency"
)

// app is the composition root shared by every command.
type app struct {
	env    string
	cfg    config.Config
	logger *zap.Logger
	store  *dbRedis.Store
	corpus *corpusrepo.Repo

	analysis *analysis.Service
	ingest   *ingest.Service
	health   *healthuc.Service
}

// newApp loads the config for env and wires the pipeline. Interactive
// commands get the terse stderr logger.
func newApp(ctx context.Context, env string, interactive bool) (*app, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var logger *zap.Logger
	if interactive {
		logger, err = logpkg.NewCLILogger(cliLogLevel)
	} else {
		logger, err = logpkg.NewLogger(env, cfg.Logging.Level)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create database store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database", zap.Strings("db_addrs", cfg.Database.Addrs))

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	a := &app{env: env, cfg: cfg, logger: logger, store: store}
	if err := a.wire(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg

	embedder := a.buildEmbedder()
	vecCfg := domain.VectorConfig{
		Model:          cfg.Embedding.Model,
		Dimensions:     cfg.Embedding.Dimensions,
		DistanceMetric: domain.DefaultVectorConfig().DistanceMetric,
		HNSWM:          cfg.Embedding.HNSWM,
		HNSWEFConstr:   cfg.Embedding.HNSWEFConstruct,
		MaxBatchSize:   cfg.Embedding.MaxBatchSize,
	}
	a.corpus = corpusrepo.New(a.store, embedder, vecCfg, cfg.Database.Corpus)
	if err := a.corpus.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure corpus index: %w", err)
	}

	generator, err := a.buildGenerator(ctx)
	if err != nil {
		return err
	}

	mandatory, err := cfg.MandatoryScenarios()
	if err != nil {
		return fmt.Errorf("mandatory scenarios: %w", err)
	}
	assessor := sufficiency.New(sufficiency.Config{
		MinDocs:          cfg.Sufficiency.MinDocs,
		MinAvgSimilarity: cfg.Sufficiency.MinAvgSimilarity,
	}, nil)
	assembler := assemble.New(assemble.Config{
		CharBudget:    cfg.Context.CharBudget,
		MaxLocal:      cfg.Context.MaxLocal,
		MaxExternal:   cfg.Context.MaxExternal,
		LocalChars:    assemble.DefaultConfig().LocalChars,
		ExternalChars: assemble.DefaultConfig().ExternalChars,
	})

	opts, err := a.searchOptions(ctx)
	if err != nil {
		return err
	}
	a.analysis = analysis.New(
		analysis.Config{
			TopK:                cfg.Retrieval.TopK,
			SimilarityThreshold: cfg.Retrieval.SimilarityThreshold,
			Weights: fusion.Weights{
				Similarity: cfg.Retrieval.SimilarityWeight,
				Entity:     cfg.Retrieval.EntityWeight,
			},
			ExtractFromQuery: *cfg.Analysis.ExtractFromQuery,
			GenerationModel:  cfg.Generation.Model,
			SearchModel:      cfg.Search.Model,
		},
		retrieval.New(a.corpus),
		augment.New(assessor, mandatory, nil),
		assembler,
		generator,
		opts...,
	)

	a.ingest = ingest.New(a.corpus)
	a.health = healthuc.New(a.store, a.corpus, embedder)

	a.logger.Info("Pipeline wired",
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("generation_provider", cfg.Generation.Provider),
		zap.String("generation_model", cfg.Generation.Model),
		zap.String("search_provider", cfg.Search.Provider),
		zap.String("cache_backend", cfg.Cache.Backend),
	)
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI-compatible -> Cached -> Instrumented.
func (a *app) buildEmbedder() *embeddinguc.InstrumentedEmbedder {
	e := a.cfg.Embedding

	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     e.APIKey,
		BaseURL:    e.BaseURL,
		Model:      e.Model,
		Dimensions: e.Dimensions,
		Provider:   e.Provider,
		Timeout:    time.Duration(e.TimeoutSec) * time.Second,
		Logger:     a.logger,
	})

	var embedder domain.Embedder = base
	if a.cfg.Cache.Backend == "redis" {
		embedder = cache.NewEmbedder(
			base, a.store, a.cfg.Cache.EmbeddingTTL(), e.MaxBatchSize,
			metrics.EmbeddingCacheTotal, a.logger,
		)
	}

	return embeddinguc.NewInstrumentedEmbedder(embedder, e.Provider, e.Model, e.MaxBatchSize, a.logger)
}

func (a *app) buildGenerator(ctx context.Context) (domain.Generator, error) {
	g := a.cfg.Generation
	timeout := time.Duration(g.TimeoutSec) * time.Second

	if g.Provider == "genai" {
		client, err := genaiTransport.NewClient(ctx, g.APIKey)
		if err != nil {
			return nil, fmt.Errorf("generation client: %w", err)
		}
		return genaiTransport.NewGenerator(client, genaiTransport.Config{
			APIKey:        g.APIKey,
			Model:         g.Model,
			FallbackModel: g.FallbackModel,
			Temperature:   g.Temperature,
			Timeout:       timeout,
			Logger:        a.logger,
		}), nil
	}

	return openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:        g.APIKey,
		BaseURL:       g.BaseURL,
		Model:         g.Model,
		FallbackModel: g.FallbackModel,
		Temperature:   g.Temperature,
		TopP:          g.TopP,
		MaxTokens:     g.MaxTokens,
		Seed:          g.Seed,
		Provider:      g.Provider,
		Timeout:       timeout,
		Logger:        a.logger,
	}), nil
}

// searchOptions wires the external searcher and its memo. With
// search.provider "none" decisions are still made but never executed.
func (a *app) searchOptions(ctx context.Context) ([]analysis.Option, error) {
	s := a.cfg.Search
	if s.Provider == "none" {
		return nil, nil
	}

	client, err := genaiTransport.NewClient(ctx, s.APIKey)
	if err != nil {
		return nil, fmt.Errorf("search client: %w", err)
	}
	opts := []analysis.Option{
		analysis.WithSearcher(genaiTransport.NewSearcher(client, genaiTransport.Config{
			APIKey:        s.APIKey,
			Model:         s.Model,
			FallbackModel: s.FallbackModel,
			MaxResults:    s.MaxResults,
			Temperature:   s.Temperature,
			Timeout:       time.Duration(s.TimeoutSec) * time.Second,
			Logger:        a.logger,
		})),
	}

	switch a.cfg.Cache.Backend {
	case "redis":
		opts = append(opts, analysis.WithSearchMemo(
			cache.NewRedisMemo(a.store, a.cfg.Cache.SearchTTL(), metrics.SearchCacheTotal, a.logger)))
	case "memory":
		opts = append(opts, analysis.WithSearchMemo(
			cache.NewLocalMemo(a.cfg.Cache.SearchTTL(), metrics.SearchCacheTotal)))
	}
	return opts, nil
}

// Close releases the database connection and flushes the logger.
func (a *app) Close() {
	a.store.Close()
	_ = a.logger.Sync()
}
