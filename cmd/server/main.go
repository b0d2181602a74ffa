package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/birads-report-server/internal/api"
	"github.com/birads-report-server/internal/archive"
	"github.com/birads-report-server/internal/casebase"
	"github.com/birads-report-server/internal/config"
	"github.com/birads-report-server/internal/database"
	"github.com/birads-report-server/internal/domain"
	"github.com/birads-report-server/internal/knowledge"
	"github.com/birads-report-server/internal/logging"
	"github.com/birads-report-server/internal/service"
	"github.com/birads-report-server/pkg/external"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger := logging.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Case base (embedded SQLite, always on).
	caseStore, err := casebase.NewSQLiteStore(cfg.CaseBase.Path)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open case base")
	}
	defer caseStore.Close()

	if cfg.CaseBase.Seed {
		inserted, err := casebase.SeedIfEmpty(ctx, caseStore)
		if err != nil {
			logger.WithError(err).Fatal("Failed to seed case base")
		}
		if inserted > 0 {
			logger.WithField("cases", inserted).Info("Seeded case base with reference cases")
		}
	}

	// Text encoder for the similarity feature.
	var encoder domain.TextEncoder
	switch cfg.Encoder.Mode {
	case "remote":
		encoder = external.NewEncoderClient(external.EncoderClientConfig{
			BaseURL:       cfg.Encoder.BaseURL,
			APIKey:        cfg.Encoder.APIKey,
			Model:         cfg.Encoder.Model,
			Dimension:     cfg.Encoder.Dimension,
			Timeout:       cfg.Encoder.Timeout,
			RateLimit:     cfg.Encoder.RateLimit,
			FallbackLocal: cfg.Encoder.FallbackLocal,
		}, logger)
	default:
		encoder = external.NewLocalEncoder(cfg.Encoder.Dimension)
	}

	// Optional shared embedding cache (tier 2).
	var embeddingCache service.EmbeddingCache
	if cfg.Cache.Enabled {
		cache, err := external.NewEmbeddingCache(cfg.Cache)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to the embedding cache")
		}
		defer cache.Close()
		embeddingCache = cache
		logger.Info("Embedding cache connected")
	}

	kb := knowledge.NewBase()
	analyzer := service.NewAnalyzer(kb, logger, service.AnalyzerOptions{
		MaxReportBytes: cfg.Analysis.MaxReportBytes,
		Engine: service.EngineOptions{
			AggregateJustifications: cfg.Analysis.AggregateJustifications,
		},
	})

	matcher, err := service.NewMatcher(caseStore, encoder, embeddingCache, logger, service.MatcherOptions{
		TopN:      cfg.Similarity.TopN,
		CacheSize: cfg.Encoder.CacheSize,
		CacheTTL:  cfg.Cache.DefaultTTL,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create case matcher")
	}

	// Optional Postgres analysis archive.
	var analysisArchive domain.AnalysisArchive
	var archiveHealth api.HealthChecker
	if cfg.Archive.Enabled {
		db, err := database.NewConnection(ctx, cfg.Archive, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to the analysis archive")
		}
		defer db.Close()

		runner, err := database.NewMigrationRunner(configManager.ArchiveDatabaseURL(), cfg.Archive.MigrationsPath, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create migration runner")
		}
		if err := runner.Up(); err != nil {
			logger.WithError(err).Fatal("Failed to run archive migrations")
		}
		runner.Close()

		analysisArchive = archive.NewPostgresArchive(db.Pool, logger)
		archiveHealth = db
	}

	server := api.NewServer(api.Deps{
		Config:        cfg,
		Logger:        logger,
		Analyzer:      analyzer,
		Matcher:       matcher,
		CaseStore:     caseStore,
		Knowledge:     kb,
		Archive:       analysisArchive,
		ArchiveHealth: archiveHealth,
		EncoderName:   encoder.Name(),
	})

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
		"mode": cfg.Server.Mode,
	}).Info("Starting report analysis server")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server stopped with error")
	}

	logger.Info("Server stopped")
}
