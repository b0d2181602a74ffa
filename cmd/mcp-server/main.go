package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/birads-report-server/internal/casebase"
	"github.com/birads-report-server/internal/config"
	"github.com/birads-report-server/internal/knowledge"
	"github.com/birads-report-server/internal/logging"
	"github.com/birads-report-server/internal/mcp"
	"github.com/birads-report-server/internal/service"
	"github.com/birads-report-server/pkg/external"
)

// The MCP binary runs standalone: env-only configuration, local encoder,
// embedded case base. Stdout belongs to the protocol, so logs go to stderr.
func main() {
	cfg := config.LoadLiteConfig()
	logger := logging.NewStderr(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	caseStore, err := casebase.NewSQLiteStore(cfg.CaseBasePath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open case base")
	}
	defer caseStore.Close()

	if cfg.SeedCaseBase {
		if _, err := casebase.SeedIfEmpty(ctx, caseStore); err != nil {
			logger.WithError(err).Fatal("Failed to seed case base")
		}
	}

	kb := knowledge.NewBase()
	analyzer := service.NewAnalyzer(kb, logger, service.AnalyzerOptions{
		MaxReportBytes: cfg.MaxReportBytes,
		Engine: service.EngineOptions{
			AggregateJustifications: cfg.AggregateJustifications,
		},
	})

	encoder := external.NewLocalEncoder(cfg.EncoderDimension)
	matcher, err := service.NewMatcher(caseStore, encoder, nil, logger, service.MatcherOptions{
		TopN:      cfg.TopN,
		CacheSize: cfg.CacheSize,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create case matcher")
	}

	server, err := mcp.NewServer(mcp.Deps{
		Analyzer:  analyzer,
		Matcher:   matcher,
		Knowledge: kb,
		Logger:    logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create MCP server")
	}

	if err := server.Run(ctx); err != nil {
		logger.WithError(err).Fatal("MCP server stopped with error")
	}
}
